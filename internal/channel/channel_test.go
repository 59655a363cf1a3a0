package channel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/beacon/internal/channel"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ch   channel.Channel
		want string
		kind channel.Kind
	}{
		{name: "user projects", ch: channel.UserProjects(7), want: "private-user.7.projects", kind: channel.KindUserProjects},
		{name: "user conversations", ch: channel.UserConversations(7), want: "private-user.7.conversations", kind: channel.KindUserConversations},
		{name: "project", ch: channel.Project(9), want: "private-project.9", kind: channel.KindProject},
		{name: "task comments", ch: channel.TaskComments(9, 4), want: "private-project.9.task.4.comments", kind: channel.KindTaskComments},
		{name: "task attachments", ch: channel.TaskAttachments(9, 4), want: "private-project.9.task.4.attachments", kind: channel.KindTaskAttachments},
		{name: "conversation", ch: channel.Conversation(5), want: "private-conversation.5", kind: channel.KindConversation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, tt.ch.Valid())
			assert.Equal(t, tt.want, tt.ch.Name())
			assert.Equal(t, tt.kind, tt.ch.Kind())
		})
	}
}

func TestConstructors_RejectNonPositiveIDs(t *testing.T) {
	t.Parallel()

	invalid := []channel.Channel{
		channel.UserProjects(0),
		channel.UserConversations(-1),
		channel.Project(0),
		channel.TaskComments(9, 0),
		channel.TaskAttachments(0, 4),
		channel.Conversation(-5),
	}

	for _, ch := range invalid {
		assert.False(t, ch.Valid())
		assert.Empty(t, ch.Name())
	}
}

func TestAccessors(t *testing.T) {
	t.Parallel()

	ch := channel.TaskComments(9, 4)
	assert.Equal(t, int64(9), ch.ProjectID())
	assert.Equal(t, int64(4), ch.TaskID())
	assert.Zero(t, ch.UserID())
	assert.Zero(t, ch.ConversationID())
	assert.False(t, ch.IsPersonal())

	user := channel.UserConversations(3)
	assert.Equal(t, int64(3), user.UserID())
	assert.Zero(t, user.ProjectID())
	assert.True(t, user.IsPersonal())

	conv := channel.Conversation(5)
	assert.Equal(t, int64(5), conv.ConversationID())
	assert.Zero(t, conv.ProjectID())
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	all := []channel.Channel{
		channel.UserProjects(1),
		channel.UserConversations(22),
		channel.Project(333),
		channel.TaskComments(4, 55),
		channel.TaskAttachments(4, 55),
		channel.Conversation(6),
	}

	for _, ch := range all {
		t.Run(ch.Name(), func(t *testing.T) {
			t.Parallel()

			got, err := channel.Parse(ch.Name())
			require.NoError(t, err)
			assert.Equal(t, ch, got)

			fromPattern, err := channel.ParsePattern(ch.Pattern())
			require.NoError(t, err)
			assert.Equal(t, ch, fromPattern)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	names := []string{
		"",
		"project.9",
		"public-project.9",
		"private-",
		"private-project",
		"private-project.",
		"private-project.abc",
		"private-project.0",
		"private-project.-9",
		"private-project.09",
		"private-project.+9",
		"private-project.9.extra",
		"private-project.9.task.4",
		"private-project.9.task.4.files",
		"private-project.9.task.x.comments",
		"private-project.9.tasks.4.comments",
		"private-user.7",
		"private-user.7.tasks",
		"private-user.x.projects",
		"private-conversation.5.messages",
		"private-conversation.99999999999999999999",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := channel.Parse(name)
			require.ErrorIs(t, err, channel.ErrMalformed)
		})
	}
}

func TestNoCollisionAcrossKinds(t *testing.T) {
	t.Parallel()

	names := map[string]struct{}{}
	for _, ch := range []channel.Channel{
		channel.UserProjects(1),
		channel.UserConversations(1),
		channel.Project(1),
		channel.TaskComments(1, 1),
		channel.TaskAttachments(1, 1),
		channel.Conversation(1),
	} {
		_, dup := names[ch.Name()]
		assert.False(t, dup, "duplicate name %q", ch.Name())
		names[ch.Name()] = struct{}{}
	}
}
