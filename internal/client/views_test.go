package client_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/beacon/internal/client"
	"github.com/gosuda/beacon/internal/event"
)

var t0 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture

func ev(t *testing.T, name string, payload any) client.Event {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return client.Event{Name: name, Data: b}
}

func TestConversationView(t *testing.T) {
	t.Parallel()

	bob := event.UserRef{ID: 2, Name: "Bob"}
	v := client.NewConversationView(5)
	v.Seed("launch", []client.Message{{ID: 1, Content: "first", Sender: bob, CreatedAt: t0}}, []client.Participant{
		{UserID: 1, Name: "Alice", Role: "owner"},
		{UserID: 2, Name: "Bob", Role: "member"},
	})
	assert.Equal(t, "private-conversation.5", v.Channel().Name())

	v.Handle(ev(t, "typing", event.TypingPayload{ConversationID: 5, User: bob, Typing: true, At: t0}))
	assert.Equal(t, []int64{2}, v.Typing())

	v.Handle(ev(t, "message.sent", event.MessagePayload{ID: 2, ConversationID: 5, Content: "hi", Sender: bob, CreatedAt: t0.Add(time.Minute)}))
	v.Handle(ev(t, "message.sent", event.MessagePayload{ID: 3, ConversationID: 5, Content: "again", Sender: bob, CreatedAt: t0.Add(2 * time.Minute)}))
	assert.Empty(t, v.Typing(), "sending a message ends typing")

	v.Handle(ev(t, "message.edited", event.MessageEditedPayload{ID: 2, ConversationID: 5, Content: "hello", EditedAt: t0.Add(3 * time.Minute)}))
	v.Handle(ev(t, "message.deleted", event.MessageDeletedPayload{ID: 1, ConversationID: 5, DeletedAt: t0.Add(4 * time.Minute)}))

	msgs := v.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(2), msgs[0].ID)
	assert.Equal(t, "hello", msgs[0].Content)
	require.NotNil(t, msgs[0].EditedAt)
	assert.Equal(t, int64(3), msgs[1].ID)

	v.Handle(ev(t, "message.read", event.MessageReadPayload{ConversationID: 5, UserID: 1, MessageID: 3, ReadAt: t0}))
	v.Handle(ev(t, "message.read", event.MessageReadPayload{ConversationID: 5, UserID: 1, MessageID: 2, ReadAt: t0}))
	last, ok := v.LastRead(1)
	assert.True(t, ok)
	assert.Equal(t, int64(3), last, "read marker never moves back")

	v.Handle(ev(t, "participant.role_changed", event.ParticipantRolePayload{ConversationID: 5, UserID: 2, Role: "admin"}))
	v.Handle(ev(t, "participant.added", event.ParticipantAddedPayload{ConversationID: 5, User: event.UserRef{ID: 3, Name: "Carol"}, Role: "member"}))
	v.Handle(ev(t, "participant.removed", event.ParticipantRemovedPayload{ConversationID: 5, UserID: 1}))
	v.Handle(ev(t, "conversation.updated", event.ConversationPayload{ID: 5, Name: "liftoff"}))

	assert.Equal(t, []client.Participant{
		{UserID: 2, Name: "Bob", Role: "admin"},
		{UserID: 3, Name: "Carol", Role: "member"},
	}, v.Participants())
	assert.Equal(t, "liftoff", v.Name())
}

func TestConversationListView_ReordersOnNewMessage(t *testing.T) {
	t.Parallel()

	v := client.NewConversationListView(1)
	v.Seed([]client.ConversationSummary{
		{ID: 5, LastMessageAt: t0.Add(2 * time.Minute)},
		{ID: 6, LastMessageAt: t0.Add(time.Minute)},
		{ID: 7, LastMessageAt: t0},
	})

	v.Handle(ev(t, "message.sent", event.MessagePayload{ID: 1, ConversationID: 7, Content: "ping", CreatedAt: t0.Add(3 * time.Minute)}))
	v.Handle(ev(t, "message.sent", event.MessagePayload{ID: 2, ConversationID: 8, Content: "new", CreatedAt: t0.Add(4 * time.Minute)}))
	// An older message bumps the badge but not the order.
	v.Handle(ev(t, "message.sent", event.MessagePayload{ID: 3, ConversationID: 6, Content: "late", CreatedAt: t0}))

	ids := func() []int64 {
		var out []int64
		for _, c := range v.Conversations() {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []int64{8, 7, 5, 6}, ids())

	convs := v.Conversations()
	assert.Equal(t, "ping", convs[1].LastMessage)
	assert.Equal(t, 1, convs[1].Unread)
	assert.Equal(t, 1, convs[3].Unread)

	v.MarkRead(7)
	assert.Zero(t, v.Conversations()[1].Unread)

	v.Handle(ev(t, "participant.removed", event.ParticipantRemovedPayload{ConversationID: 5, UserID: 1}))
	v.Handle(ev(t, "participant.removed", event.ParticipantRemovedPayload{ConversationID: 6, UserID: 4}))
	v.Handle(ev(t, "participant.added", event.ParticipantAddedPayload{ConversationID: 9, User: event.UserRef{ID: 1}}))
	assert.Equal(t, []int64{9, 8, 7, 6}, ids())
}

func TestTaskDetailView(t *testing.T) {
	t.Parallel()

	v := client.NewTaskDetailView(9, 4)
	require.Len(t, v.Channels(), 2)
	assert.Equal(t, "private-project.9.task.4.comments", v.Channels()[0].Name())
	assert.Equal(t, "private-project.9.task.4.attachments", v.Channels()[1].Name())

	v.Handle(ev(t, "comment.created", event.CommentPayload{ID: 7, TaskID: 4, ProjectID: 9, Content: "looks good", CreatedAt: t0}))
	v.Handle(ev(t, "comment.created", event.CommentPayload{ID: 8, TaskID: 4, ProjectID: 9, Content: "ship it", CreatedAt: t0}))
	v.Handle(ev(t, "comment.reaction", event.ReactionPayload{CommentID: 7, TaskID: 4, UserID: 3, Emoji: "👍", Action: "added", Count: 1}))
	v.Handle(ev(t, "comment.updated", event.CommentEditedPayload{ID: 7, TaskID: 4, Content: "looks great", EditedAt: t0}))

	comments := v.Comments()
	require.Len(t, comments, 2)
	assert.Equal(t, "looks great", comments[0].Content)
	assert.Equal(t, map[string]int{"👍": 1}, comments[0].Reactions)

	v.Handle(ev(t, "comment.reaction", event.ReactionPayload{CommentID: 7, TaskID: 4, UserID: 3, Emoji: "👍", Action: "removed", Count: 0}))
	v.Handle(ev(t, "comment.deleted", event.CommentDeletedPayload{ID: 8, TaskID: 4, DeletedAt: t0}))
	comments = v.Comments()
	require.Len(t, comments, 1)
	assert.Empty(t, comments[0].Reactions)

	v.Handle(ev(t, "attachment.created", event.AttachmentPayload{ID: 11, TaskID: 4, FileName: "spec.pdf", Size: 2048}))
	require.Len(t, v.Attachments(), 1)
	v.Handle(ev(t, "attachment.deleted", event.AttachmentDeletedPayload{ID: 11, TaskID: 4}))
	assert.Empty(t, v.Attachments())
}

func TestBoardView(t *testing.T) {
	t.Parallel()

	v := client.NewBoardView(9)
	v.Seed(
		[]client.List{{ID: 1, Name: "Todo"}, {ID: 2, Name: "Done"}},
		[]client.Task{{ID: 4, ListID: 1, Title: "Ship"}, {ID: 5, ListID: 1, Title: "Test"}},
		nil,
	)

	v.Handle(ev(t, "task.updated", event.TaskPayload{ID: 6, ListID: 1, Title: "Docs", Action: event.ActionCreated}))
	v.Handle(ev(t, "task.updated", event.TaskPayload{ID: 4, ListID: 2, Title: "Ship", Action: event.ActionMoved}))
	v.Handle(ev(t, "task.updated", event.TaskPayload{ID: 5, ListID: 1, Title: "Test all", Action: event.ActionUpdated}))

	titles := func(listID int64) []string {
		var out []string
		for _, task := range v.Tasks(listID) {
			out = append(out, task.Title)
		}
		return out
	}
	assert.Equal(t, []string{"Test all", "Docs"}, titles(1))
	assert.Equal(t, []string{"Ship"}, titles(2))

	v.Handle(ev(t, "label.updated", event.LabelPayload{ID: 3, Name: "bug", Color: "red", Action: event.ActionCreated}))
	assert.Equal(t, []client.Label{{ID: 3, Name: "bug", Color: "red"}}, v.Labels())

	v.Handle(ev(t, "list.updated", event.ListPayload{ID: 1, Action: event.ActionDeleted}))
	assert.Equal(t, []client.List{{ID: 2, Name: "Done"}}, v.Lists())
	assert.Empty(t, v.Tasks(1), "tasks of a deleted list go with it")

	v.Handle(ev(t, "project.member_added", event.MemberAddedPayload{ProjectID: 9, User: event.UserRef{ID: 3}, Role: "viewer"}))
	role, ok := v.MemberRole(3)
	assert.True(t, ok)
	assert.Equal(t, "viewer", role)

	v.Handle(ev(t, "project.updated", event.ProjectPayload{ID: 9, Name: "Apollo", Status: "archived", Action: event.ActionArchived}))
	name, status, deleted := v.Project()
	assert.Equal(t, "Apollo", name)
	assert.Equal(t, "archived", status)
	assert.False(t, deleted)
}

func TestBoardView_MovesReorder(t *testing.T) {
	t.Parallel()

	v := client.NewBoardView(9)
	v.Seed(
		[]client.List{{ID: 1, Name: "Todo", Position: 0}, {ID: 2, Name: "Done", Position: 1}},
		[]client.Task{{ID: 10, ListID: 1, Title: "A", Position: 0}, {ID: 11, ListID: 1, Title: "B", Position: 1}},
		nil,
	)

	v.Handle(ev(t, "task.updated", event.TaskPayload{ID: 11, ListID: 1, Title: "B", Position: 0, Action: event.ActionMoved}))
	v.Handle(ev(t, "task.updated", event.TaskPayload{ID: 10, ListID: 1, Title: "A", Position: 1, Action: event.ActionMoved}))

	var ids []int64
	for _, task := range v.Tasks(1) {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int64{11, 10}, ids)

	v.Handle(ev(t, "list.updated", event.ListPayload{ID: 2, Name: "Done", Position: 0, Action: event.ActionMoved}))
	v.Handle(ev(t, "list.updated", event.ListPayload{ID: 1, Name: "Todo", Position: 1, Action: event.ActionMoved}))
	assert.Equal(t, []client.List{
		{ID: 2, Name: "Done", Position: 0},
		{ID: 1, Name: "Todo", Position: 1},
	}, v.Lists())
}

func TestProjectListView(t *testing.T) {
	t.Parallel()

	v := client.NewProjectListView(2)
	v.Seed([]client.ProjectSummary{{ID: 9, Name: "Apollo", Status: "active"}, {ID: 10, Name: "Gemini", Status: "active"}})

	v.Handle(ev(t, "project.updated", event.ProjectPayload{ID: 9, Name: "Apollo", Status: "archived", Action: event.ActionArchived}))
	v.Handle(ev(t, "project.updated", event.ProjectPayload{ID: 11, Name: "Mercury", Status: "active", Action: event.ActionCreated}))
	v.Handle(ev(t, "project.updated", event.ProjectPayload{ID: 10, Action: event.ActionDeleted}))
	v.Handle(ev(t, "project.member_added", event.MemberAddedPayload{ProjectID: 12, User: event.UserRef{ID: 2}, Role: "member"}))
	v.Handle(ev(t, "project.member_added", event.MemberAddedPayload{ProjectID: 13, User: event.UserRef{ID: 3}, Role: "member"}))

	assert.Equal(t, []client.ProjectSummary{
		{ID: 12, Role: "member"},
		{ID: 11, Name: "Mercury", Status: "active"},
		{ID: 9, Name: "Apollo", Status: "archived"},
	}, v.Projects())

	v.Handle(ev(t, "project.member_removed", event.MemberRemovedPayload{ProjectID: 9, UserID: 2}))
	assert.Len(t, v.Projects(), 2)
}
