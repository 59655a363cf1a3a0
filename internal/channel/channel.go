package channel

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a channel name does not match any known kind.
var ErrMalformed = errors.New("channel: malformed name") //nolint:gochecknoglobals // sentinel error

// Prefix is carried by every private channel name.
const Prefix = "private-"

type Kind int

const (
	KindInvalid Kind = iota
	KindUserProjects
	KindUserConversations
	KindProject
	KindTaskComments
	KindTaskAttachments
	KindConversation
)

func (k Kind) String() string {
	switch k {
	case KindUserProjects:
		return "user_projects"
	case KindUserConversations:
		return "user_conversations"
	case KindProject:
		return "project"
	case KindTaskComments:
		return "task_comments"
	case KindTaskAttachments:
		return "task_attachments"
	case KindConversation:
		return "conversation"
	default:
		return "invalid"
	}
}

// Channel is a validated private channel identifier. The zero value is invalid.
type Channel struct {
	kind  Kind
	first int64 // user, project or conversation id
	task  int64
}

// UserProjects returns the personal channel carrying project list updates.
func UserProjects(userID int64) Channel {
	return build(KindUserProjects, userID, 0)
}

// UserConversations returns the personal channel carrying sidebar updates.
func UserConversations(userID int64) Channel {
	return build(KindUserConversations, userID, 0)
}

// Project returns the board channel of a project.
func Project(projectID int64) Channel {
	return build(KindProject, projectID, 0)
}

// TaskComments returns the comment thread channel of a task in projectID.
func TaskComments(projectID, taskID int64) Channel {
	return build(KindTaskComments, projectID, taskID)
}

// TaskAttachments returns the attachment list channel of a task in projectID.
func TaskAttachments(projectID, taskID int64) Channel {
	return build(KindTaskAttachments, projectID, taskID)
}

// Conversation returns the channel of an open conversation.
func Conversation(conversationID int64) Channel {
	return build(KindConversation, conversationID, 0)
}

func build(kind Kind, first, task int64) Channel {
	if first <= 0 {
		return Channel{}
	}
	if (kind == KindTaskComments || kind == KindTaskAttachments) && task <= 0 {
		return Channel{}
	}
	return Channel{kind: kind, first: first, task: task}
}

func (c Channel) Valid() bool { return c.kind != KindInvalid }
func (c Channel) Kind() Kind  { return c.kind }

// UserID returns the owner of a personal channel, or 0.
func (c Channel) UserID() int64 {
	if c.kind == KindUserProjects || c.kind == KindUserConversations {
		return c.first
	}
	return 0
}

// ProjectID returns the project of a project or task channel, or 0.
func (c Channel) ProjectID() int64 {
	switch c.kind {
	case KindProject, KindTaskComments, KindTaskAttachments:
		return c.first
	default:
		return 0
	}
}

func (c Channel) TaskID() int64 { return c.task }

func (c Channel) ConversationID() int64 {
	if c.kind == KindConversation {
		return c.first
	}
	return 0
}

// IsPersonal reports whether the channel belongs to a single user.
func (c Channel) IsPersonal() bool {
	return c.kind == KindUserProjects || c.kind == KindUserConversations
}

// Name returns the wire name, e.g. "private-project.9.task.4.comments".
// Invalid channels have an empty name.
func (c Channel) Name() string {
	if !c.Valid() {
		return ""
	}
	return Prefix + c.Pattern()
}

// Pattern returns the name without the private prefix ("project.9").
func (c Channel) Pattern() string {
	first := strconv.FormatInt(c.first, 10)
	switch c.kind {
	case KindUserProjects:
		return "user." + first + ".projects"
	case KindUserConversations:
		return "user." + first + ".conversations"
	case KindProject:
		return "project." + first
	case KindTaskComments:
		return "project." + first + ".task." + strconv.FormatInt(c.task, 10) + ".comments"
	case KindTaskAttachments:
		return "project." + first + ".task." + strconv.FormatInt(c.task, 10) + ".attachments"
	case KindConversation:
		return "conversation." + first
	default:
		return ""
	}
}

func (c Channel) String() string { return c.Name() }

// Parse parses a full wire name including the private prefix.
func Parse(name string) (Channel, error) {
	rest, ok := strings.CutPrefix(name, Prefix)
	if !ok {
		return Channel{}, ErrMalformed
	}
	return ParsePattern(rest)
}

// ParsePattern parses a name without the private prefix.
func ParsePattern(pattern string) (Channel, error) {
	parts := strings.Split(pattern, ".")

	switch {
	case len(parts) == 3 && parts[0] == "user":
		id, ok := parseID(parts[1])
		if !ok {
			return Channel{}, ErrMalformed
		}
		switch parts[2] {
		case "projects":
			return UserProjects(id), nil
		case "conversations":
			return UserConversations(id), nil
		}

	case len(parts) == 2 && parts[0] == "project":
		if id, ok := parseID(parts[1]); ok {
			return Project(id), nil
		}

	case len(parts) == 5 && parts[0] == "project" && parts[2] == "task":
		projectID, okProject := parseID(parts[1])
		taskID, okTask := parseID(parts[3])
		if !okProject || !okTask {
			return Channel{}, ErrMalformed
		}
		switch parts[4] {
		case "comments":
			return TaskComments(projectID, taskID), nil
		case "attachments":
			return TaskAttachments(projectID, taskID), nil
		}

	case len(parts) == 2 && parts[0] == "conversation":
		if id, ok := parseID(parts[1]); ok {
			return Conversation(id), nil
		}
	}

	return Channel{}, ErrMalformed
}

// parseID accepts canonical positive decimal ids only, so "09" and "+9" are
// rejected and every channel has exactly one spelling.
func parseID(s string) (int64, bool) {
	if s == "" || s[0] == '0' || s[0] == '+' || s[0] == '-' {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
