package event

import (
	"time"

	"github.com/gosuda/beacon/internal/domain"
)

// Action qualifies project, board and comment reaction events.
type Action string

const (
	ActionCreated    Action = "created"
	ActionUpdated    Action = "updated"
	ActionMoved      Action = "moved"
	ActionArchived   Action = "archived"
	ActionUnarchived Action = "unarchived"
	ActionDeleted    Action = "deleted"
)

// Source snapshots hold committed entity state for the encoder. ActorID is
// the user whose request caused the mutation, or 0 for system changes.

type MessageSnapshot struct {
	Message      *domain.Message
	Sender       *domain.User
	Parent       *domain.Message // nil when the message is not a reply
	ParentSender *domain.User
	ActorID      int64
}

type ReadReceipt struct {
	ConversationID int64
	UserID         int64
	MessageID      int64
	ReadAt         time.Time
	ActorID        int64
}

type ConversationSnapshot struct {
	Conversation *domain.Conversation
	ActorID      int64
}

type ParticipantSnapshot struct {
	Participant *domain.Participant
	User        *domain.User
	ActorID     int64
}

type ProjectSnapshot struct {
	Project *domain.Project
	Action  Action
	ActorID int64
}

type MemberSnapshot struct {
	Member  *domain.ProjectMember
	User    *domain.User
	ActorID int64
}

type TaskSnapshot struct {
	Task     *domain.Task
	Assignee *domain.User // nil when unassigned
	Action   Action
	ActorID  int64
}

type ListSnapshot struct {
	List    *domain.TaskList
	Action  Action
	ActorID int64
}

type LabelSnapshot struct {
	Label   *domain.Label
	Action  Action
	ActorID int64
}

type CommentSnapshot struct {
	Comment      *domain.TaskComment
	ProjectID    int64
	Author       *domain.User
	Parent       *domain.TaskComment
	ParentAuthor *domain.User
	ActorID      int64
}

type ReactionSnapshot struct {
	CommentID int64
	TaskID    int64
	UserID    int64
	Emoji     string
	Action    domain.ReactionAction
	Count     int
	At        time.Time
	ActorID   int64
}

type AttachmentSnapshot struct {
	Attachment *domain.Attachment
	Uploader   *domain.User
	ActorID    int64
}

type TypingSnapshot struct {
	ConversationID int64
	User           *domain.User
	Typing         bool
	At             time.Time
}
