package domain

import (
	"context"
	"time"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

type Message struct {
	ID             int64
	ConversationID int64
	UserID         int64
	ParentID       *int64 // reply target
	Content        string
	Type           MessageType
	CreatedAt      time.Time
	EditedAt       *time.Time
	DeletedAt      *time.Time
}

func (m *Message) Trashed() bool { return m.DeletedAt != nil }

// MessageReader reads committed messages, soft-deleted rows included.
type MessageReader interface {
	GetMessage(ctx context.Context, id int64) (*Message, error)
}
