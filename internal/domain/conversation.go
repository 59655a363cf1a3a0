package domain

import (
	"context"
	"time"
)

type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

type Conversation struct {
	ID            int64
	Name          string // empty for direct conversations
	Type          ConversationType
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastMessageAt *time.Time
}

type Participant struct {
	ConversationID    int64
	UserID            int64
	Role              string // "owner", "admin", "member"
	JoinedAt          time.Time
	LeftAt            *time.Time
	LastReadAt        *time.Time
	LastReadMessageID *int64
	UpdatedAt         time.Time
}

// Active reports whether the participant has not left the conversation.
func (p *Participant) Active() bool { return p.LeftAt == nil }

// ConversationReader reads committed conversation state. GetParticipant
// returns participants that have left as well.
type ConversationReader interface {
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	GetParticipant(ctx context.Context, conversationID, userID int64) (*Participant, error)
	ListActiveParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error)
}
