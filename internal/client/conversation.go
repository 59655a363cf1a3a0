package client

import (
	"sync"
	"time"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/event"
)

type Message struct {
	ID        int64
	Content   string
	Type      string
	Sender    event.UserRef
	Parent    *event.ParentPreview
	CreatedAt time.Time
	EditedAt  *time.Time
}

type Participant struct {
	UserID int64
	Name   string
	Role   string
}

// ConversationView reconciles one open conversation.
type ConversationView struct {
	mu           sync.RWMutex
	id           int64
	name         string
	messages     *Collection[int64, Message]
	participants *Collection[int64, Participant]
	lastRead     map[int64]int64
	typing       map[int64]event.UserRef
}

// NewConversationView returns an empty view of one conversation.
func NewConversationView(conversationID int64) *ConversationView {
	return &ConversationView{
		id:           conversationID,
		messages:     NewCollection[int64, Message](),
		participants: NewCollection[int64, Participant](),
		lastRead:     make(map[int64]int64),
		typing:       make(map[int64]event.UserRef),
	}
}

func (v *ConversationView) Channel() channel.Channel { return channel.Conversation(v.id) }

// Seed loads the initial state fetched over HTTP, oldest message first.
func (v *ConversationView) Seed(name string, messages []Message, participants []Participant) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.name = name
	for _, m := range messages {
		v.messages.Append(m.ID, m)
	}
	for _, p := range participants {
		v.participants.Append(p.UserID, p)
	}
}

func (v *ConversationView) Handle(e Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e.Name {
	case "message.sent":
		if p, ok := decode[event.MessagePayload](e); ok {
			v.messages.Append(p.ID, Message{
				ID: p.ID, Content: p.Content, Type: p.Type, Sender: p.Sender,
				Parent: p.Parent, CreatedAt: p.CreatedAt,
			})
			delete(v.typing, p.Sender.ID)
		}

	case "message.edited":
		if p, ok := decode[event.MessageEditedPayload](e); ok {
			v.messages.Patch(p.ID, func(m *Message) {
				m.Content = p.Content
				m.EditedAt = &p.EditedAt
			})
		}

	case "message.deleted":
		if p, ok := decode[event.MessageDeletedPayload](e); ok {
			v.messages.Remove(p.ID)
		}

	case "message.read":
		if p, ok := decode[event.MessageReadPayload](e); ok && p.MessageID > v.lastRead[p.UserID] {
			v.lastRead[p.UserID] = p.MessageID
		}

	case "conversation.updated":
		if p, ok := decode[event.ConversationPayload](e); ok {
			v.name = p.Name
		}

	case "participant.added":
		if p, ok := decode[event.ParticipantAddedPayload](e); ok {
			v.participants.Append(p.User.ID, Participant{UserID: p.User.ID, Name: p.User.Name, Role: p.Role})
		}

	case "participant.removed":
		if p, ok := decode[event.ParticipantRemovedPayload](e); ok {
			v.participants.Remove(p.UserID)
			delete(v.typing, p.UserID)
		}

	case "participant.role_changed":
		if p, ok := decode[event.ParticipantRolePayload](e); ok {
			v.participants.Patch(p.UserID, func(pt *Participant) { pt.Role = p.Role })
		}

	case "typing":
		if p, ok := decode[event.TypingPayload](e); ok {
			if p.Typing {
				v.typing[p.User.ID] = p.User
			} else {
				delete(v.typing, p.User.ID)
			}
		}
	}
}

func (v *ConversationView) Name() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.name
}

func (v *ConversationView) Messages() []Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.messages.Values()
}

func (v *ConversationView) Participants() []Participant {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.participants.Values()
}

// LastRead returns the last message userID has read.
func (v *ConversationView) LastRead(userID int64) (int64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	id, ok := v.lastRead[userID]
	return id, ok
}

// Typing returns the ids of users currently typing.
func (v *ConversationView) Typing() []int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ids := make([]int64, 0, len(v.typing))
	for id := range v.typing {
		ids = append(ids, id)
	}
	return ids
}

type ConversationSummary struct {
	ID            int64
	Name          string
	LastMessage   string
	LastSender    event.UserRef
	LastMessageAt time.Time
	Unread        int
}

// ConversationListView reconciles the conversation sidebar of one user.
// A new message moves its conversation to the top.
type ConversationListView struct {
	mu     sync.RWMutex
	userID int64
	items  *Collection[int64, ConversationSummary]
}

// NewConversationListView returns the sidebar of userID.
func NewConversationListView(userID int64) *ConversationListView {
	return &ConversationListView{userID: userID, items: NewCollection[int64, ConversationSummary]()}
}

func (v *ConversationListView) Channel() channel.Channel { return channel.UserConversations(v.userID) }

// Seed loads the sidebar ordered by last_message_at, newest first.
func (v *ConversationListView) Seed(items []ConversationSummary) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, it := range items {
		v.items.Append(it.ID, it)
	}
}

func (v *ConversationListView) Handle(e Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e.Name {
	case "message.sent":
		p, ok := decode[event.MessagePayload](e)
		if !ok {
			return
		}
		v.items.Prepend(p.ConversationID, ConversationSummary{ID: p.ConversationID})

		newer := false
		v.items.Patch(p.ConversationID, func(s *ConversationSummary) {
			s.Unread++
			if p.CreatedAt.Before(s.LastMessageAt) {
				return
			}
			newer = true
			s.LastMessage = p.Content
			s.LastSender = p.Sender
			s.LastMessageAt = p.CreatedAt
		})
		if newer {
			v.items.MoveToFront(p.ConversationID)
		}

	case "participant.added":
		if p, ok := decode[event.ParticipantAddedPayload](e); ok && p.User.ID == v.userID {
			v.items.Prepend(p.ConversationID, ConversationSummary{ID: p.ConversationID})
		}

	case "participant.removed":
		if p, ok := decode[event.ParticipantRemovedPayload](e); ok && p.UserID == v.userID {
			v.items.Remove(p.ConversationID)
		}
	}
}

// MarkRead clears the unread badge after the user opened a conversation.
func (v *ConversationListView) MarkRead(conversationID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items.Patch(conversationID, func(s *ConversationSummary) { s.Unread = 0 })
}

func (v *ConversationListView) Conversations() []ConversationSummary {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.items.Values()
}
