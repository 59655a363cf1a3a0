package client

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultDedupWindow is the number of recent event keys kept per subscription.
const DefaultDedupWindow = 512

// dedupWindow remembers the most recent keys, evicting the oldest first.
type dedupWindow struct {
	keys  map[string]struct{}
	order []string
	next  int
}

func newDedupWindow(size int) *dedupWindow {
	if size <= 0 {
		size = DefaultDedupWindow
	}
	return &dedupWindow{
		keys:  make(map[string]struct{}, size),
		order: make([]string, 0, size),
	}
}

// seen reports whether key was recorded before, and records it if not.
func (w *dedupWindow) seen(key string) bool {
	if _, ok := w.keys[key]; ok {
		return true
	}

	if len(w.order) < cap(w.order) {
		w.order = append(w.order, key)
	} else {
		delete(w.keys, w.order[w.next])
		w.order[w.next] = key
		w.next = (w.next + 1) % len(w.order)
	}
	w.keys[key] = struct{}{}
	return false
}

// envelopeFields are the payload fields that identify an event.
type envelopeFields struct {
	ActorID int64 `json:"actor_id"`

	ID             int64 `json:"id"`
	CommentID      int64 `json:"comment_id"`
	MessageID      int64 `json:"message_id"`
	UserID         int64 `json:"user_id"`
	ConversationID int64 `json:"conversation_id"`
	ProjectID      int64 `json:"project_id"`
	User           struct {
		ID int64 `json:"id"`
	} `json:"user"`

	Action string `json:"action"`
	Emoji  string `json:"emoji"`
	Typing *bool  `json:"typing"`

	EditedAt  string `json:"edited_at"`
	DeletedAt string `json:"deleted_at"`
	ReadAt    string `json:"read_at"`
	LeftAt    string `json:"left_at"`
	JoinedAt  string `json:"joined_at"`
	UpdatedAt string `json:"updated_at"`
	CreatedAt string `json:"created_at"`
	At        string `json:"at"`
}

// subject returns the ids naming what the event is about. Events about a
// membership or a per-user state carry the user next to the resource, so two
// users changing the same resource in the same second stay distinct.
func (f envelopeFields) subject(name string) []int64 {
	user := f.UserID
	if user == 0 {
		user = f.User.ID
	}

	switch name {
	case "message.read":
		return []int64{f.ConversationID, user, f.MessageID}
	case "participant.added", "participant.removed", "participant.role_changed", "typing":
		return []int64{f.ConversationID, user}
	case "project.member_added", "project.member_removed":
		return []int64{f.ProjectID, user}
	case "comment.reaction":
		return []int64{f.CommentID, user}
	}

	for _, id := range []int64{f.ID, f.CommentID, f.MessageID, f.UserID, f.ConversationID, f.ProjectID} {
		if id != 0 {
			return []int64{id}
		}
	}
	return nil
}

func (f envelopeFields) timestamp() string {
	for _, ts := range []string{f.EditedAt, f.DeletedAt, f.ReadAt, f.LeftAt, f.JoinedAt, f.UpdatedAt, f.CreatedAt, f.At} {
		if ts != "" {
			return ts
		}
	}
	return ""
}

// inspect extracts the actor and the dedup key of an event. ok is false
// when the payload carries neither a subject nor a timestamp, in which case
// the event cannot be deduplicated.
func inspect(name string, data json.RawMessage) (actorID int64, key string, ok bool) {
	var f envelopeFields
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, "", false
	}

	ids, ts := f.subject(name), f.timestamp()
	if len(ids) == 0 && ts == "" {
		return f.ActorID, "", false
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('|')
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte('|')
	b.WriteString(ts)

	// Toggles and lifecycle steps on one subject may share a second.
	if f.Action != "" {
		b.WriteString("|" + f.Action)
	}
	if f.Emoji != "" {
		b.WriteString("|" + f.Emoji)
	}
	if f.Typing != nil {
		b.WriteString("|" + strconv.FormatBool(*f.Typing))
	}
	return f.ActorID, b.String(), true
}
