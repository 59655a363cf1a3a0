package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned when encoding a kind outside the closed set.
	ErrUnknownKind = errors.New("event: unknown kind") //nolint:gochecknoglobals // sentinel error
	// ErrSourceMismatch is returned when the source snapshot does not match the kind.
	ErrSourceMismatch = errors.New("event: source does not match kind") //nolint:gochecknoglobals // sentinel error
	// ErrIncompleteSource is returned when a required entity is missing from the snapshot.
	ErrIncompleteSource = errors.New("event: incomplete source") //nolint:gochecknoglobals // sentinel error
	// ErrInvalidAction is returned when an action is not allowed for the kind.
	ErrInvalidAction = errors.New("event: invalid action") //nolint:gochecknoglobals // sentinel error
)

// Kind is the closed set of events the fan-out layer emits.
type Kind int

const (
	KindUnknown Kind = iota
	KindMessageSent
	KindMessageEdited
	KindMessageDeleted
	KindMessageRead
	KindConversationUpdated
	KindParticipantAdded
	KindParticipantRemoved
	KindParticipantRoleChanged
	KindProjectUpdated
	KindProjectMemberAdded
	KindProjectMemberRemoved
	KindTaskUpdated
	KindListUpdated
	KindLabelUpdated
	KindCommentCreated
	KindCommentUpdated
	KindCommentDeleted
	KindCommentReaction
	KindAttachmentCreated
	KindAttachmentDeleted
	KindTyping

	kindCount
)

type builder func(src any) (any, error)

type variant struct {
	name  string
	build builder
}

// variants binds every kind to its wire name and payload builder.
var variants = [kindCount]variant{ //nolint:gochecknoglobals // closed dispatch table
	KindMessageSent:            {"message.sent", buildMessageSent},
	KindMessageEdited:          {"message.edited", buildMessageEdited},
	KindMessageDeleted:         {"message.deleted", buildMessageDeleted},
	KindMessageRead:            {"message.read", buildMessageRead},
	KindConversationUpdated:    {"conversation.updated", buildConversationUpdated},
	KindParticipantAdded:       {"participant.added", buildParticipantAdded},
	KindParticipantRemoved:     {"participant.removed", buildParticipantRemoved},
	KindParticipantRoleChanged: {"participant.role_changed", buildParticipantRoleChanged},
	KindProjectUpdated:         {"project.updated", buildProjectUpdated},
	KindProjectMemberAdded:     {"project.member_added", buildMemberAdded},
	KindProjectMemberRemoved:   {"project.member_removed", buildMemberRemoved},
	KindTaskUpdated:            {"task.updated", buildTaskUpdated},
	KindListUpdated:            {"list.updated", buildListUpdated},
	KindLabelUpdated:           {"label.updated", buildLabelUpdated},
	KindCommentCreated:         {"comment.created", buildCommentCreated},
	KindCommentUpdated:         {"comment.updated", buildCommentUpdated},
	KindCommentDeleted:         {"comment.deleted", buildCommentDeleted},
	KindCommentReaction:        {"comment.reaction", buildCommentReaction},
	KindAttachmentCreated:      {"attachment.created", buildAttachmentCreated},
	KindAttachmentDeleted:      {"attachment.deleted", buildAttachmentDeleted},
	KindTyping:                 {"typing", buildTyping},
}

func (k Kind) Valid() bool { return k > KindUnknown && k < kindCount }

// Name returns the stable wire name, or "" for an unknown kind.
func (k Kind) Name() string {
	if !k.Valid() {
		return ""
	}
	return variants[k].name
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return variants[k].name
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind resolves a wire name.
func ParseKind(name string) (Kind, bool) {
	for k := KindUnknown + 1; k < kindCount; k++ {
		if variants[k].name == name {
			return k, true
		}
	}
	return KindUnknown, false
}

// Event is an encoded broadcast: a stable name and a minimal JSON payload.
type Event struct {
	Kind Kind
	Name string
	Data json.RawMessage
}

// Encode builds the payload for kind from its source snapshot.
func Encode(kind Kind, src any) (Event, error) {
	if !kind.Valid() {
		return Event{}, fmt.Errorf("event.Encode: %w: %d", ErrUnknownKind, int(kind))
	}

	payload, err := variants[kind].build(src)
	if err != nil {
		return Event{}, fmt.Errorf("event.Encode %s: %w", kind, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("event.Encode %s: marshal: %w", kind, err)
	}

	return Event{Kind: kind, Name: kind.Name(), Data: data}, nil
}
