package fanout

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/event"
	"github.com/gosuda/beacon/internal/wire"
)

var (
	// ErrTransportUnavailable wraps every publish failure.
	ErrTransportUnavailable = errors.New("fanout: transport unavailable") //nolint:gochecknoglobals // sentinel error
	// ErrIncompleteScope is returned when a mutation lacks the ids its kind routes on.
	ErrIncompleteScope = errors.New("fanout: incomplete scope") //nolint:gochecknoglobals // sentinel error
)

// Publisher abstracts the broker publish operation.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Delivery is the outcome of planning a mutation: one event, many channels.
type Delivery struct {
	Event         event.Event
	Channels      []channel.Channel
	ExcludeSocket string
}

// ChannelNames returns the wire names of the target channels.
func (d Delivery) ChannelNames() []string {
	names := make([]string, len(d.Channels))
	for i, ch := range d.Channels {
		names[i] = ch.Name()
	}
	return names
}

// Dispatcher computes target channels for a mutation and publishes the
// encoded event to each of them.
type Dispatcher struct {
	publisher Publisher
}

// NewDispatcher returns a Dispatcher publishing through publisher. Plan
// works with a nil publisher.
func NewDispatcher(publisher Publisher) *Dispatcher {
	return &Dispatcher{publisher: publisher}
}

// Plan encodes the mutation and computes its targets without publishing.
func (d *Dispatcher) Plan(m Mutation) (Delivery, error) {
	evt, err := event.Encode(m.Kind, m.Source)
	if err != nil {
		return Delivery{}, fmt.Errorf("fanout.Dispatcher.Plan: %w", err)
	}

	targets, err := route(m)
	if err != nil {
		return Delivery{}, fmt.Errorf("fanout.Dispatcher.Plan %s: %w", m.Kind, err)
	}

	return Delivery{Event: evt, Channels: targets, ExcludeSocket: m.Actor.SocketID}, nil
}

// Dispatch publishes the mutation synchronously. A failure on one channel
// does not stop delivery to the others; all failures are joined and wrap
// ErrTransportUnavailable.
func (d *Dispatcher) Dispatch(ctx context.Context, m Mutation) (Delivery, error) {
	delivery, err := d.Plan(m)
	if err != nil {
		return Delivery{}, err
	}

	var errs []error
	for _, ch := range delivery.Channels {
		payload, encErr := wire.EncodeEnvelope(wire.Envelope{
			Channel:       ch.Name(),
			Event:         delivery.Event.Name,
			Data:          delivery.Event.Data,
			ExcludeSocket: delivery.ExcludeSocket,
		})
		if encErr != nil {
			errs = append(errs, encErr)
			continue
		}
		if pubErr := d.publisher.Publish(ctx, ch.Name(), payload); pubErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), pubErr))
		}
	}

	if len(errs) > 0 {
		errs = append([]error{ErrTransportUnavailable}, errs...)
		return delivery, fmt.Errorf("fanout.Dispatcher.Dispatch %s: %w", delivery.Event.Name, errors.Join(errs...))
	}
	return delivery, nil
}

// route computes the target channel set for a mutation. The result is
// deduplicated and ordered: resource channel first, then personal channels
// in scope order.
func route(m Mutation) ([]channel.Channel, error) {
	s := m.Scope
	var targets []channel.Channel

	switch m.Kind {
	case event.KindMessageSent:
		sender := m.Actor.UserID
		if snap, ok := m.Source.(event.MessageSnapshot); ok && snap.Message != nil {
			sender = snap.Message.UserID
		}
		targets = append(targets, channel.Conversation(s.ConversationID))
		for _, uid := range s.ParticipantIDs {
			if uid != sender {
				targets = append(targets, channel.UserConversations(uid))
			}
		}

	case event.KindMessageEdited, event.KindMessageDeleted, event.KindMessageRead,
		event.KindConversationUpdated, event.KindTyping:
		targets = append(targets, channel.Conversation(s.ConversationID))

	case event.KindParticipantAdded, event.KindParticipantRemoved, event.KindParticipantRoleChanged:
		targets = append(targets,
			channel.Conversation(s.ConversationID),
			channel.UserConversations(s.AffectedUserID),
		)

	case event.KindProjectUpdated:
		targets = append(targets, channel.Project(s.ProjectID), channel.UserProjects(s.OwnerID))
		for _, uid := range s.MemberIDs {
			targets = append(targets, channel.UserProjects(uid))
		}

	case event.KindProjectMemberAdded, event.KindProjectMemberRemoved:
		targets = append(targets,
			channel.Project(s.ProjectID),
			channel.UserProjects(s.AffectedUserID),
		)

	case event.KindTaskUpdated, event.KindListUpdated, event.KindLabelUpdated:
		targets = append(targets, channel.Project(s.ProjectID))

	case event.KindCommentCreated, event.KindCommentUpdated, event.KindCommentDeleted, event.KindCommentReaction:
		targets = append(targets, channel.TaskComments(s.ProjectID, s.TaskID))

	case event.KindAttachmentCreated, event.KindAttachmentDeleted:
		targets = append(targets, channel.TaskAttachments(s.ProjectID, s.TaskID))

	default:
		return nil, fmt.Errorf("%w: %s", event.ErrUnknownKind, m.Kind)
	}

	out := make([]channel.Channel, 0, len(targets))
	for _, ch := range targets {
		if !ch.Valid() {
			return nil, ErrIncompleteScope
		}
		if !slices.Contains(out, ch) {
			out = append(out, ch)
		}
	}
	return out, nil
}
