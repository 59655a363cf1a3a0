package fanout

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPublishTimeout bounds a single broadcast.
const DefaultPublishTimeout = 2 * time.Second

// Broadcaster is the call-site policy for broadcast-now delivery: the
// mutation has already committed, so failures are logged and never returned.
type Broadcaster struct {
	dispatcher *Dispatcher
	timeout    time.Duration
}

func NewBroadcaster(dispatcher *Dispatcher, timeout time.Duration) *Broadcaster {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Broadcaster{dispatcher: dispatcher, timeout: timeout}
}

// Broadcast dispatches m and returns whatever was planned, even on failure.
// The publish outlives a cancelled request context but not the timeout.
func (b *Broadcaster) Broadcast(ctx context.Context, m Mutation) Delivery {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	delivery, err := b.dispatcher.Dispatch(ctx, m)
	if err != nil {
		log.Error().Err(err).
			Str("event", m.Kind.String()).
			Int64("actor_id", m.Actor.UserID).
			Int("channels", len(delivery.Channels)).
			Msg("fanout.Broadcaster: broadcast failed")
		return delivery
	}

	log.Debug().
		Str("event", delivery.Event.Name).
		Strs("channels", delivery.ChannelNames()).
		Msg("fanout.Broadcaster: broadcast")
	return delivery
}
