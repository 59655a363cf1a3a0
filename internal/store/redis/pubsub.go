package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/beacon/internal/fanout"
)

// feedBuffer is the per-connection backlog before messages are dropped.
const feedBuffer = 64

type PubSub struct {
	client *redis.Client
}

var _ fanout.Broker = (*PubSub)(nil)

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

// Ping reports whether the broker is reachable.
func (ps *PubSub) Ping(ctx context.Context) error {
	if err := ps.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Ping: %w", err)
	}
	return nil
}

// Subscribers returns how many connections across all instances are
// subscribed to channel.
func (ps *PubSub) Subscribers(ctx context.Context, channel string) (int64, error) {
	counts, err := ps.client.PubSubNumSub(ctx, channel).Result()
	if err != nil {
		return 0, fmt.Errorf("redis.PubSub.Subscribers: %w", err)
	}
	return counts[channel], nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// Open starts an empty subscription for one client connection. Channels are
// added and removed with Join and Leave over the same Redis connection.
func (ps *PubSub) Open(ctx context.Context) (fanout.Feed, error) {
	sub := ps.client.Subscribe(ctx)

	f := &Feed{
		sub:  sub,
		out:  make(chan []byte, feedBuffer),
		done: make(chan struct{}),
	}
	go f.pump(sub.Channel())
	return f, nil
}

// Feed is a per-connection Redis subscription.
type Feed struct {
	sub       *redis.PubSub
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (f *Feed) pump(in <-chan *redis.Message) {
	defer close(f.out)
	for {
		select {
		case <-f.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case f.out <- []byte(msg.Payload):
			case <-f.done:
				return
			default:
				log.Warn().Str("channel", msg.Channel).Msg("redis.Feed: backlog full, dropping message")
			}
		}
	}
}

func (f *Feed) Join(ctx context.Context, channel string) error {
	if err := f.sub.Subscribe(ctx, channel); err != nil {
		return fmt.Errorf("redis.Feed.Join %s: %w", channel, err)
	}
	return nil
}

func (f *Feed) Leave(ctx context.Context, channel string) error {
	if err := f.sub.Unsubscribe(ctx, channel); err != nil {
		return fmt.Errorf("redis.Feed.Leave %s: %w", channel, err)
	}
	return nil
}

func (f *Feed) Messages() <-chan []byte { return f.out }

func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		if closeErr := f.sub.Close(); closeErr != nil {
			err = fmt.Errorf("redis.Feed.Close: %w", closeErr)
		}
	})
	return err
}
