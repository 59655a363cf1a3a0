// Package memory is a single-process broker for development and tests. It
// has the same delivery semantics as the Redis broker: fire-and-forget, no
// history, per-feed backlog with drop on overflow.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/beacon/internal/fanout"
)

const feedBuffer = 64

// ErrClosed is returned by operations on a closed feed.
var ErrClosed = errors.New("memory: feed closed") //nolint:gochecknoglobals // sentinel error

type Broker struct {
	mu    sync.RWMutex
	feeds map[*Feed]struct{}
}

var _ fanout.Broker = (*Broker)(nil)

// New returns an in-process Broker.
func New() *Broker {
	return &Broker{feeds: make(map[*Feed]struct{})}
}

func (b *Broker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for f := range b.feeds {
		f.deliver(channel, payload)
	}
	return nil
}

// Subscribers returns how many open feeds have joined channel.
func (b *Broker) Subscribers(_ context.Context, channel string) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var n int64
	for f := range b.feeds {
		if f.joined(channel) {
			n++
		}
	}
	return n, nil
}

func (b *Broker) Ping(context.Context) error { return nil }

func (b *Broker) Open(context.Context) (fanout.Feed, error) {
	f := &Feed{
		broker:   b,
		channels: make(map[string]struct{}),
		out:      make(chan []byte, feedBuffer),
	}

	b.mu.Lock()
	b.feeds[f] = struct{}{}
	b.mu.Unlock()
	return f, nil
}

func (b *Broker) remove(f *Feed) {
	b.mu.Lock()
	delete(b.feeds, f)
	b.mu.Unlock()
}

// Feed is one connection's subscription set.
type Feed struct {
	broker *Broker

	mu       sync.Mutex
	channels map[string]struct{}
	out      chan []byte
	closed   bool
}

func (f *Feed) deliver(channel string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	if _, ok := f.channels[channel]; !ok {
		return
	}

	msg := make([]byte, len(payload))
	copy(msg, payload)
	select {
	case f.out <- msg:
	default:
		log.Warn().Str("channel", channel).Msg("memory.Feed: backlog full, dropping message")
	}
}

func (f *Feed) joined(channel string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[channel]
	return ok
}

func (f *Feed) Join(_ context.Context, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("memory.Feed.Join %s: %w", channel, ErrClosed)
	}
	f.channels[channel] = struct{}{}
	return nil
}

func (f *Feed) Leave(_ context.Context, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("memory.Feed.Leave %s: %w", channel, ErrClosed)
	}
	delete(f.channels, channel)
	return nil
}

func (f *Feed) Messages() <-chan []byte { return f.out }

func (f *Feed) Close() error {
	f.broker.remove(f)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.out)
	}
	return nil
}
