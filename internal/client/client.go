// Package client is the subscriber side of Beacon: it tracks per-channel
// subscriptions over one connection, drops duplicate and self-originated
// deliveries, and reconciles events into local views.
package client

import (
	"encoding/json"
	"errors"
)

var (
	// ErrNotConnected is returned by a Transport that has no live connection.
	ErrNotConnected = errors.New("client: not connected") //nolint:gochecknoglobals // sentinel error

	// ErrAlreadySubscribed is returned when a channel already has a live subscription.
	ErrAlreadySubscribed = errors.New("client: channel already subscribed") //nolint:gochecknoglobals // sentinel error
)

// Event is one domain event delivered to a subscription.
type Event struct {
	Name    string
	Channel string
	Data    json.RawMessage
}

// Handler consumes events for a subscription. Handlers are called from the
// transport's read goroutine, one event at a time.
type Handler interface {
	Handle(e Event)
}

type HandlerFunc func(e Event)

func (f HandlerFunc) Handle(e Event) { f(e) }
