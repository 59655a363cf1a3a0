package fanout

import "context"

// Broker moves envelopes between server instances. Every instance publishes
// through it and opens one Feed per client connection.
type Broker interface {
	Publisher
	Open(ctx context.Context) (Feed, error)
}

// Feed is a dynamic subscription set. Messages yields raw envelopes for the
// joined channels and is closed after Close.
type Feed interface {
	Join(ctx context.Context, channel string) error
	Leave(ctx context.Context, channel string) error
	Messages() <-chan []byte
	Close() error
}
