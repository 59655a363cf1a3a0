package v1

import (
	"context"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/fanout"
	"github.com/gosuda/beacon/internal/ingest"
)

// EventResolver turns an ingest request into a mutation built from
// committed state. *ingest.Resolver satisfies this interface.
type EventResolver interface {
	Resolve(ctx context.Context, req ingest.Request) (fanout.Mutation, error)
}

// Broadcaster delivers a mutation and never fails the caller.
// *fanout.Broadcaster satisfies this interface.
type Broadcaster interface {
	Broadcast(ctx context.Context, m fanout.Mutation) fanout.Delivery
}

// ChannelAuthorizer abstracts subscription checks for handler testing.
// *authz.Authorizer satisfies this interface.
type ChannelAuthorizer interface {
	Authorize(ctx context.Context, userID int64, ch channel.Channel) (bool, error)
}
