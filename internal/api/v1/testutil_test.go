package v1_test

import (
	"context"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/fanout"
	"github.com/gosuda/beacon/internal/ingest"
	"github.com/gosuda/beacon/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

func userCtx(userID int64) context.Context {
	return middleware.WithUserID(context.Background(), userID)
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockResolver struct {
	resolveFunc func(ctx context.Context, req ingest.Request) (fanout.Mutation, error)
}

func (m *mockResolver) Resolve(ctx context.Context, req ingest.Request) (fanout.Mutation, error) {
	return m.resolveFunc(ctx, req)
}

type mockBroadcaster struct {
	broadcastFunc func(ctx context.Context, m fanout.Mutation) fanout.Delivery
	calls         int
}

func (m *mockBroadcaster) Broadcast(ctx context.Context, mu fanout.Mutation) fanout.Delivery {
	m.calls++
	return m.broadcastFunc(ctx, mu)
}

type mockAuthorizer struct {
	authorizeFunc func(ctx context.Context, userID int64, ch channel.Channel) (bool, error)
}

func (m *mockAuthorizer) Authorize(ctx context.Context, userID int64, ch channel.Channel) (bool, error) {
	return m.authorizeFunc(ctx, userID, ch)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, []byte) error {
	return context.DeadlineExceeded
}
