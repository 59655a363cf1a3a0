package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/beacon/internal/store/memory"
)

func TestBroker_DeliversToJoinedFeeds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := memory.New()

	a, err := b.Open(ctx)
	require.NoError(t, err)
	defer a.Close()
	other, err := b.Open(ctx)
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, a.Join(ctx, "private-project.9"))
	require.NoError(t, other.Join(ctx, "private-conversation.5"))

	require.NoError(t, b.Publish(ctx, "private-project.9", []byte("one")))

	assert.Equal(t, []byte("one"), <-a.Messages())
	assert.Empty(t, other.Messages())

	n, err := b.Subscribers(ctx, "private-project.9")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBroker_Leave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := memory.New()

	f, err := b.Open(ctx)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Join(ctx, "private-project.9"))
	require.NoError(t, f.Leave(ctx, "private-project.9"))
	require.NoError(t, b.Publish(ctx, "private-project.9", []byte("one")))

	assert.Empty(t, f.Messages())
}

func TestBroker_PayloadIsCopied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := memory.New()

	f, err := b.Open(ctx)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Join(ctx, "private-project.9"))

	payload := []byte("abc")
	require.NoError(t, b.Publish(ctx, "private-project.9", payload))
	payload[0] = 'x'

	assert.Equal(t, []byte("abc"), <-f.Messages())
}

func TestBroker_DropsOnFullBacklog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := memory.New()

	f, err := b.Open(ctx)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Join(ctx, "private-project.9"))

	for range 100 {
		require.NoError(t, b.Publish(ctx, "private-project.9", []byte("x")))
	}
	assert.Len(t, f.Messages(), 64)
}

func TestFeed_Close(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := memory.New()

	f, err := b.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, f.Join(ctx, "private-project.9"))

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, ok := <-f.Messages()
	assert.False(t, ok)

	require.ErrorIs(t, f.Join(ctx, "private-project.9"), memory.ErrClosed)
	require.NoError(t, b.Publish(ctx, "private-project.9", []byte("late")))

	n, err := b.Subscribers(ctx, "private-project.9")
	require.NoError(t, err)
	assert.Zero(t, n)
}
