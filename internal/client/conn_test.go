package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/beacon/internal/api/ws"
	"github.com/gosuda/beacon/internal/auth"
	"github.com/gosuda/beacon/internal/authz"
	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/client"
	"github.com/gosuda/beacon/internal/domain"
	"github.com/gosuda/beacon/internal/event"
	"github.com/gosuda/beacon/internal/fanout"
	"github.com/gosuda/beacon/internal/server/middleware"
	"github.com/gosuda/beacon/internal/store/memory"
	"github.com/gosuda/beacon/internal/wire"
)

const testJWTSecret = "test-secret-key-very-long-and-secure"

func startHub(t *testing.T) (url string, dispatcher *fanout.Dispatcher) {
	t.Helper()

	now := time.Now()
	state := memory.NewState()
	state.PutUser(domain.User{ID: 1, Name: "Alice", CreatedAt: now, UpdatedAt: now})
	state.PutProject(domain.Project{ID: 9, OwnerID: 1, Name: "Apollo", Status: domain.ProjectStatusActive, CreatedAt: now, UpdatedAt: now})

	broker := memory.New()
	dispatcher = fanout.NewDispatcher(broker)
	hub := ws.NewHub(broker, authz.New(state, state, state), state, fanout.NewBroadcaster(dispatcher, time.Second), ws.Config{})

	srv := httptest.NewServer(middleware.Auth(auth.NewVerifier(testJWTSecret, ""))(http.HandlerFunc(hub.ServeWS)))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), dispatcher
}

func TestDial_SubscribeAndReceive(t *testing.T) {
	t.Parallel()

	url, dispatcher := startHub(t)
	token, err := auth.IssueAccessToken(testJWTSecret, "beacon", 1, time.Minute)
	require.NoError(t, err)

	m := client.NewManager(1)
	conn, err := client.Dial(t.Context(), url, token, m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	board := client.NewBoardView(9)
	sub, err := m.Subscribe(t.Context(), board.Channel(), board)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sub.State() == client.StateSubscribed }, 2*time.Second, 10*time.Millisecond)
	assert.NotEmpty(t, m.SocketID())

	_, err = dispatcher.Dispatch(context.Background(), fanout.Mutation{
		Kind:  event.KindTaskUpdated,
		Actor: fanout.Actor{UserID: 2},
		Source: event.TaskSnapshot{
			Task:    &domain.Task{ID: 4, ProjectID: 9, ListID: 1, Title: "Ship"},
			Action:  event.ActionCreated,
			ActorID: 2,
		},
		Scope: fanout.Scope{ProjectID: 9},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(board.Tasks(1)) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Ship", board.Tasks(1)[0].Title)

	require.NoError(t, sub.Close(t.Context()))
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Err())

	_, err = m.Subscribe(t.Context(), channel.Conversation(5), client.HandlerFunc(func(client.Event) {}))
	require.NoError(t, err, "subscribing while disconnected is deferred")
}

func TestDial_SendAfterClose(t *testing.T) {
	t.Parallel()

	url, _ := startHub(t)
	token, err := auth.IssueAccessToken(testJWTSecret, "", 1, time.Minute)
	require.NoError(t, err)

	conn, err := client.Dial(t.Context(), url, token, client.NewManager(1))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	<-conn.Done()
	require.ErrorIs(t, conn.Send(t.Context(), wire.Control(wire.EventPing, "")), client.ErrNotConnected)
}

func TestDial_Unauthorized(t *testing.T) {
	t.Parallel()

	url, _ := startHub(t)
	_, err := client.Dial(t.Context(), url, "bad-token", client.NewManager(1))
	require.Error(t, err)
}
