package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/beacon/internal/api/ws"
	"github.com/gosuda/beacon/internal/auth"
	"github.com/gosuda/beacon/internal/authz"
	"github.com/gosuda/beacon/internal/domain"
	"github.com/gosuda/beacon/internal/fanout"
	"github.com/gosuda/beacon/internal/server/middleware"
	"github.com/gosuda/beacon/internal/store/memory"
	"github.com/gosuda/beacon/internal/wire"
)

const testJWTSecret = "test-secret-key-very-long-and-secure"

type harness struct {
	server *httptest.Server
	broker *memory.Broker
	hub    *ws.Hub
	state  *memory.State
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	now := time.Now()
	state := memory.NewState()
	state.PutUser(domain.User{ID: 1, Name: "Alice", CreatedAt: now, UpdatedAt: now})
	state.PutUser(domain.User{ID: 2, Name: "Bob", CreatedAt: now, UpdatedAt: now})
	state.PutConversation(domain.Conversation{ID: 5, Type: domain.ConversationGroup, CreatedAt: now, UpdatedAt: now})
	state.PutParticipant(domain.Participant{ConversationID: 5, UserID: 1, Role: "owner", JoinedAt: now, UpdatedAt: now})
	state.PutParticipant(domain.Participant{ConversationID: 5, UserID: 2, Role: "member", JoinedAt: now, UpdatedAt: now})

	broker := memory.New()
	hub := ws.NewHub(
		broker,
		authz.New(state, state, state),
		state,
		fanout.NewBroadcaster(fanout.NewDispatcher(broker), time.Second),
		ws.Config{TypingRate: 100, TypingBurst: 100},
	)

	srv := httptest.NewServer(middleware.Auth(auth.NewVerifier(testJWTSecret, "beacon"))(http.HandlerFunc(hub.ServeWS)))
	t.Cleanup(srv.Close)

	return &harness{server: srv, broker: broker, hub: hub, state: state}
}

type client struct {
	t        *testing.T
	conn     *websocket.Conn
	socketID string
}

func (h *harness) dial(t *testing.T, userID int64) *client {
	t.Helper()

	token, err := auth.IssueAccessToken(testJWTSecret, "beacon", userID, time.Minute)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.Dial(t.Context(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })

	c := &client{t: t, conn: conn}
	f := c.read()
	require.Equal(t, wire.EventConnectionEstablished, f.Event)

	var est wire.ConnectionEstablished
	require.NoError(t, json.Unmarshal(f.Data, &est))
	require.NotEmpty(t, est.SocketID)
	c.socketID = est.SocketID
	return c
}

func (c *client) send(f wire.Frame) {
	c.t.Helper()
	require.NoError(c.t, wsjson.Write(c.t.Context(), c.conn, f))
}

func (c *client) read() wire.Frame {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(c.t.Context(), 2*time.Second)
	defer cancel()

	var f wire.Frame
	require.NoError(c.t, wsjson.Read(ctx, c.conn, &f))
	return f
}

func (c *client) subscribe(name string) wire.Frame {
	c.t.Helper()
	c.send(wire.Control(wire.EventSubscribe, name))
	return c.read()
}

func (h *harness) publish(t *testing.T, env wire.Envelope) {
	t.Helper()
	b, err := wire.EncodeEnvelope(env)
	require.NoError(t, err)
	require.NoError(t, h.broker.Publish(t.Context(), env.Channel, b))
}

func TestHub_RejectsUnauthenticated(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/"

	_, resp, err := websocket.Dial(t.Context(), url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_SubscribeAndDeliver(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	c := h.dial(t, 1)

	f := c.subscribe("private-conversation.5")
	assert.Equal(t, wire.EventSubscriptionSucceeded, f.Event)
	assert.Equal(t, "private-conversation.5", f.Channel)

	h.publish(t, wire.Envelope{Channel: "private-conversation.5", Event: "message.sent", Data: []byte(`{"id":100}`)})

	f = c.read()
	assert.Equal(t, "message.sent", f.Event)
	assert.Equal(t, "private-conversation.5", f.Channel)
	assert.JSONEq(t, `{"id":100}`, string(f.Data))
	assert.Equal(t, int64(1), h.hub.Connections())
}

func TestHub_SkipsExcludedSocket(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	c := h.dial(t, 1)
	require.Equal(t, wire.EventSubscriptionSucceeded, c.subscribe("private-conversation.5").Event)

	h.publish(t, wire.Envelope{Channel: "private-conversation.5", Event: "message.sent", Data: []byte(`{"id":1}`), ExcludeSocket: c.socketID})
	h.publish(t, wire.Envelope{Channel: "private-conversation.5", Event: "message.sent", Data: []byte(`{"id":2}`), ExcludeSocket: "someone-else"})

	f := c.read()
	assert.JSONEq(t, `{"id":2}`, string(f.Data))
}

func TestHub_SubscriptionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		channel string
	}{
		{name: "not a participant", channel: "private-conversation.6"},
		{name: "someone else's personal channel", channel: "private-user.2.projects"},
		{name: "malformed", channel: "presence-conversation.5"},
		{name: "empty", channel: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newHarness(t).dial(t, 1)
			f := c.subscribe(tt.channel)
			assert.Equal(t, wire.EventSubscriptionError, f.Event)
			assert.Empty(t, f.Data)
		})
	}
}

func TestHub_PingPong(t *testing.T) {
	t.Parallel()

	c := newHarness(t).dial(t, 1)
	c.send(wire.Control(wire.EventPing, ""))
	assert.Equal(t, wire.EventPong, c.read().Event)
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	c := h.dial(t, 1)
	require.Equal(t, wire.EventSubscriptionSucceeded, c.subscribe("private-user.1.projects").Event)

	c.send(wire.Control(wire.EventUnsubscribe, "private-user.1.projects"))
	// The pong proves the unsubscribe was processed.
	c.send(wire.Control(wire.EventPing, ""))
	require.Equal(t, wire.EventPong, c.read().Event)

	h.publish(t, wire.Envelope{Channel: "private-user.1.projects", Event: "project.updated", Data: []byte(`{}`)})
	c.send(wire.Control(wire.EventPing, ""))
	assert.Equal(t, wire.EventPong, c.read().Event)
}

func TestHub_TypingWhisper(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.dial(t, 1)
	bob := h.dial(t, 2)
	require.Equal(t, wire.EventSubscriptionSucceeded, alice.subscribe("private-conversation.5").Event)
	require.Equal(t, wire.EventSubscriptionSucceeded, bob.subscribe("private-conversation.5").Event)

	alice.send(wire.Frame{Event: wire.EventClientTyping, Channel: "private-conversation.5", Data: json.RawMessage(`{"typing":true}`)})

	f := bob.read()
	assert.Equal(t, "typing", f.Event)

	var data map[string]any
	require.NoError(t, json.Unmarshal(f.Data, &data))
	assert.Equal(t, true, data["typing"])
	assert.InDelta(t, 1, data["actor_id"], 0)
	user, ok := data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alice", user["name"])

	// Alice does not see her own whisper.
	alice.send(wire.Control(wire.EventPing, ""))
	assert.Equal(t, wire.EventPong, alice.read().Event)
}

func TestHub_TypingRequiresSubscription(t *testing.T) {
	t.Parallel()

	c := newHarness(t).dial(t, 1)
	c.send(wire.Frame{Event: wire.EventClientTyping, Channel: "private-conversation.5"})
	assert.Equal(t, wire.EventError, c.read().Event)
}

func TestHub_MalformedFrame(t *testing.T) {
	t.Parallel()

	c := newHarness(t).dial(t, 1)
	require.NoError(t, c.conn.Write(t.Context(), websocket.MessageText, []byte("{not json")))
	assert.Equal(t, wire.EventError, c.read().Event)

	c.send(wire.Control(wire.EventPing, ""))
	assert.Equal(t, wire.EventPong, c.read().Event)
}

func TestHub_RemovalRevokesSubscription(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	alice := h.dial(t, 1)
	bob := h.dial(t, 2)
	const conv = "private-conversation.5"
	require.Equal(t, wire.EventSubscriptionSucceeded, alice.subscribe(conv).Event)
	require.Equal(t, wire.EventSubscriptionSucceeded, bob.subscribe(conv).Event)

	left := time.Now()
	h.state.PutParticipant(domain.Participant{ConversationID: 5, UserID: 2, Role: "member", JoinedAt: left, UpdatedAt: left, LeftAt: &left})
	h.publish(t, wire.Envelope{
		Channel: conv,
		Event:   "participant.removed",
		Data:    []byte(`{"conversation_id":5,"user_id":2,"left_at":"2026-03-14T09:30:00Z","actor_id":1}`),
	})

	// Bob sees his own removal, then loses the channel.
	assert.Equal(t, "participant.removed", bob.read().Event)
	assert.Equal(t, wire.Control(wire.EventSubscriptionError, conv), bob.read())
	assert.Equal(t, "participant.removed", alice.read().Event)

	h.publish(t, wire.Envelope{Channel: conv, Event: "message.sent", Data: []byte(`{"id":1,"actor_id":1}`)})
	assert.Equal(t, "message.sent", alice.read().Event, "other participants keep the channel")

	bob.send(wire.Control(wire.EventPing, ""))
	assert.Equal(t, wire.EventPong, bob.read().Event, "nothing more arrives on the revoked channel")

	// Resubscribing is refused now.
	assert.Equal(t, wire.EventSubscriptionError, bob.subscribe(conv).Event)
}
