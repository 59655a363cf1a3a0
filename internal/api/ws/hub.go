package ws

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/domain"
	"github.com/gosuda/beacon/internal/fanout"
	"github.com/gosuda/beacon/internal/server/middleware"
)

// readLimit bounds a single client frame. Clients only send control frames.
const readLimit = 8 << 10

// Authorizer decides channel subscriptions.
type Authorizer interface {
	Authorize(ctx context.Context, userID int64, ch channel.Channel) (bool, error)
}

// Config tunes per-connection behaviour.
type Config struct {
	TypingRate     float64
	TypingBurst    int
	SendBuffer     int
	WriteTimeout   time.Duration
	OriginPatterns []string
}

// Hub manages WebSocket connections. Each connection owns one broker feed
// that joins and leaves channels as the client subscribes.
type Hub struct {
	broker      fanout.Broker
	authorizer  Authorizer
	users       domain.UserReader
	broadcaster *fanout.Broadcaster
	cfg         Config
	now         func() time.Time

	active atomic.Int64
}

// NewHub creates a new WebSocket hub.
func NewHub(broker fanout.Broker, authorizer Authorizer, users domain.UserReader, broadcaster *fanout.Broadcaster, cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.TypingRate <= 0 {
		cfg.TypingRate = 1
	}
	if cfg.TypingBurst <= 0 {
		cfg.TypingBurst = 3
	}
	return &Hub{
		broker:      broker,
		authorizer:  authorizer,
		users:       users,
		broadcaster: broadcaster,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Connections returns the number of open client connections.
func (h *Hub) Connections() int64 {
	return h.active.Load()
}

// ServeWS upgrades an authenticated request and runs the connection until
// either side closes it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing user"}`, http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.cfg.OriginPatterns})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	ctx := r.Context()

	feed, err := h.broker.Open(ctx)
	if err != nil {
		log.Error().Err(err).Msg("websocket open feed")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer feed.Close()

	h.active.Add(1)
	defer h.active.Add(-1)

	c := newConnection(h, conn, feed, userID, uuid.NewString())
	log.Debug().Int64("user_id", userID).Str("socket_id", c.socketID).Msg("websocket connected")

	c.run(ctx)

	log.Debug().Int64("user_id", userID).Str("socket_id", c.socketID).Msg("websocket disconnected")
}
