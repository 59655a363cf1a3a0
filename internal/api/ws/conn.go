package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/event"
	"github.com/gosuda/beacon/internal/fanout"
	"github.com/gosuda/beacon/internal/wire"
)

// outbound is one item for the writer. join and leave update the set of
// channels the writer forwards; join takes effect just before frame is sent
// so no event overtakes its subscription_succeeded.
type outbound struct {
	frame *wire.Frame
	join  string
	leave string
}

type connection struct {
	hub      *Hub
	conn     *websocket.Conn
	feed     fanout.Feed
	userID   int64
	socketID string

	// delivering is owned by the writer. subscribed is written by the reader
	// and by the writer when access is revoked.
	mu         sync.Mutex
	subscribed map[string]channel.Channel
	delivering map[string]struct{}

	send   chan outbound
	typing *rate.Limiter
}

func newConnection(h *Hub, conn *websocket.Conn, feed fanout.Feed, userID int64, socketID string) *connection {
	return &connection{
		hub:        h,
		conn:       conn,
		feed:       feed,
		userID:     userID,
		socketID:   socketID,
		subscribed: make(map[string]channel.Channel),
		delivering: make(map[string]struct{}),
		send:       make(chan outbound, h.cfg.SendBuffer),
		typing:     rate.NewLimiter(rate.Limit(h.cfg.TypingRate), h.cfg.TypingBurst),
	}
}

func (c *connection) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	data, _ := json.Marshal(wire.ConnectionEstablished{SocketID: c.socketID})
	if err := c.write(ctx, wire.Frame{Event: wire.EventConnectionEstablished, Data: data}); err != nil {
		log.Debug().Err(err).Msg("websocket write")
		return
	}

	go func() {
		defer cancel()
		c.readLoop(ctx)
	}()

	c.writeLoop(ctx)
}

func (c *connection) write(ctx context.Context, f wire.Frame) error {
	wctx, cancel := context.WithTimeout(ctx, c.hub.cfg.WriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, c.conn, f)
}

func (c *connection) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.Close(websocket.StatusNormalClosure, "connection closed")
			return

		case out := <-c.send:
			if out.leave != "" {
				delete(c.delivering, out.leave)
			}
			if out.join != "" {
				c.delivering[out.join] = struct{}{}
			}
			if out.frame == nil {
				continue
			}
			if err := c.write(ctx, *out.frame); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}

		case msg, ok := <-c.feed.Messages():
			if !ok {
				_ = c.conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			env, err := wire.DecodeEnvelope(msg)
			if err != nil {
				log.Warn().Err(err).Msg("websocket: dropping undecodable envelope")
				continue
			}
			if env.ExcludeSocket == c.socketID {
				continue
			}
			if _, ok := c.delivering[env.Channel]; !ok {
				continue
			}
			if err := c.write(ctx, env.Frame()); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
			if err := c.recheck(ctx, env); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}

// removal is the part of a removal payload that names who lost access.
type removal struct {
	UserID         int64 `json:"user_id"`
	ConversationID int64 `json:"conversation_id"`
	ProjectID      int64 `json:"project_id"`
}

// recheck runs after an event removing this connection's user from a
// conversation or project. Channels of that resource are authorized again,
// and the ones now refused are left and answered with subscription_error.
func (c *connection) recheck(ctx context.Context, env wire.Envelope) error {
	conversation := env.Event == event.KindParticipantRemoved.Name()
	if !conversation && env.Event != event.KindProjectMemberRemoved.Name() {
		return nil
	}
	var r removal
	if err := json.Unmarshal(env.Data, &r); err != nil || r.UserID != c.userID {
		return nil
	}

	var affected []channel.Channel
	c.mu.Lock()
	for _, ch := range c.subscribed {
		if (conversation && r.ConversationID != 0 && ch.ConversationID() == r.ConversationID) ||
			(!conversation && r.ProjectID != 0 && ch.ProjectID() == r.ProjectID) {
			affected = append(affected, ch)
		}
	}
	c.mu.Unlock()

	for _, ch := range affected {
		allowed, err := c.hub.authorizer.Authorize(ctx, c.userID, ch)
		if err != nil {
			log.Error().Err(err).Int64("user_id", c.userID).Str("channel", ch.Name()).Msg("websocket: reauthorize")
		}
		if allowed {
			continue
		}

		name := ch.Name()
		c.mu.Lock()
		delete(c.subscribed, name)
		c.mu.Unlock()
		delete(c.delivering, name)
		if err := c.feed.Leave(ctx, name); err != nil {
			log.Warn().Err(err).Str("channel", name).Msg("websocket: leave")
		}
		if err := c.write(ctx, wire.Control(wire.EventSubscriptionError, name)); err != nil {
			return err
		}
	}
	return nil
}

func (c *connection) lookup(name string) (channel.Channel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.subscribed[name]
	return ch, ok
}

func (c *connection) enqueue(ctx context.Context, out outbound) {
	select {
	case c.send <- out:
	case <-ctx.Done():
	}
}

func (c *connection) reply(ctx context.Context, evt, ch string) {
	f := wire.Control(evt, ch)
	c.enqueue(ctx, outbound{frame: &f})
}

func (c *connection) readLoop(ctx context.Context) {
	for {
		_, b, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.Debug().Err(err).Str("socket_id", c.socketID).Msg("websocket read")
			}
			return
		}

		var f wire.Frame
		if err := json.Unmarshal(b, &f); err != nil || f.Event == "" {
			c.reply(ctx, wire.EventError, "")
			continue
		}

		switch f.Event {
		case wire.EventSubscribe:
			c.subscribe(ctx, f.Channel)
		case wire.EventUnsubscribe:
			c.unsubscribe(ctx, f.Channel)
		case wire.EventPing:
			c.reply(ctx, wire.EventPong, "")
		case wire.EventClientTyping:
			c.whisperTyping(ctx, f)
		default:
			c.reply(ctx, wire.EventError, f.Channel)
		}
	}
}

// subscribe authorizes and joins a channel. Any failure is reported as a
// bare subscription_error so clients learn nothing about the channel.
func (c *connection) subscribe(ctx context.Context, name string) {
	if _, ok := c.lookup(name); ok {
		c.reply(ctx, wire.EventSubscriptionSucceeded, name)
		return
	}

	ch, err := channel.Parse(name)
	if err != nil {
		c.reply(ctx, wire.EventSubscriptionError, name)
		return
	}

	allowed, err := c.hub.authorizer.Authorize(ctx, c.userID, ch)
	if err != nil {
		log.Error().Err(err).Int64("user_id", c.userID).Str("channel", name).Msg("websocket: authorize")
	}
	if !allowed {
		c.reply(ctx, wire.EventSubscriptionError, name)
		return
	}

	if err := c.feed.Join(ctx, name); err != nil {
		log.Error().Err(err).Str("channel", name).Msg("websocket: join")
		c.reply(ctx, wire.EventSubscriptionError, name)
		return
	}

	c.mu.Lock()
	c.subscribed[name] = ch
	c.mu.Unlock()
	f := wire.Control(wire.EventSubscriptionSucceeded, name)
	c.enqueue(ctx, outbound{frame: &f, join: name})
}

func (c *connection) unsubscribe(ctx context.Context, name string) {
	c.mu.Lock()
	_, ok := c.subscribed[name]
	delete(c.subscribed, name)
	c.mu.Unlock()
	if !ok {
		return
	}

	if err := c.feed.Leave(ctx, name); err != nil {
		log.Warn().Err(err).Str("channel", name).Msg("websocket: leave")
	}
	c.enqueue(ctx, outbound{leave: name})
}

// whisperTyping relays a typing indicator to the other subscribers of a
// conversation. The payload is built from the authenticated user, never from
// client data beyond the typing flag.
func (c *connection) whisperTyping(ctx context.Context, f wire.Frame) {
	ch, ok := c.lookup(f.Channel)
	if !ok || ch.Kind() != channel.KindConversation {
		c.reply(ctx, wire.EventError, f.Channel)
		return
	}
	if !c.typing.Allow() {
		return
	}

	whisper := wire.TypingWhisper{Typing: true}
	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &whisper); err != nil {
			c.reply(ctx, wire.EventError, f.Channel)
			return
		}
	}

	user, err := c.hub.users.GetUser(ctx, c.userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", c.userID).Msg("websocket: typing user lookup")
		return
	}

	c.hub.broadcaster.Broadcast(ctx, fanout.Mutation{
		Kind:  event.KindTyping,
		Actor: fanout.Actor{UserID: c.userID, SocketID: c.socketID},
		Source: event.TypingSnapshot{
			ConversationID: ch.ConversationID(),
			User:           user,
			Typing:         whisper.Typing,
			At:             c.hub.now(),
		},
		Scope: fanout.Scope{ConversationID: ch.ConversationID()},
	})
}
