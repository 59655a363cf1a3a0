package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/wire"
)

// Transport sends frames to the server.
type Transport interface {
	Send(ctx context.Context, f wire.Frame) error
}

type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateSubscribed
	StateUnsubscribing
)

func (s State) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateUnsubscribing:
		return "unsubscribing"
	default:
		return "idle"
	}
}

// Manager owns the subscriptions of one user over one (re)connecting
// transport. It is safe for concurrent use.
type Manager struct {
	userID int64
	window int

	mu        sync.Mutex
	transport Transport
	socketID  string
	subs      map[string]*Subscription
}

type Option func(*Manager)

// WithDedupWindow sets how many recent event keys each subscription keeps.
func WithDedupWindow(n int) Option {
	return func(m *Manager) { m.window = n }
}

// NewManager returns a manager for userID. Events whose actor is userID are
// dropped, since the user's own changes are applied locally.
func NewManager(userID int64, opts ...Option) *Manager {
	m := &Manager{
		userID: userID,
		window: DefaultDedupWindow,
		subs:   make(map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SocketID returns the id the server assigned to the current connection,
// for the host application to exclude from its broadcasts.
func (m *Manager) SocketID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.socketID
}

// Attach makes t the transport for subscribe and unsubscribe frames.
// Subscriptions are (re)sent when the server confirms the connection.
func (m *Manager) Attach(t Transport) {
	m.mu.Lock()
	m.transport = t
	m.mu.Unlock()
}

// Detach forgets t if it is the current transport. Live subscriptions fall
// back to Subscribing until the next connection confirms them again.
func (m *Manager) Detach(t Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport != t {
		return
	}
	m.transport = nil
	m.socketID = ""
	for _, s := range m.subs {
		if s.state == StateSubscribed {
			s.state = StateSubscribing
		}
	}
}

// Subscribe starts a subscription to ch. The subscription delivers nothing
// until the server confirms it; a refusal silently returns it to Idle.
func (m *Manager) Subscribe(ctx context.Context, ch channel.Channel, h Handler) (*Subscription, error) {
	if !ch.Valid() {
		return nil, fmt.Errorf("client.Manager.Subscribe: %w", channel.ErrMalformed)
	}

	m.mu.Lock()
	name := ch.Name()
	if _, ok := m.subs[name]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("client.Manager.Subscribe %s: %w", name, ErrAlreadySubscribed)
	}
	s := &Subscription{
		m:       m,
		ch:      ch,
		handler: h,
		state:   StateSubscribing,
		seen:    newDedupWindow(m.window),
	}
	m.subs[name] = s
	t := m.transport
	m.mu.Unlock()

	if t != nil {
		if err := t.Send(ctx, wire.Control(wire.EventSubscribe, name)); err != nil && !errors.Is(err, ErrNotConnected) {
			log.Debug().Err(err).Str("channel", name).Msg("client: subscribe deferred to next connection")
		}
	}
	return s, nil
}

// HandleFrame applies one server frame. It is called by the transport's
// read loop.
func (m *Manager) HandleFrame(ctx context.Context, f wire.Frame) {
	switch f.Event {
	case wire.EventConnectionEstablished:
		m.connected(ctx, f)

	case wire.EventSubscriptionSucceeded:
		m.mu.Lock()
		if s, ok := m.subs[f.Channel]; ok && s.state == StateSubscribing {
			s.state = StateSubscribed
		}
		m.mu.Unlock()

	case wire.EventSubscriptionError:
		// Also sent for a confirmed subscription when access is revoked.
		m.mu.Lock()
		if s, ok := m.subs[f.Channel]; ok && (s.state == StateSubscribing || s.state == StateSubscribed) {
			s.state = StateIdle
			delete(m.subs, f.Channel)
		}
		m.mu.Unlock()

	case wire.EventPong, wire.EventError:

	default:
		m.deliver(f)
	}
}

func (m *Manager) connected(ctx context.Context, f wire.Frame) {
	var est wire.ConnectionEstablished
	if err := json.Unmarshal(f.Data, &est); err != nil {
		log.Warn().Err(err).Msg("client: malformed connection_established")
	}

	m.mu.Lock()
	m.socketID = est.SocketID
	t := m.transport
	names := make([]string, 0, len(m.subs))
	for name, s := range m.subs {
		if s.state == StateSubscribing || s.state == StateSubscribed {
			s.state = StateSubscribing
			names = append(names, name)
		}
	}
	m.mu.Unlock()

	if t == nil {
		return
	}
	for _, name := range names {
		if err := t.Send(ctx, wire.Control(wire.EventSubscribe, name)); err != nil {
			log.Debug().Err(err).Str("channel", name).Msg("client: resubscribe")
		}
	}
}

func (m *Manager) deliver(f wire.Frame) {
	actorID, key, keyed := inspect(f.Event, f.Data)

	m.mu.Lock()
	s, ok := m.subs[f.Channel]
	if !ok || s.state != StateSubscribed {
		m.mu.Unlock()
		return
	}
	if m.userID > 0 && actorID == m.userID {
		m.mu.Unlock()
		return
	}
	if keyed && s.seen.seen(key) {
		m.mu.Unlock()
		return
	}
	h := s.handler
	m.mu.Unlock()

	h.Handle(Event{Name: f.Event, Channel: f.Channel, Data: f.Data})
}

// Subscription is one channel subscription. Close it when the view that
// opened it goes away.
type Subscription struct {
	m       *Manager
	ch      channel.Channel
	handler Handler

	// Guarded by m.mu.
	state State
	seen  *dedupWindow
}

func (s *Subscription) Channel() channel.Channel { return s.ch }

func (s *Subscription) State() State {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.state
}

// Close unsubscribes. It is idempotent, and succeeds when the transport was
// never connected. Events arriving after Close are dropped.
func (s *Subscription) Close(ctx context.Context) error {
	m := s.m
	name := s.ch.Name()

	m.mu.Lock()
	if s.state == StateIdle || s.state == StateUnsubscribing {
		m.mu.Unlock()
		return nil
	}
	s.state = StateUnsubscribing
	if m.subs[name] == s {
		delete(m.subs, name)
	}
	t := m.transport
	m.mu.Unlock()

	var err error
	if t != nil {
		err = t.Send(ctx, wire.Control(wire.EventUnsubscribe, name))
	}

	m.mu.Lock()
	s.state = StateIdle
	m.mu.Unlock()

	if err != nil && !errors.Is(err, ErrNotConnected) {
		return fmt.Errorf("client.Subscription.Close %s: %w", name, err)
	}
	return nil
}
