package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gosuda/beacon/internal/wire"
)

// Conn is a WebSocket connection to a Beacon server. It implements Transport
// and feeds every received frame to its Manager.
type Conn struct {
	ws  *websocket.Conn
	mgr *Manager

	done      chan struct{}
	closing   atomic.Bool
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial connects to url (ws:// or wss://, e.g. "wss://rt.example.com/ws")
// with a bearer token, attaches the connection to m and starts reading.
// Reconnecting is the caller's concern: dial again with the same Manager.
func Dial(ctx context.Context, url, token string, m *Manager) (*Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("client.Dial: %w", err)
	}

	c := &Conn{ws: ws, mgr: m, done: make(chan struct{})}
	m.Attach(c)

	go c.readLoop(context.WithoutCancel(ctx))
	return c, nil
}

func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.done)
	defer c.mgr.Detach(c)

	for {
		var f wire.Frame
		if err := wsjson.Read(ctx, c.ws, &f); err != nil {
			if !c.closing.Load() && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
				log.Debug().Err(err).Msg("client: connection lost")
			}
			return
		}
		c.mgr.HandleFrame(ctx, f)
	}
}

// Send writes one frame. It returns ErrNotConnected once the connection has
// ended.
func (c *Conn) Send(ctx context.Context, f wire.Frame) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	if err := wsjson.Write(ctx, c.ws, f); err != nil {
		if errors.Is(err, net.ErrClosed) || websocket.CloseStatus(err) != -1 {
			return ErrNotConnected
		}
		return fmt.Errorf("client.Conn.Send: %w", err)
	}
	return nil
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended, or nil after a normal close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close ends the connection and waits for the read loop to stop.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		err = c.ws.Close(websocket.StatusNormalClosure, "")
	})
	<-c.done
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("client.Conn.Close: %w", err)
	}
	return nil
}
