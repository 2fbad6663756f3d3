// Package signal is the websocket client that feeds signalling events
// into the orchestrator.
package signal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Sink receives decoded signalling events. *orch.Orchestrator is one.
type Sink interface {
	OnAttendees(key domain.SessionKey, attendees []domain.Attendee)
	OnAttendeeJoined(key domain.SessionKey, a domain.Attendee)
	OnAttendeeLeft(key domain.SessionKey, id string)
	OnIceServers(key domain.SessionKey, servers []webrtc.ICEServer)
	OnHangup(key domain.SessionKey) bool
	Join(ctx context.Context, key domain.SessionKey) (webrtc.Configuration, bool)
}

type Client struct {
	URL  string
	Sink Sink

	Dialer     *websocket.Dialer
	PingPeriod time.Duration
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

func NewClient(url string, sink Sink) *Client {
	return &Client{
		URL:        url,
		Sink:       sink,
		Dialer:     websocket.DefaultDialer,
		PingPeriod: 30 * time.Second,
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Run keeps a connection open until ctx is done, redialing with
// exponential backoff. It returns ctx.Err().
func (cl *Client) Run(ctx context.Context) error {
	backoff := cl.MinBackoff
	for {
		connected, err := cl.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = cl.MinBackoff
		}
		log.Warn().Err(err).Str("module", "signal").Dur("retry_in", backoff).Msg("signalling disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, cl.MaxBackoff)
	}
}

// runOnce serves one connection. connected reports whether the dial
// succeeded.
func (cl *Client) runOnce(ctx context.Context) (connected bool, err error) {
	ws, _, err := cl.Dialer.DialContext(ctx, cl.URL, nil)
	if err != nil {
		return false, err
	}
	log.Info().Str("module", "signal").Str("url", cl.URL).Msg("signalling connected")

	conn := newConn(ws)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, conn.Close)
	defer stop()

	go cl.writePump(ctx, conn)
	err = cl.readPump(ctx, conn)
	cancel()
	conn.joins.Wait()
	return true, err
}

type conn struct {
	ws   *websocket.Conn
	send chan []byte

	// joins tracks Join waits started from this connection.
	joins sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws, send: make(chan []byte, 32)}
}

func (c *conn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
}
