package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradehub/logger"
)

const reconnectDelay = 5 * time.Second

// Transport is the connection the router listens on. Implementations
// own reconnection after a disconnect; connect failures surface either
// from Start or as an EventConnectError.
type Transport interface {
	Start(ctx context.Context) error
	Events() <-chan Event
	Emit(channel string, payload interface{}) error
	Stop()
}

// WSTransport speaks the hub's websocket protocol: JSON envelopes of
// {channel, data} in both directions, with the client identified by the
// query string of the connect URL.
type WSTransport struct {
	url    string
	events chan Event
	log    *logger.Log

	mu      sync.RWMutex
	conn    *websocket.Conn
	running bool

	ctx context.Context
	wg  sync.WaitGroup
}

// NewWSTransport builds a transport for the hub at rawURL, identifying
// this client by version and API key.
func NewWSTransport(rawURL, version, apiKey string) *WSTransport {
	query := url.Values{}
	query.Set("v", version)
	query.Set("type", "client")
	query.Set("key", apiKey)
	return &WSTransport{
		url:    rawURL + "?" + query.Encode(),
		events: make(chan Event, 64),
		log:    logger.GetLogger(),
	}
}

// Start dials the hub and begins the read loop. The initial dial is
// synchronous so a bad endpoint or rejected key fails fast.
func (t *WSTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return fmt.Errorf("transport already running")
	}
	t.running = true
	t.ctx = ctx
	t.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to hub: %w", err)
	}
	t.setConn(conn)
	t.events <- Event{Kind: EventOpen}

	t.wg.Add(1)
	go t.stream()
	return nil
}

// Events returns the channel events are delivered on. The channel is
// closed when the read loop ends.
func (t *WSTransport) Events() <-chan Event {
	return t.events
}

// Emit sends a payload on a named channel. Fire-and-forget beyond the
// write itself.
func (t *WSTransport) Emit(channel string, payload interface{}) error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected to hub")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", channel, err)
	}
	return conn.WriteJSON(envelope{Channel: channel, Data: data})
}

// Stop closes the connection and waits for the read loop to finish.
func (t *WSTransport) Stop() {
	t.mu.Lock()
	t.running = false
	if t.conn != nil {
		t.conn.Close()
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *WSTransport) setConn(conn *websocket.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
}

// stream reads frames until the context is cancelled, re-dialing after
// a dropped connection. A failed re-dial is a connect error and ends
// the loop.
func (t *WSTransport) stream() {
	defer t.wg.Done()
	defer close(t.events)
	log := t.log.WithComponent("hub_transport")

	for {
		for {
			t.mu.RLock()
			conn, running := t.conn, t.running
			t.mu.RUnlock()
			if !running || t.ctx.Err() != nil {
				return
			}

			_, msg, err := conn.ReadMessage()
			if err != nil {
				conn.Close()
				t.setConn(nil)
				if !t.isRunning() || t.ctx.Err() != nil {
					return
				}
				log.WithError(err).Warn("websocket read error, reconnecting")
				t.events <- Event{Kind: EventDisconnect}
				break
			}

			var frame envelope
			if err := json.Unmarshal(msg, &frame); err != nil {
				log.WithError(err).Debug("failed to decode frame")
				continue
			}
			t.events <- frameEvent(frame)
		}

		select {
		case <-time.After(reconnectDelay):
		case <-t.ctx.Done():
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(t.ctx, t.url, nil)
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			t.events <- Event{Kind: EventConnectError, Err: err}
			return
		}
		t.setConn(conn)
		t.events <- Event{Kind: EventOpen}
	}
}

func (t *WSTransport) isRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

func frameEvent(frame envelope) Event {
	switch frame.Channel {
	case ChannelAuthenticated:
		return Event{Kind: EventAuthenticated, Data: frame.Data}
	case "error":
		return Event{Kind: EventError, Err: fmt.Errorf("hub error: %s", string(frame.Data))}
	default:
		return Event{Kind: EventMessage, Channel: frame.Channel, Data: frame.Data}
	}
}
