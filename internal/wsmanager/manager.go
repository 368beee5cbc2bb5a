// Package wsmanager owns long-lived venue WebSocket subscriptions: it
// reconnects with exponential backoff, re-subscribes topics in registration
// order, and multiplexes raw messages onto a bounded channel, exactly the
// reconnection contract spec.md §4.1 describes. Grounded on the donor's
// internal/market/feed.go subscribe loop and internal/gateway/manager.go's
// connection-pool shape.
package wsmanager

import (
	"context"
	"log"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is one raw inbound frame tagged with the subscription that produced it.
type Message struct {
	Topic string
	Data  []byte
}

// SubscribeFrame builds the outbound subscribe control frame for a topic,
// sent on first connect and again on every reconnect.
// Each venue supplies its own wire format; the manager only owns the
// connect/backoff/multiplex plumbing.
type SubscribeFrame func(topic string) ([]byte, error)

// Manager owns one WebSocket connection and its topic subscriptions.
type Manager struct {
	id        string
	url       string
	subscribe SubscribeFrame

	mu      sync.Mutex
	topics  []string // registration order, preserved across reconnects
	conn    *websocket.Conn
	out     chan Message
	closed  chan struct{}

	pingInterval time.Duration
	dialTimeout  time.Duration
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithPingInterval overrides the default 30s ping interval (spec.md §5).
func WithPingInterval(d time.Duration) Option {
	return func(m *Manager) { m.pingInterval = d }
}

// New creates a manager for the given websocket URL. subscribe builds the
// wire frame to send for a topic when (re)establishing the connection.
func New(id, wsURL string, subscribe SubscribeFrame, opts ...Option) *Manager {
	m := &Manager{
		id:           id,
		url:          wsURL,
		subscribe:    subscribe,
		out:          make(chan Message, 1024),
		closed:       make(chan struct{}),
		pingInterval: 30 * time.Second,
		dialTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a topic to the subscription list, in call order. Safe to
// call before or after Start; topics registered after a connection is live
// are sent immediately.
func (m *Manager) Register(topic string) {
	m.mu.Lock()
	m.topics = append(m.topics, topic)
	conn := m.conn
	m.mu.Unlock()

	if conn != nil {
		m.sendSubscribe(conn, topic)
	}
}

// Messages returns the channel of inbound frames across all topics and
// reconnects.
func (m *Manager) Messages() <-chan Message { return m.out }

// Start runs the connect/read/reconnect loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 60 * time.Second

	for {
		select {
		case <-ctx.Done():
			close(m.out)
			return
		default:
		}

		conn, err := m.dial(ctx)
		if err != nil {
			log.Printf("[WS:%s] dial failed: %v (retry in %v)", m.id, err, backoff)
			if !sleepOrDone(ctx, jitter(backoff)) {
				close(m.out)
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		backoff = time.Second // reset after a successful connect

		m.mu.Lock()
		m.conn = conn
		topics := append([]string(nil), m.topics...)
		m.mu.Unlock()

		for _, t := range topics {
			m.sendSubscribe(conn, t)
		}

		m.readLoop(ctx, conn)

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			close(m.out)
			return
		default:
		}
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	if _, err := url.Parse(m.url); err != nil {
		return nil, err
	}
	dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, m.url, nil)
	return conn, err
}

func (m *Manager) sendSubscribe(conn *websocket.Conn, topic string) {
	frame, err := m.subscribe(topic)
	if err != nil {
		log.Printf("[WS:%s] build subscribe frame for %s: %v", m.id, topic, err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Printf("[WS:%s] subscribe %s failed: %v", m.id, topic, err)
	}
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	pingTicker := time.NewTicker(m.pingInterval)
	defer pingTicker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case m.out <- Message{Topic: m.id, Data: data}:
			default:
				// backpressure: the incoming frame is dropped and queued ones are
				// kept; frames are not inspected, so new-pool and new-token frames
				// are dropped the same way as price ticks.
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}

// jitter applies ±20% jitter per spec.md §4.1's reconnection contract.
func jitter(d time.Duration) time.Duration {
	delta := float64(d) * 0.2
	offset := (rand.Float64()*2 - 1) * delta
	return time.Duration(float64(d) + offset)
}
