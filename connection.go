package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coregx/realtime/model"
)

// Transport abstracts the client-facing byte transport of one connection
// (a websocket in production, an in-memory pipe in tests).
//
// WriteMessage is only ever called from the connection's single writer
// goroutine. Close may be called concurrently with WriteMessage and must be
// safe to call more than once.
type Transport interface {
	// WriteMessage writes one frame to the client.
	WriteMessage(ctx context.Context, data []byte) error

	// Close closes the transport, passing a websocket-style close code and reason.
	Close(code int, reason string) error
}

// Close codes passed to Transport.Close.
const (
	// CloseNormal is used for orderly closes requested by either side.
	CloseNormal = 1000

	// CloseGoingAway is used when the broker evicts a connection: heartbeat
	// timeout, slow consumer, or broker shutdown.
	CloseGoingAway = 1001
)

// ConnectionState tracks a connection through its lifecycle.
// Transitions: connecting → authenticated → active → closed. There is no
// resurrection; a timed-out connection reconnects as a new Connection.
type ConnectionState string

// Connection states.
const (
	StateConnecting    ConnectionState = "connecting"
	StateAuthenticated ConnectionState = "authenticated"
	StateActive        ConnectionState = "active"
	StateClosed        ConnectionState = "closed"
)

const (
	defaultOutboundBuffer      = 64
	defaultSlowConsumerTimeout = time.Second
	defaultWriteTimeout        = 5 * time.Second
)

// Connection wraps one client's transport together with its identity,
// subscription set and heartbeat timestamp.
//
// The broker owns the registry of connections; a Connection itself only
// guards its own mutable state. Outbound messages are queued on a bounded
// buffer drained by a single writer goroutine, which preserves per-connection
// send order. A consumer that keeps the buffer full past the slow-consumer
// timeout is closed.
type Connection struct {
	id          string
	userID      string
	userRole    string
	connectedAt time.Time
	transport   Transport

	mu            sync.Mutex
	state         ConnectionState
	lastHeartbeat time.Time
	channels      map[string]struct{}

	outbound  chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	slowConsumerTimeout time.Duration
	writeTimeout        time.Duration
}

// NewConnection creates a connection for an authenticated user. The identity
// comes from the external auth collaborator at handshake; the broker trusts it,
// so the connection starts in the authenticated state.
func NewConnection(transport Transport, userID, userRole string) *Connection {
	now := time.Now().UTC()
	return &Connection{
		id:                  uuid.NewString(),
		userID:              userID,
		userRole:            userRole,
		connectedAt:         now,
		transport:           transport,
		state:               StateAuthenticated,
		lastHeartbeat:       now,
		channels:            make(map[string]struct{}),
		outbound:            make(chan []byte, defaultOutboundBuffer),
		done:                make(chan struct{}),
		slowConsumerTimeout: defaultSlowConsumerTimeout,
		writeTimeout:        defaultWriteTimeout,
	}
}

// ID returns the broker-assigned connection ID, unique for the process lifetime.
func (c *Connection) ID() string { return c.id }

// UserID returns the authenticated user ID.
func (c *Connection) UserID() string { return c.userID }

// UserRole returns the authenticated user role.
func (c *Connection) UserRole() string { return c.userRole }

// ConnectedAt returns when the transport handshake completed.
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }

// State returns the current lifecycle state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsAlive reports whether the connection has not been closed.
func (c *Connection) IsAlive() bool {
	return c.State() != StateClosed
}

// UpdateHeartbeat records a liveness signal from the client.
func (c *Connection) UpdateHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastHeartbeat = time.Now().UTC()
}

// LastHeartbeat returns the time of the most recent heartbeat.
func (c *Connection) LastHeartbeat() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHeartbeat
}

// markActive moves an authenticated connection to active on its first
// successful message exchange.
func (c *Connection) markActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAuthenticated {
		c.state = StateActive
	}
}

// Channels returns a copy of the channels this connection is subscribed to.
func (c *Connection) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	channels := make([]string, 0, len(c.channels))
	for channel := range c.channels {
		channels = append(channels, channel)
	}
	return channels
}

func (c *Connection) rememberChannel(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel] = struct{}{}
}

func (c *Connection) forgetChannel(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, channel)
}

// Send queues a message on the connection's outbound path. It fails with
// ErrConnectionClosed once the connection is closed, and closes a consumer
// whose buffer stays full past the slow-consumer timeout.
func (c *Connection) Send(m model.Message) error {
	data, err := m.Encode()
	if err != nil {
		return NewErrorWithCause(ErrCodeValidation, "failed to encode message", err)
	}

	timer := time.NewTimer(c.slowConsumerTimeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return ErrConnectionClosed
	case c.outbound <- data:
		return nil
	case <-timer.C:
		_ = c.Close(CloseGoingAway, "slow consumer")
		return NewError(ErrCodeTransport, "slow consumer, connection closed")
	}
}

// Close closes the connection once. The transport close is best-effort;
// subsequent calls return the first result.
func (c *Connection) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		close(c.done)
		if err := c.transport.Close(code, reason); err != nil {
			c.closeErr = NewErrorWithCause(ErrCodeTransport, "failed to close transport", err)
		}
	})
	return c.closeErr
}

// start launches the single writer goroutine. Called by the broker when the
// connection is registered; the goroutine exits when the connection closes or
// the broker's context is canceled.
func (c *Connection) start(ctx context.Context, logger Logger) {
	go c.writePump(ctx, logger)
}

func (c *Connection) writePump(ctx context.Context, logger Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.outbound:
			writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.transport.WriteMessage(writeCtx, data)
			cancel()
			if err != nil {
				logger.Errorf("Failed to send to user %s (connection %s): %v", c.userID, c.id, err)
				_ = c.Close(CloseGoingAway, "write failed")
				return
			}
		}
	}
}
