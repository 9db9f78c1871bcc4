package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coregx/realtime/model"
)

// Handler is an application callback invoked whenever a message of its
// registered type is published, locally or from the cluster. Handlers run
// best-effort in registration order; a failing handler is logged and does not
// affect delivery or other handlers.
type Handler func(ctx context.Context, m model.Message) error

// Default timing configuration.
const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultHeartbeatTimeout  = 2 * time.Minute
	defaultArchiveTTL        = time.Hour
	defaultPurgeInterval     = 5 * time.Minute
)

const systemSender = "system"

// Broker is the realtime message broker. It registers connections, indexes
// their channel subscriptions, fans published messages out to local
// subscribers and the cluster, and evicts silent connections.
//
// All registry and index mutations go through the broker's synchronized
// paths, so no two mutations interleave even though connection handling,
// heartbeat sweeps and the cluster subscriber run on separate goroutines.
//
// Construct with NewBroker, start background loops with Initialize, and stop
// with Shutdown. Calling other methods after Shutdown is undefined by contract.
type Broker struct {
	archive  ArchiveRepository
	bus      ClusterBus
	bridge   *ClusterBridge
	channels *ChannelManager
	logger   Logger

	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	archiveTTL        time.Duration
	purgeInterval     time.Duration

	mu          sync.RWMutex
	connections map[string]*Connection

	handlersMu sync.RWMutex
	handlers   map[model.MessageType][]Handler

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBroker creates a broker with the provided options.
//
// All options are optional: the default broker keeps ack-required messages in
// memory, logs nowhere, and runs in local-only mode.
//
// Example:
//
//	broker, err := realtime.NewBroker(
//	    realtime.WithArchive(relica.NewArchiveRepository(db, "mysql")),
//	    realtime.WithClusterBus(bus),
//	    realtime.WithLogger(logger),
//	)
func NewBroker(opts ...BrokerOption) (*Broker, error) {
	b := &Broker{
		archive:           NewMemoryArchive(),
		channels:          NewChannelManager(),
		logger:            &NoopLogger{},
		heartbeatInterval: defaultHeartbeatInterval,
		heartbeatTimeout:  defaultHeartbeatTimeout,
		archiveTTL:        defaultArchiveTTL,
		purgeInterval:     defaultPurgeInterval,
		connections:       make(map[string]*Connection),
		handlers:          make(map[model.MessageType][]Handler),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply broker option", err)
		}
	}

	return b, nil
}

// Initialize starts the heartbeat and archive purge loops and, when a cluster
// bus is configured, the cluster subscriber loop. The loops stop when ctx is
// canceled or Shutdown is called. Initialize must be called exactly once.
func (b *Broker) Initialize(ctx context.Context) error {
	b.runCtx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(2)
	go b.heartbeatLoop(b.runCtx)
	go b.purgeLoop(b.runCtx)

	if b.bus != nil {
		b.bridge = newClusterBridge(b.bus, b.deliverLocal, b.logger)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.bridge.run(b.runCtx)
		}()
		b.logger.Info("Cluster bridge enabled")
	}

	b.logger.Info("Message broker initialized")
	return nil
}

// Shutdown stops the background loops, closes every open connection and
// releases the cluster bus. Connection closes are best-effort; the wait for
// background loops is bounded by ctx.
func (b *Broker) Shutdown(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}

	b.mu.Lock()
	conns := make([]*Connection, 0, len(b.connections))
	for _, conn := range b.connections {
		conns = append(conns, conn)
	}
	b.connections = make(map[string]*Connection)
	b.mu.Unlock()

	for _, conn := range conns {
		b.channels.UnsubscribeAll(conn.ID())
		if err := conn.Close(CloseGoingAway, "broker shutdown"); err != nil {
			b.logger.Warnf("Failed to close connection %s: %v", conn.ID(), err)
		}
	}

	if b.bus != nil {
		if err := b.bus.Close(); err != nil {
			b.logger.Warnf("Failed to close cluster bus: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return NewErrorWithCause(ErrCodeConfiguration, "shutdown wait aborted", ctx.Err())
	}

	b.logger.Info("Message broker shutdown")
	return nil
}

// AddConnection registers a connection, starts its writer and auto-subscribes
// it to its user's private channel.
func (b *Broker) AddConnection(conn *Connection) {
	ctx := b.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.Lock()
	b.connections[conn.ID()] = conn
	b.mu.Unlock()

	conn.start(ctx, b.logger)

	private := model.PrivateChannel(conn.UserID())
	b.channels.Subscribe(conn.ID(), private)
	conn.rememberChannel(private)

	b.logger.Infof("Added connection %s (user: %s, role: %s)", conn.ID(), conn.UserID(), conn.UserRole())
}

// RemoveConnection unsubscribes a connection from every channel and drops it
// from the registry. Unknown IDs are a no-op.
func (b *Broker) RemoveConnection(connectionID string) {
	b.mu.Lock()
	conn, ok := b.connections[connectionID]
	if ok {
		delete(b.connections, connectionID)
	}
	b.mu.Unlock()

	if !ok {
		return
	}

	b.channels.UnsubscribeAll(connectionID)
	b.logger.Infof("Removed connection %s (user: %s)", connectionID, conn.UserID())
}

// Publish distributes a message: ack-required messages are archived, local
// subscribers and the explicit recipient receive it, the cluster bridge
// forwards it to peer brokers, and registered handlers for its type run.
//
// Archive and cluster failures are logged and degrade to local delivery; they
// never fail the publish.
func (b *Broker) Publish(ctx context.Context, m model.Message) error {
	if !m.Type.IsValid() {
		return NewError(ErrCodeValidation, "unknown message type")
	}
	if m.Channel == "" {
		return NewError(ErrCodeValidation, "message channel is required")
	}

	if m.RequiresAck {
		expiresAt := time.Now().Add(b.archiveTTL)
		if err := b.archive.Append(ctx, m.Channel, m, expiresAt); err != nil {
			b.logger.Errorf("Failed to archive message %s: %v", m.ID, err)
		}
	}

	b.deliverLocal(ctx, m)

	if b.bridge != nil {
		if err := b.bridge.Forward(ctx, m); err != nil {
			b.logger.Errorf("Cluster forward failed for message %s, delivered locally only: %v", m.ID, err)
		}
	}

	b.dispatchHandlers(ctx, m)
	return nil
}

// deliverLocal pushes a message to every live local subscriber of its channel,
// plus the connections of the explicit recipient. This is the entry point for
// inbound cluster messages, which must not be re-published.
func (b *Broker) deliverLocal(_ context.Context, m model.Message) {
	targets := b.channels.Subscribers(m.Channel)

	if m.Recipient != "" {
		b.mu.RLock()
		for id, conn := range b.connections {
			if conn.UserID() == m.Recipient {
				targets[id] = struct{}{}
			}
		}
		b.mu.RUnlock()
	}

	for id := range targets {
		b.mu.RLock()
		conn, ok := b.connections[id]
		b.mu.RUnlock()
		if !ok || !conn.IsAlive() {
			continue
		}

		if err := conn.Send(m); err != nil {
			b.logger.Errorf("Failed to deliver message %s to connection %s: %v", m.ID, id, err)
			if !conn.IsAlive() {
				b.RemoveConnection(id)
			}
		}
	}
}

// HandleClientMessage processes one raw frame from a client connection.
// Heartbeats refresh the connection's liveness and are acknowledged on its
// private channel; subscribe/unsubscribe mutate the subscription indexes after
// a permission check; everything else becomes a full message and is published
// on the sender's behalf.
//
// Malformed frames are answered with a notification to the offending
// connection only and never propagate an error.
func (b *Broker) HandleClientMessage(ctx context.Context, conn *Connection, raw []byte) {
	env, err := model.DecodeEnvelope(raw)
	if err != nil {
		b.logger.Errorf("Bad frame from connection %s: %v", conn.ID(), err)
		b.sendErrorNotification(conn, "invalid message format")
		return
	}

	conn.markActive()

	switch model.MessageType(env.Type) {
	case model.TypeHeartbeat:
		conn.UpdateHeartbeat()
		b.sendHeartbeatAck(conn)

	case model.TypeSubscribe:
		if env.Channel == "" {
			return
		}
		if !CanSubscribe(conn, env.Channel) {
			b.logger.Warnf("Connection %s (user %s, role %s) denied subscription to %s",
				conn.ID(), conn.UserID(), conn.UserRole(), env.Channel)
			return
		}
		b.channels.Subscribe(conn.ID(), env.Channel)
		conn.rememberChannel(env.Channel)

	case model.TypeUnsubscribe:
		if env.Channel == "" {
			return
		}
		b.channels.Unsubscribe(conn.ID(), env.Channel)
		conn.forgetChannel(env.Channel)

	default:
		if err := b.Publish(ctx, env.Message(conn.UserID())); err != nil {
			b.logger.Errorf("Failed to publish client message from %s: %v", conn.ID(), err)
			b.sendErrorNotification(conn, "failed to publish message")
		}
	}
}

func (b *Broker) sendHeartbeatAck(conn *Connection) {
	ack := model.NewMessage(model.TypeHeartbeat, model.PrivateChannel(conn.UserID()), systemSender,
		map[string]any{"status": "alive"})
	ack.Recipient = conn.UserID()
	ack.Priority = model.PriorityLow

	if err := conn.Send(ack); err != nil {
		b.logger.Warnf("Failed to send heartbeat ack to %s: %v", conn.ID(), err)
	}
}

func (b *Broker) sendErrorNotification(conn *Connection, reason string) {
	note := model.NewMessage(model.TypeNotification, model.PrivateChannel(conn.UserID()), systemSender,
		map[string]any{"error": reason})
	note.Recipient = conn.UserID()

	if err := conn.Send(note); err != nil {
		b.logger.Warnf("Failed to send error notification to %s: %v", conn.ID(), err)
	}
}

// AddMessageHandler registers a handler for a message type. Handlers run in
// registration order on every publish of that type.
func (b *Broker) AddMessageHandler(t model.MessageType, h Handler) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

func (b *Broker) dispatchHandlers(ctx context.Context, m model.Message) {
	b.handlersMu.RLock()
	handlers := make([]Handler, len(b.handlers[m.Type]))
	copy(handlers, b.handlers[m.Type])
	b.handlersMu.RUnlock()

	for _, h := range handlers {
		b.invokeHandler(ctx, h, m)
	}
}

// invokeHandler isolates one handler call: errors and panics are logged and
// contained so the remaining handlers and the delivery path still run.
func (b *Broker) invokeHandler(ctx context.Context, h Handler, m model.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Message handler panic for type %s: %v", m.Type, r)
		}
	}()

	if err := h(ctx, m); err != nil {
		b.logger.Errorf("Message handler error for type %s: %v", m.Type, err)
	}
}

// ConnectionStats is a read-only snapshot of the connection registry.
type ConnectionStats struct {
	Total            int            `json:"totalConnections"`
	Active           int            `json:"activeConnections"`
	ChannelCount     int            `json:"channels"`
	RoleDistribution map[string]int `json:"roleDistribution"`
	Timestamp        time.Time      `json:"timestamp"`
}

// ConnectionStats returns a snapshot for observability.
func (b *Broker) ConnectionStats() ConnectionStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := ConnectionStats{
		Total:            len(b.connections),
		ChannelCount:     b.channels.ChannelCount(),
		RoleDistribution: make(map[string]int),
		Timestamp:        time.Now().UTC(),
	}
	for _, conn := range b.connections {
		if conn.IsAlive() {
			stats.Active++
		}
		stats.RoleDistribution[conn.UserRole()]++
	}
	return stats
}

// heartbeatLoop periodically evicts connections silent past the timeout.
func (b *Broker) heartbeatLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.heartbeatInterval)
	defer ticker.Stop()

	b.logger.Info("Heartbeat monitor started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Heartbeat monitor stopped")
			return
		case <-ticker.C:
			b.evictStale(time.Now())
		}
	}
}

// evictStale closes and removes every connection whose last heartbeat is
// older than the timeout. Individual close failures do not stop the sweep.
func (b *Broker) evictStale(now time.Time) {
	threshold := now.Add(-b.heartbeatTimeout)

	b.mu.RLock()
	var stale []*Connection
	for _, conn := range b.connections {
		if conn.LastHeartbeat().Before(threshold) {
			stale = append(stale, conn)
		}
	}
	b.mu.RUnlock()

	for _, conn := range stale {
		if err := conn.Close(CloseGoingAway, "connection timeout"); err != nil {
			b.logger.Warnf("Failed to close stale connection %s: %v", conn.ID(), err)
		}
		b.RemoveConnection(conn.ID())
		b.logger.Infof("Evicted stale connection %s (user: %s, last heartbeat: %v)",
			conn.ID(), conn.UserID(), conn.LastHeartbeat())
	}
}

// purgeLoop periodically deletes expired messages from the archive.
func (b *Broker) purgeLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := b.archive.PurgeExpired(ctx, time.Now())
			if err != nil {
				b.logger.Errorf("Archive purge failed: %v", err)
				continue
			}
			if purged > 0 {
				b.logger.Infof("Purged %d expired archived messages", purged)
			}
		}
	}
}

// ArchivedMessages returns the retained ack-required messages for a channel,
// newest first. This exposes the bounded retention store; there is no
// acknowledgment tracking or redelivery behind it.
func (b *Broker) ArchivedMessages(ctx context.Context, channel string, limit int) ([]model.Message, error) {
	return b.archive.Recent(ctx, channel, limit)
}
