package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coregx/realtime/model"
	"github.com/coregx/realtime/retry"
)

// ClusterBus abstracts the shared external pub/sub service used to fan
// messages out across broker instances (NATS in production, an in-memory bus
// in tests). A broker without a bus runs in local-only mode.
//
// Implementations should not echo a connection's own publishes back to its
// subscriptions (the NATS adapter sets NoEcho). The bridge drops echoed
// messages it recognizes by ID either way, at the cost of the extra round trip.
type ClusterBus interface {
	// Publish sends one payload on a subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for every subject matching the wildcard.
	// The handler is invoked from the bus's receive path; it must not block.
	Subscribe(ctx context.Context, wildcard string, handler func(subject string, data []byte)) (BusSubscription, error)

	// Close releases the bus connection.
	Close() error
}

// BusSubscription is a live wildcard subscription on the cluster bus.
type BusSubscription interface {
	// Unsubscribe removes the subscription.
	Unsubscribe() error
}

// Cluster subjects are derived from channel names. The bus wildcard matches at
// token boundaries, so channels map to "channel.<name>" and peers subscribe to
// "channel.>".
const (
	clusterSubjectPrefix = "channel."
	clusterWildcard      = clusterSubjectPrefix + ">"
)

func clusterSubject(channel string) string {
	return clusterSubjectPrefix + channel
}

// ClusterBridge serializes locally published messages onto the cluster bus and
// feeds messages from peer brokers back into local delivery.
//
// Inbound messages go through the local-only delivery path, never the full
// publish path, so a message cannot cycle publish → cluster → publish. The
// bridge also remembers the IDs of messages it forwarded itself: a bus that
// echoes a connection's own publishes (NATS does unless NoEcho is set) would
// otherwise hand every local publish back for a second local delivery.
// One malformed inbound payload is logged and skipped; it does not stop the
// subscriber loop. The outbound path shares the bus handle read-only; the
// inbound subscription is owned exclusively by the run loop.
type ClusterBridge struct {
	bus     ClusterBus
	deliver func(ctx context.Context, m model.Message)
	logger  Logger
	backoff retry.Strategy

	mu        sync.Mutex
	forwarded map[string]struct{}
	order     []string
}

// forwardedHistory bounds how many forwarded message IDs are remembered for
// echo suppression. An echo arrives within the bus round trip, so the history
// only needs to outlive in-flight publishes.
const forwardedHistory = 1024

func newClusterBridge(bus ClusterBus, deliver func(ctx context.Context, m model.Message), logger Logger) *ClusterBridge {
	return &ClusterBridge{
		bus:       bus,
		deliver:   deliver,
		logger:    logger,
		backoff:   retry.DefaultStrategy(),
		forwarded: make(map[string]struct{}),
	}
}

// Forward publishes a locally published message to the cluster so peer
// brokers can deliver it to their own subscribers. The message ID is recorded
// before the publish so an echo arriving mid-call is already recognized.
func (b *ClusterBridge) Forward(ctx context.Context, m model.Message) error {
	data, err := m.Encode()
	if err != nil {
		return NewErrorWithCause(ErrCodeCluster, "failed to serialize message for cluster", err)
	}

	b.rememberForwarded(m.ID)
	if err := b.bus.Publish(ctx, clusterSubject(m.Channel), data); err != nil {
		return NewErrorWithCause(ErrCodeCluster, "failed to publish to cluster", err)
	}
	return nil
}

func (b *ClusterBridge) rememberForwarded(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.forwarded[id] = struct{}{}
	b.order = append(b.order, id)
	if len(b.order) > forwardedHistory {
		delete(b.forwarded, b.order[0])
		b.order = b.order[1:]
	}
}

// wasForwarded reports whether this bridge forwarded the message itself, and
// forgets the ID on a hit since an echo arrives at most once.
func (b *ClusterBridge) wasForwarded(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.forwarded[id]; !ok {
		return false
	}
	delete(b.forwarded, id)
	for i, seen := range b.order {
		if seen == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// run maintains the inbound wildcard subscription until ctx is canceled,
// re-subscribing with exponential backoff when the bus rejects the
// subscription.
func (b *ClusterBridge) run(ctx context.Context) {
	attempt := 0
	for {
		sub, err := b.bus.Subscribe(ctx, clusterWildcard, func(subject string, data []byte) {
			b.handleInbound(ctx, subject, data)
		})
		if err != nil {
			delay := b.backoff.Delay(attempt)
			attempt++
			b.logger.Errorf("Cluster subscribe failed (attempt %d, retrying in %v): %v", attempt, delay, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		b.logger.Info("Cluster bridge subscribed")
		attempt = 0

		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Warnf("Cluster unsubscribe failed: %v", err)
		}
		return
	}
}

func (b *ClusterBridge) handleInbound(ctx context.Context, subject string, data []byte) {
	m, err := model.DecodeMessage(data)
	if err != nil {
		b.logger.Errorf("Skipping malformed cluster message on %s: %v", subject, err)
		return
	}
	if b.wasForwarded(m.ID) {
		// Own publish echoed back by the bus; local delivery already happened.
		return
	}
	// Local-only delivery: re-publishing here would loop the message back
	// onto the cluster.
	b.deliver(ctx, m)
}
