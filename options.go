package realtime

import (
	"fmt"
	"time"
)

// BrokerOption is a function that configures a Broker.
// Used with the Options Pattern for flexible service construction.
//
// Example:
//
//	broker, err := realtime.NewBroker(
//	    realtime.WithArchive(archive),
//	    realtime.WithClusterBus(bus),
//	    realtime.WithLogger(logger),
//	)
type BrokerOption func(*Broker) error

// WithLogger sets the logger instance for the broker.
// Logger must not be nil; the default is NoopLogger.
func WithLogger(logger Logger) BrokerOption {
	return func(b *Broker) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		b.logger = logger
		return nil
	}
}

// WithArchive sets the repository that stores ack-required messages.
// The default is an in-memory archive; use the relica adapter for a
// database-backed archive shared between restarts.
func WithArchive(archive ArchiveRepository) BrokerOption {
	return func(b *Broker) error {
		if archive == nil {
			return fmt.Errorf("archive cannot be nil")
		}
		b.archive = archive
		return nil
	}
}

// WithClusterBus enables clustering through the given bus. Without a bus the
// broker runs in local-only mode, which is a supported deployment, not a
// degradation.
func WithClusterBus(bus ClusterBus) BrokerOption {
	return func(b *Broker) error {
		if bus == nil {
			return fmt.Errorf("cluster bus cannot be nil")
		}
		b.bus = bus
		return nil
	}
}

// WithHeartbeat sets the interval between heartbeat sweeps and the silence
// threshold after which a connection is evicted.
// Defaults: 30s interval, 2m timeout.
func WithHeartbeat(interval, timeout time.Duration) BrokerOption {
	return func(b *Broker) error {
		if interval <= 0 {
			return fmt.Errorf("heartbeat interval must be > 0, got %v", interval)
		}
		if timeout <= interval {
			return fmt.Errorf("heartbeat timeout must exceed the interval, got %v <= %v", timeout, interval)
		}
		b.heartbeatInterval = interval
		b.heartbeatTimeout = timeout
		return nil
	}
}

// WithArchiveRetention sets how long ack-required messages stay retrievable
// and how often expired ones are purged.
// Defaults: 1h retention, purge every 5m.
func WithArchiveRetention(ttl, purgeInterval time.Duration) BrokerOption {
	return func(b *Broker) error {
		if ttl <= 0 {
			return fmt.Errorf("archive ttl must be > 0, got %v", ttl)
		}
		if purgeInterval <= 0 {
			return fmt.Errorf("purge interval must be > 0, got %v", purgeInterval)
		}
		b.archiveTTL = ttl
		b.purgeInterval = purgeInterval
		return nil
	}
}
