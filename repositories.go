package realtime

import (
	"context"
	"time"

	"github.com/coregx/realtime/model"
)

// ArchiveRepository defines the persistence interface for ack-required
// messages. The archive is bounded advisory retention, not a guaranteed
// delivery log: messages are kept per channel until their expiry, then purged.
//
// Implementations must be safe for concurrent use.
type ArchiveRepository interface {
	// Append stores a message under its channel with the given expiry.
	Append(ctx context.Context, channel string, m model.Message, expiresAt time.Time) error

	// Recent retrieves up to limit unexpired messages for a channel,
	// newest first. Returns ErrNoData if the channel has none.
	Recent(ctx context.Context, channel string, limit int) ([]model.Message, error)

	// PurgeExpired deletes messages whose expiry is at or before now.
	// Returns the number of messages removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
