package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coregx/realtime/model"
)

// MemoryArchive is an in-memory ArchiveRepository. It is the default archive
// for brokers constructed without a database and is used in local-only
// deployments and tests.
type MemoryArchive struct {
	mu       sync.Mutex
	channels map[string][]archivedMessage
}

type archivedMessage struct {
	message   model.Message
	expiresAt time.Time
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{channels: make(map[string][]archivedMessage)}
}

// Append stores a message under its channel.
func (a *MemoryArchive) Append(_ context.Context, channel string, m model.Message, expiresAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channels[channel] = append(a.channels[channel], archivedMessage{message: m, expiresAt: expiresAt})
	return nil
}

// Recent returns up to limit unexpired messages for a channel, newest first.
func (a *MemoryArchive) Recent(_ context.Context, channel string, limit int) ([]model.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored := a.channels[channel]
	now := time.Now()

	var messages []model.Message
	for i := len(stored) - 1; i >= 0 && len(messages) < limit; i-- {
		if stored[i].expiresAt.After(now) {
			messages = append(messages, stored[i].message)
		}
	}
	if len(messages) == 0 {
		return nil, ErrNoData
	}
	return messages, nil
}

// PurgeExpired removes expired messages and drops channels left empty.
func (a *MemoryArchive) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	purged := 0
	for channel, stored := range a.channels {
		kept := stored[:0]
		for _, am := range stored {
			if am.expiresAt.After(now) {
				kept = append(kept, am)
			} else {
				purged++
			}
		}
		if len(kept) == 0 {
			delete(a.channels, channel)
		} else {
			a.channels[channel] = kept
		}
	}
	return purged, nil
}
