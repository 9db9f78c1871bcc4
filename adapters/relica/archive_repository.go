// Package relica provides a database-backed realtime.ArchiveRepository using
// the Relica query builder. Supports MySQL, PostgreSQL, and SQLite.
package relica

import (
	"context"
	"database/sql"
	"time"

	"github.com/coregx/relica"

	"github.com/coregx/realtime"
	"github.com/coregx/realtime/model"
)

// ArchiveRepository implements realtime.ArchiveRepository using Relica.
// Each ack-required message is stored as one row with its encoded payload and
// expiry; expired rows are deleted by the broker's purge loop.
type ArchiveRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewArchiveRepository creates a new ArchiveRepository with default table prefix.
func NewArchiveRepository(sqlDB *sql.DB, driverName string) *ArchiveRepository {
	return &ArchiveRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: "realtime_"}
}

// NewArchiveRepositoryWithPrefix creates a new ArchiveRepository with custom table prefix.
func NewArchiveRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *ArchiveRepository {
	return &ArchiveRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *ArchiveRepository) tableName() string {
	return r.tablePrefix + "archive"
}

// archiveRow is the storage shape of one archived message.
type archiveRow struct {
	ID        int64     `db:"id"`
	Channel   string    `db:"channel"`
	MessageID string    `db:"message_id"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// TableName returns the database table name for archiveRow.
func (archiveRow) TableName() string {
	return "realtime_archive"
}

// Append stores a message under its channel with the given expiry.
func (r *ArchiveRepository) Append(ctx context.Context, channel string, m model.Message, expiresAt time.Time) error {
	payload, err := m.Encode()
	if err != nil {
		return realtime.NewErrorWithCause(realtime.ErrCodeValidation, "failed to encode message for archive", err)
	}

	row := archiveRow{
		Channel:   channel,
		MessageID: m.ID,
		Payload:   string(payload),
		CreatedAt: m.Timestamp,
		ExpiresAt: expiresAt,
	}

	if err := r.db.WithContext(ctx).Model(&row).Table(r.tableName()).Insert(); err != nil {
		return realtime.NewErrorWithCause(realtime.ErrCodeDatabase, "failed to insert archived message", err)
	}
	return nil
}

// Recent retrieves up to limit unexpired messages for a channel, newest first.
func (r *ArchiveRepository) Recent(ctx context.Context, channel string, limit int) ([]model.Message, error) {
	var rows []archiveRow

	now := time.Now()

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("channel = ? AND expires_at > ?", channel, now).
		OrderBy("created_at DESC").
		Limit(int64(limit)).
		All(&rows)

	if err != nil {
		return nil, realtime.NewErrorWithCause(realtime.ErrCodeDatabase, "failed to load archived messages", err)
	}

	if len(rows) == 0 {
		return nil, realtime.ErrNoData
	}

	messages := make([]model.Message, 0, len(rows))
	for _, row := range rows {
		m, err := model.DecodeMessage([]byte(row.Payload))
		if err != nil {
			// A corrupt row is skipped rather than failing the read.
			continue
		}
		messages = append(messages, m)
	}
	if len(messages) == 0 {
		return nil, realtime.ErrNoData
	}
	return messages, nil
}

// PurgeExpired deletes messages whose expiry is at or before now.
func (r *ArchiveRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	var rows []archiveRow

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("expires_at <= ?", now).
		OrderBy("expires_at ASC").
		All(&rows)

	if err != nil {
		return 0, realtime.NewErrorWithCause(realtime.ErrCodeDatabase, "failed to find expired messages", err)
	}

	deleted := 0
	for i := range rows {
		if err := r.db.WithContext(ctx).Model(&rows[i]).Table(r.tableName()).Delete(); err != nil {
			// Keep purging the rest; the row stays until the next sweep.
			continue
		}
		deleted++
	}
	return deleted, nil
}
