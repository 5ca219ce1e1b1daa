package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

// SaveRawMessage stores a fetched donor message. The insert is idempotent on
// (source_id, tg_message_id), so re-reading overlapping history is safe.
func (db *DB) SaveRawMessage(ctx context.Context, m domain.RawMessage) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO raw_messages (source_id, tg_message_id, text, media, link)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_id, tg_message_id) DO NOTHING`,
		toUUID(m.SourceID), m.TGMessageID, SanitizeUTF8(m.Text), m.MediaJSON, SanitizeUTF8(m.Link)); err != nil {
		return fmt.Errorf("save raw message: %w", err)
	}

	return nil
}

// GetUnprocessedRawMessages returns the oldest unprocessed messages, up to limit.
func (db *DB) GetUnprocessedRawMessages(ctx context.Context, limit int) ([]domain.RawMessage, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, source_id, tg_message_id, text, media, link, processed, created_at
		FROM raw_messages
		WHERE NOT processed
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("get unprocessed raw messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.RawMessage

	for rows.Next() {
		var (
			m         domain.RawMessage
			id        pgtype.UUID
			sourceID  pgtype.UUID
			createdAt pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &sourceID, &m.TGMessageID, &m.Text, &m.MediaJSON,
			&m.Link, &m.Processed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan raw message: %w", err)
		}

		m.ID = fromUUID(id)
		m.SourceID = fromUUID(sourceID)
		m.CreatedAt = fromTimestamptz(createdAt)
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw messages: %w", err)
	}

	return messages, nil
}

// GetBacklogCount returns the number of raw messages awaiting processing.
func (db *DB) GetBacklogCount(ctx context.Context) (int64, error) {
	var count int64
	if err := db.Pool.QueryRow(ctx,
		"SELECT count(*) FROM raw_messages WHERE NOT processed").Scan(&count); err != nil {
		return 0, fmt.Errorf("get backlog count: %w", err)
	}

	return count, nil
}

// MarkRawMessageProcessed marks a raw message as consumed by the pipeline.
// Called exactly once per message regardless of processing outcome.
func (db *DB) MarkRawMessageProcessed(ctx context.Context, id string) error {
	if _, err := db.Pool.Exec(ctx,
		"UPDATE raw_messages SET processed = TRUE WHERE id = $1", toUUID(id)); err != nil {
		return fmt.Errorf("mark raw message processed: %w", err)
	}

	return nil
}
