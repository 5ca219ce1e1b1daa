package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

// SaveDuplicateLink records that duplicateRecordID matched originalRecordID
// with the given detection reason (lexical or semantic).
func (db *DB) SaveDuplicateLink(ctx context.Context, originalRecordID, duplicateRecordID, reason string) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO duplicate_links (original_record_id, duplicate_record_id, reason)
		VALUES ($1, $2, $3)`,
		toUUID(originalRecordID), toUUID(duplicateRecordID), reason); err != nil {
		return fmt.Errorf("save duplicate link: %w", err)
	}

	return nil
}

// GetDuplicateLinksSince returns duplicate links created at or after since,
// newest first. Used by the moderation log view.
func (db *DB) GetDuplicateLinksSince(ctx context.Context, since time.Time, limit int) ([]domain.DuplicateLink, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, original_record_id, duplicate_record_id, reason, created_at
		FROM duplicate_links
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("get duplicate links: %w", err)
	}
	defer rows.Close()

	var links []domain.DuplicateLink

	for rows.Next() {
		var (
			l           domain.DuplicateLink
			id          pgtype.UUID
			originalID  pgtype.UUID
			duplicateID pgtype.UUID
			createdAt   pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &originalID, &duplicateID, &l.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan duplicate link: %w", err)
		}

		l.ID = fromUUID(id)
		l.OriginalRecordID = fromUUID(originalID)
		l.DuplicateRecordID = fromUUID(duplicateID)
		l.CreatedAt = fromTimestamptz(createdAt)
		links = append(links, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate links: %w", err)
	}

	return links, nil
}
