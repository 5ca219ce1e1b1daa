package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

const recordColumns = `id, source_id, destination_id, raw_message_id, original_text,
	processed_text, media, source_link, original_tg_message_id, is_duplicate,
	is_advertisement, status, error_detail, created_at, published_at`

func scanRecord(row pgx.Row) (*domain.Record, error) {
	var (
		id            pgtype.UUID
		sourceID      pgtype.UUID
		destinationID pgtype.UUID
		rawMessageID  pgtype.UUID
		processedText pgtype.Text
		errorDetail   pgtype.Text
		createdAt     pgtype.Timestamptz
		publishedAt   pgtype.Timestamptz
		r             domain.Record
	)

	if err := row.Scan(&id, &sourceID, &destinationID, &rawMessageID, &r.OriginalText,
		&processedText, &r.MediaJSON, &r.SourceLink, &r.OriginalTGMessageID, &r.IsDuplicate,
		&r.IsAdvertisement, &r.Status, &errorDetail, &createdAt, &publishedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	r.ID = fromUUID(id)
	r.SourceID = fromUUID(sourceID)
	r.DestinationID = fromUUID(destinationID)
	r.RawMessageID = fromUUID(rawMessageID)
	r.ProcessedText = fromText(processedText)
	r.ErrorDetail = fromText(errorDetail)
	r.CreatedAt = fromTimestamptz(createdAt)
	r.PublishedAt = fromTimestamptzPtr(publishedAt)

	return &r, nil
}

// CreateRecord persists a record with a definite status and returns it with
// the generated id. Every processed message produces exactly one record, even
// when it is rejected.
func (db *DB) CreateRecord(ctx context.Context, r domain.Record) (*domain.Record, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO records (source_id, destination_id, raw_message_id, original_text,
			processed_text, media, source_link, original_tg_message_id, is_duplicate,
			is_advertisement, status, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+recordColumns,
		toUUID(r.SourceID), toUUID(r.DestinationID), toUUID(r.RawMessageID),
		SanitizeUTF8(r.OriginalText), toText(r.ProcessedText), r.MediaJSON,
		SanitizeUTF8(r.SourceLink), r.OriginalTGMessageID, r.IsDuplicate,
		r.IsAdvertisement, r.Status, toText(r.ErrorDetail))

	created, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	return created, nil
}

func (db *DB) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	row := db.Pool.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM records WHERE id = $1", toUUID(id))

	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("get record: %w", err)
	}

	return r, nil
}

// GetRecentAcceptedRecords returns the duplicate-comparison corpus for a
// destination: the most recent accepted (published or still pending),
// non-duplicate records, newest first, capped at limit.
func (db *DB) GetRecentAcceptedRecords(ctx context.Context, destinationID string, limit int) ([]domain.Record, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE destination_id = $1
		  AND NOT is_duplicate
		  AND status IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT $4`,
		toUUID(destinationID), domain.StatusPublished, domain.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent accepted records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (db *DB) GetRecordsByStatus(ctx context.Context, status string, since time.Time, limit int) ([]domain.Record, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE status = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`,
		status, since, limit)
	if err != nil {
		return nil, fmt.Errorf("get records by status: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]domain.Record, error) {
	var records []domain.Record

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		records = append(records, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// MarkRecordPublished atomically claims a pending record as published and
// sets published_at. Returns false when the record was not pending, which
// callers report as "already processed". The conditional update is the
// concurrency guard: two racing publish triggers cannot both claim the row.
func (db *DB) MarkRecordPublished(ctx context.Context, id string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE records
		SET status = $2, published_at = now()
		WHERE id = $1 AND status = $3`,
		toUUID(id), domain.StatusPublished, domain.StatusPending)
	if err != nil {
		return false, fmt.Errorf("mark record published: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkRecordPublishError moves a record claimed for publication into
// publish_error after a delivery failure, clearing published_at.
func (db *DB) MarkRecordPublishError(ctx context.Context, id, detail string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE records
		SET status = $2, published_at = NULL, error_detail = $3
		WHERE id = $1`,
		toUUID(id), domain.StatusPublishError, toText(detail)); err != nil {
		return fmt.Errorf("mark record publish error: %w", err)
	}

	return nil
}

// UpdateRecordTextPending replaces the candidate text of a record that is
// still pending. Returns false when the record left pending in the meantime.
func (db *DB) UpdateRecordTextPending(ctx context.Context, id, text string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE records
		SET processed_text = $2
		WHERE id = $1 AND status = $3`,
		toUUID(id), toText(text), domain.StatusPending)
	if err != nil {
		return false, fmt.Errorf("update record text: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// RejectRecordPending moves a pending record to the operator-rejected
// terminal state. Returns false when the record was not pending.
func (db *DB) RejectRecordPending(ctx context.Context, id string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE records
		SET status = $2
		WHERE id = $1 AND status = $3`,
		toUUID(id), domain.StatusRejected, domain.StatusPending)
	if err != nil {
		return false, fmt.Errorf("reject record: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// RequeueRecordPending puts a publish_error record back into pending so the
// operator can retry publication. Operator-triggered only, never automatic.
func (db *DB) RequeueRecordPending(ctx context.Context, id string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE records
		SET status = $2, error_detail = NULL
		WHERE id = $1 AND status = $3`,
		toUUID(id), domain.StatusPending, domain.StatusPublishError)
	if err != nil {
		return false, fmt.Errorf("requeue record: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
