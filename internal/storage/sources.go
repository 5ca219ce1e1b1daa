package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

// normalizeUsername converts username to lowercase for consistent storage
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(username, "@"))
}

const sourceColumns = `id, destination_id, title, username, tg_peer_id, access_hash,
	mask_pattern, is_active, last_tg_message_id, created_at`

func scanSource(row pgx.Row) (*domain.Source, error) {
	var (
		id          pgtype.UUID
		destID      pgtype.UUID
		title       string
		username    string
		tgPeerID    int64
		accessHash  int64
		maskPattern pgtype.Text
		isActive    bool
		lastMsgID   int64
		createdAt   pgtype.Timestamptz
	)

	if err := row.Scan(&id, &destID, &title, &username, &tgPeerID, &accessHash,
		&maskPattern, &isActive, &lastMsgID, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &domain.Source{
		ID:              fromUUID(id),
		DestinationID:   fromUUID(destID),
		Title:           title,
		Username:        username,
		TGPeerID:        tgPeerID,
		AccessHash:      accessHash,
		MaskPattern:     fromText(maskPattern),
		IsActive:        isActive,
		LastTGMessageID: lastMsgID,
		CreatedAt:       fromTimestamptz(createdAt),
	}, nil
}

func (db *DB) CreateSource(ctx context.Context, destinationID, title, username, maskPattern string) (*domain.Source, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO sources (destination_id, title, username, mask_pattern)
		VALUES ($1, $2, $3, $4)
		RETURNING `+sourceColumns,
		toUUID(destinationID), SanitizeUTF8(title), normalizeUsername(username), toText(maskPattern))

	src, err := scanSource(row)
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	return src, nil
}

func (db *DB) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	row := db.Pool.QueryRow(ctx,
		"SELECT "+sourceColumns+" FROM sources WHERE id = $1", toUUID(id))

	src, err := scanSource(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("get source: %w", err)
	}

	return src, nil
}

// GetSourceByUsername finds a donor source by its normalized username.
func (db *DB) GetSourceByUsername(ctx context.Context, username string) (*domain.Source, error) {
	row := db.Pool.QueryRow(ctx,
		"SELECT "+sourceColumns+" FROM sources WHERE username = $1", normalizeUsername(username))

	src, err := scanSource(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("get source by username: %w", err)
	}

	return src, nil
}

// GetActiveSources returns all active donor sources, used by the reader
// polling loop.
func (db *DB) GetActiveSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+sourceColumns+" FROM sources WHERE is_active ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("get active sources: %w", err)
	}
	defer rows.Close()

	return collectSources(rows)
}

func (db *DB) GetSourcesByDestination(ctx context.Context, destinationID string) ([]domain.Source, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+sourceColumns+" FROM sources WHERE destination_id = $1 ORDER BY created_at",
		toUUID(destinationID))
	if err != nil {
		return nil, fmt.Errorf("get sources by destination: %w", err)
	}
	defer rows.Close()

	return collectSources(rows)
}

func collectSources(rows pgx.Rows) ([]domain.Source, error) {
	var sources []domain.Source

	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}

		sources = append(sources, *src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}

	return sources, nil
}

func (db *DB) UpdateSourceMask(ctx context.Context, id, maskPattern string) error {
	tag, err := db.Pool.Exec(ctx,
		"UPDATE sources SET mask_pattern = $2 WHERE id = $1", toUUID(id), toText(maskPattern))
	if err != nil {
		return fmt.Errorf("update source mask: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateSourcePeer caches resolved peer identifiers after the reader resolves
// a username through the Telegram API.
func (db *DB) UpdateSourcePeer(ctx context.Context, id string, peerID, accessHash int64, title string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE sources SET tg_peer_id = $2, access_hash = $3, title = $4
		WHERE id = $1`,
		toUUID(id), peerID, accessHash, SanitizeUTF8(title)); err != nil {
		return fmt.Errorf("update source peer: %w", err)
	}

	return nil
}

func (db *DB) UpdateSourceLastMessageID(ctx context.Context, id string, lastMsgID int64) error {
	if _, err := db.Pool.Exec(ctx,
		"UPDATE sources SET last_tg_message_id = $2 WHERE id = $1", toUUID(id), lastMsgID); err != nil {
		return fmt.Errorf("update source last message id: %w", err)
	}

	return nil
}

func (db *DB) DeleteSource(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, "DELETE FROM sources WHERE id = $1", toUUID(id))
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
