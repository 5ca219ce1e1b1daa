package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

const destinationColumns = "id, title, chat_id, auto_mode, created_at"

func scanDestination(row pgx.Row) (*domain.Destination, error) {
	var (
		id        pgtype.UUID
		title     string
		chatID    int64
		autoMode  bool
		createdAt pgtype.Timestamptz
	)

	if err := row.Scan(&id, &title, &chatID, &autoMode, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &domain.Destination{
		ID:        fromUUID(id),
		Title:     title,
		ChatID:    chatID,
		AutoMode:  autoMode,
		CreatedAt: fromTimestamptz(createdAt),
	}, nil
}

func (db *DB) CreateDestination(ctx context.Context, title string, chatID int64) (*domain.Destination, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO destinations (title, chat_id)
		VALUES ($1, $2)
		RETURNING `+destinationColumns,
		SanitizeUTF8(title), chatID)

	dest, err := scanDestination(row)
	if err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	return dest, nil
}

func (db *DB) GetDestination(ctx context.Context, id string) (*domain.Destination, error) {
	row := db.Pool.QueryRow(ctx,
		"SELECT "+destinationColumns+" FROM destinations WHERE id = $1", toUUID(id))

	dest, err := scanDestination(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("get destination: %w", err)
	}

	return dest, nil
}

// GetDestinationByTitle finds a destination by its case-insensitive title.
func (db *DB) GetDestinationByTitle(ctx context.Context, title string) (*domain.Destination, error) {
	row := db.Pool.QueryRow(ctx,
		"SELECT "+destinationColumns+" FROM destinations WHERE lower(title) = lower($1)", title)

	dest, err := scanDestination(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("get destination by title: %w", err)
	}

	return dest, nil
}

func (db *DB) GetDestinations(ctx context.Context) ([]domain.Destination, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+destinationColumns+" FROM destinations ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("get destinations: %w", err)
	}
	defer rows.Close()

	var destinations []domain.Destination

	for rows.Next() {
		dest, err := scanDestination(rows)
		if err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}

		destinations = append(destinations, *dest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate destinations: %w", err)
	}

	return destinations, nil
}

// SetDestinationAutoMode toggles auto-publication for a destination and
// returns the new value.
func (db *DB) SetDestinationAutoMode(ctx context.Context, id string, autoMode bool) error {
	tag, err := db.Pool.Exec(ctx,
		"UPDATE destinations SET auto_mode = $2 WHERE id = $1", toUUID(id), autoMode)
	if err != nil {
		return fmt.Errorf("set destination auto mode: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteDestinationCascade removes a destination together with its sources,
// records and duplicate links in a single transaction. Foreign keys cascade,
// but the explicit transaction keeps the delete all-or-nothing.
func (db *DB) DeleteDestinationCascade(ctx context.Context, id string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete destination: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, "DELETE FROM destinations WHERE id = $1", toUUID(id))
	if err != nil {
		return fmt.Errorf("delete destination: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete destination: %w", err)
	}

	return nil
}
