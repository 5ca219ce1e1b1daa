package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetSetting returns the value for key, or "" when the key is unset.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string

	err := db.Pool.QueryRow(ctx,
		"SELECT value FROM settings WHERE key = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("get setting: %w", err)
	}

	return value, nil
}

func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}

	return nil
}
