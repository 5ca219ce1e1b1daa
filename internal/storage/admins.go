package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

func (db *DB) AddAdmin(ctx context.Context, tgUserID int64, username string) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO admins (tg_user_id, username)
		VALUES ($1, $2)
		ON CONFLICT (tg_user_id) DO UPDATE SET username = EXCLUDED.username`,
		tgUserID, normalizeUsername(username)); err != nil {
		return fmt.Errorf("add admin: %w", err)
	}

	return nil
}

func (db *DB) RemoveAdmin(ctx context.Context, tgUserID int64) error {
	if _, err := db.Pool.Exec(ctx,
		"DELETE FROM admins WHERE tg_user_id = $1", tgUserID); err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}

	return nil
}

func (db *DB) IsAdmin(ctx context.Context, tgUserID int64) (bool, error) {
	var exists bool

	if err := db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM admins WHERE tg_user_id = $1)", tgUserID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}

	return exists, nil
}

func (db *DB) GetAdmins(ctx context.Context) ([]domain.Admin, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT tg_user_id, username, added_at FROM admins ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("get admins: %w", err)
	}
	defer rows.Close()

	var admins []domain.Admin

	for rows.Next() {
		var (
			a       domain.Admin
			addedAt pgtype.Timestamptz
		)

		if err := rows.Scan(&a.TGUserID, &a.Username, &addedAt); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}

		a.AddedAt = fromTimestamptz(addedAt)
		admins = append(admins, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admins: %w", err)
	}

	return admins, nil
}
