package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// UserStore implements store.UserStore backed by Postgres.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db} }

const userSelectCols = `id, telegram_id, display_name, created_at`

func scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	if err := row.Scan(&u.ID, &u.TelegramID, &u.DisplayName, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrCreateByTelegramID upserts a User row keyed by its stable
// Telegram identity.
func (s *UserStore) GetOrCreateByTelegramID(ctx context.Context, telegramID int64, displayName string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE telegram_id = $1`, telegramID)
	if u, err := scanUser(row); err == nil {
		return u, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	u := &store.User{
		ID:          store.GenID(),
		TelegramID:  telegramID,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, telegram_id, display_name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (telegram_id) DO UPDATE SET display_name = EXCLUDED.display_name
		 RETURNING id`,
		u.ID, u.TelegramID, u.DisplayName, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userSelectCols+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}
