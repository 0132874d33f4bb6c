package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// CodeStore implements store.CodeStore backed by Postgres.
type CodeStore struct {
	db *sql.DB
}

func NewCodeStore(db *sql.DB) *CodeStore { return &CodeStore{db: db} }

func (s *CodeStore) Create(ctx context.Context, c *store.Code) error {
	if c.ID == uuid.Nil {
		c.ID = store.GenID()
	}
	c.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO codes (id, group_id, code, role, max_uses, uses, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.GroupID, c.Code, c.Role, c.MaxUses, c.Uses, c.ExpiresAt, c.CreatedAt,
	)
	return err
}

// GetByCode returns (nil, nil) for an unknown code; the caller turns
// that into a user-visible "invalid code" message.
func (s *CodeStore) GetByCode(ctx context.Context, code string) (*store.Code, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, code, role, max_uses, uses, expires_at, created_at
		 FROM codes WHERE code = $1`, code)
	var c store.Code
	err := row.Scan(&c.ID, &c.GroupID, &c.Code, &c.Role, &c.MaxUses, &c.Uses, &c.ExpiresAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CodeStore) IncrUses(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE codes SET uses = uses + 1 WHERE id = $1`, id)
	return err
}

func (s *CodeStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM codes WHERE id = $1`, id)
	return err
}
