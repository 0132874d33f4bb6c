package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// BanStore implements store.BanStore backed by Postgres: the typed ban
// matrix as (scope, subject, type, expiry) rows rather than flags on
// the member row, which keeps expiry semantics uniform.
type BanStore struct {
	db *sql.DB
}

func NewBanStore(db *sql.DB) *BanStore { return &BanStore{db: db} }

// Upsert replaces any existing (scope, subject, type) row's expiry, so
// re-banning renews rather than duplicates.
func (s *BanStore) Upsert(ctx context.Context, b *store.Ban) error {
	if b.ID == uuid.Nil {
		b.ID = store.GenID()
	}
	b.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bans (id, scope, subject_id, type, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (scope, subject_id, type) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		b.ID, b.Scope, b.SubjectID, b.Type, b.ExpiresAt, b.CreatedAt,
	)
	return err
}

func (s *BanStore) Clear(ctx context.Context, scope store.BanScope, subjectID uuid.UUID, t store.BanType) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM bans WHERE scope = $1 AND subject_id = $2 AND type = $3`, scope, subjectID, t)
	return err
}

func (s *BanStore) ListFor(ctx context.Context, scope store.BanScope, subjectID uuid.UUID) ([]store.Ban, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scope, subject_id, type, expires_at, created_at FROM bans WHERE scope = $1 AND subject_id = $2`,
		scope, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Ban
	for rows.Next() {
		var b store.Ban
		if err := rows.Scan(&b.ID, &b.Scope, &b.SubjectID, &b.Type, &b.ExpiresAt, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
