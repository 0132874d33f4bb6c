package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// PMStore implements store.PMStore backed by Postgres: the private-
// message redirect map plus the directed PM deny-list.
type PMStore struct {
	db *sql.DB
}

func NewPMStore(db *sql.DB) *PMStore { return &PMStore{db: db} }

func (s *PMStore) Create(ctx context.Context, p *store.PMMessage) error {
	if p.ID == uuid.Nil {
		p.ID = store.GenID()
	}
	p.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pm_messages (id, from_member_id, to_member_id, original_mid, redirected_mid, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.FromMemberID, p.ToMemberID, p.OriginalMID, p.RedirectedMID, p.CreatedAt,
	)
	return err
}

func (s *PMStore) GetByRedirectedMID(ctx context.Context, toMemberID uuid.UUID, redirectedMID int) (*store.PMMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, from_member_id, to_member_id, original_mid, redirected_mid, created_at
		 FROM pm_messages WHERE to_member_id = $1 AND redirected_mid = $2`,
		toMemberID, redirectedMID)
	var p store.PMMessage
	if err := row.Scan(&p.ID, &p.FromMemberID, &p.ToMemberID, &p.OriginalMID, &p.RedirectedMID, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PMStore) IsBanned(ctx context.Context, from, to uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pm_bans WHERE from_member_id = $1 AND to_member_id = $2)`,
		from, to).Scan(&exists)
	return exists, err
}

func (s *PMStore) Ban(ctx context.Context, from, to uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pm_bans (from_member_id, to_member_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (from_member_id, to_member_id) DO NOTHING`,
		from, to, time.Now(),
	)
	return err
}

func (s *PMStore) Unban(ctx context.Context, from, to uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pm_bans WHERE from_member_id = $1 AND to_member_id = $2`, from, to)
	return err
}
