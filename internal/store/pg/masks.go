package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// MaskStore implements store.MaskStore backed by Postgres: the persisted
// mirror of each group's in-memory mask pool, reloaded at startup so
// masks do not silently change when the process restarts.
type MaskStore struct {
	db *sql.DB
}

func NewMaskStore(db *sql.DB) *MaskStore { return &MaskStore{db: db} }

func (s *MaskStore) Upsert(ctx context.Context, e *store.MaskEntry) error {
	if e.ID == uuid.Nil {
		e.ID = store.GenID()
	}
	now := time.Now()
	e.LastSeen = now
	e.CreatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mask_entries (id, group_id, member_id, mask, pinned, last_seen, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (member_id) DO UPDATE SET mask = EXCLUDED.mask, pinned = EXCLUDED.pinned, last_seen = EXCLUDED.last_seen`,
		e.ID, e.GroupID, e.MemberID, e.Mask, e.Pinned, e.LastSeen, e.CreatedAt,
	)
	return err
}

func (s *MaskStore) Delete(ctx context.Context, memberID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM mask_entries WHERE member_id = $1`, memberID)
	return err
}

func (s *MaskStore) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]store.MaskEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, member_id, mask, pinned, last_seen, created_at
		 FROM mask_entries WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.MaskEntry
	for rows.Next() {
		var e store.MaskEntry
		if err := rows.Scan(&e.ID, &e.GroupID, &e.MemberID, &e.Mask, &e.Pinned, &e.LastSeen, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
