package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// RedirectStore implements store.RedirectStore backed by Postgres: the
// join index that makes edit/delete/pin/reply lookups O(1) by
// (message, recipient).
type RedirectStore struct {
	db *sql.DB
}

func NewRedirectStore(db *sql.DB) *RedirectStore { return &RedirectStore{db: db} }

const redirectSelectCols = `id, message_id, to_member_id, mid, created_at`

func scanRedirect(row interface{ Scan(...any) error }) (*store.RedirectedMessage, error) {
	var r store.RedirectedMessage
	if err := row.Scan(&r.ID, &r.MessageID, &r.ToMemberID, &r.MID, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create enforces the "at most one redirect per (original, recipient)"
// invariant via the schema's unique index, upserting the mid on replay.
func (s *RedirectStore) Create(ctx context.Context, r *store.RedirectedMessage) error {
	if r.ID == uuid.Nil {
		r.ID = store.GenID()
	}
	r.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO redirected_messages (id, message_id, to_member_id, mid, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (message_id, to_member_id) DO UPDATE SET mid = EXCLUDED.mid`,
		r.ID, r.MessageID, r.ToMemberID, r.MID, r.CreatedAt,
	)
	return err
}

// GetByRecipient returns (nil, nil) when no redirect exists; this is
// not an error: the recipient was never delivered to.
func (s *RedirectStore) GetByRecipient(ctx context.Context, messageID, toMemberID uuid.UUID) (*store.RedirectedMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+redirectSelectCols+` FROM redirected_messages WHERE message_id = $1 AND to_member_id = $2`,
		messageID, toMemberID)
	r, err := scanRedirect(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *RedirectStore) GetByMID(ctx context.Context, toMemberID uuid.UUID, mid int) (*store.RedirectedMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+redirectSelectCols+` FROM redirected_messages WHERE to_member_id = $1 AND mid = $2`,
		toMemberID, mid)
	return scanRedirect(row)
}

func (s *RedirectStore) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]store.RedirectedMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+redirectSelectCols+` FROM redirected_messages WHERE message_id = $1`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RedirectedMessage
	for rows.Next() {
		r, err := scanRedirect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *RedirectStore) Delete(ctx context.Context, messageID, toMemberID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM redirected_messages WHERE message_id = $1 AND to_member_id = $2`, messageID, toMemberID)
	return err
}
