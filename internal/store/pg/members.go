package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// MemberStore implements store.MemberStore backed by Postgres.
type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore { return &MemberStore{db: db} }

const memberSelectCols = `id, user_id, group_id, telegram_id, role, ban_mask,
	pinned_mask, last_mask, mask_expires_at, last_activity, message_count`

func scanMember(row interface{ Scan(...any) error }) (*store.Member, error) {
	var m store.Member
	if err := row.Scan(
		&m.ID, &m.UserID, &m.GroupID, &m.TelegramID, &m.Role, &m.BanMask,
		&m.PinnedMask, &m.LastMask, &m.MaskExpiresAt, &m.LastActivity, &m.MessageCount,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOrCreate upserts a Member row for (groupID, userID), defaulting a
// brand-new member to GUEST.
func (s *MemberStore) GetOrCreate(ctx context.Context, groupID, userID uuid.UUID, telegramID int64) (*store.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberSelectCols+` FROM members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if m, err := scanMember(row); err == nil {
		return m, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	m := &store.Member{
		ID:           store.GenID(),
		UserID:       userID,
		GroupID:      groupID,
		TelegramID:   telegramID,
		Role:         store.RoleGuest,
		LastActivity: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, user_id, group_id, telegram_id, role, ban_mask,
		 pinned_mask, last_mask, last_activity, message_count)
		 VALUES ($1, $2, $3, $4, $5, 0, '', '', $6, 0)
		 ON CONFLICT (group_id, user_id) DO UPDATE SET telegram_id = EXCLUDED.telegram_id`,
		m.ID, m.UserID, m.GroupID, m.TelegramID, m.Role, m.LastActivity,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MemberStore) Get(ctx context.Context, groupID, userID uuid.UUID) (*store.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberSelectCols+` FROM members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	return scanMember(row)
}

func (s *MemberStore) GetByID(ctx context.Context, id uuid.UUID) (*store.Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberSelectCols+` FROM members WHERE id = $1`, id)
	return scanMember(row)
}

// UserMembers returns every member of groupID above LEFT and not
// BANNED, the recipient snapshot. Role ordinals are store.RoleLeft=0,
// store.RoleBanned=1: "role > LEFT and role != BANNED" collapses to
// "role > BANNED" in this ordered encoding.
func (s *MemberStore) UserMembers(ctx context.Context, groupID uuid.UUID) ([]store.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memberSelectCols+` FROM members WHERE group_id = $1 AND role > $2 ORDER BY last_activity`,
		groupID, store.RoleBanned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *MemberStore) SetRole(ctx context.Context, id uuid.UUID, role store.Role) error {
	_, err := s.db.ExecContext(ctx, `UPDATE members SET role = $2 WHERE id = $1`, id, role)
	return err
}

func (s *MemberStore) SetMask(ctx context.Context, id uuid.UUID, mask string, expiresAt *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE members SET last_mask = $2, mask_expires_at = $3 WHERE id = $1`, id, mask, expiresAt)
	return err
}

func (s *MemberStore) SetPinnedMask(ctx context.Context, id uuid.UUID, mask string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE members SET pinned_mask = $2 WHERE id = $1`, id, mask)
	return err
}

func (s *MemberStore) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE members SET last_activity = $2 WHERE id = $1`, id, at)
	return err
}

func (s *MemberStore) IncrMessageCount(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE members SET message_count = message_count + 1 WHERE id = $1`, id)
	return err
}
