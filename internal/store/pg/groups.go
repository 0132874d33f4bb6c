package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// GroupStore implements store.GroupStore backed by Postgres.
type GroupStore struct {
	db *sql.DB
}

func NewGroupStore(db *sql.DB) *GroupStore { return &GroupStore{db: db} }

const groupSelectCols = `id, username, bot_token, creator_id, disabled, default_ban_mask,
	welcome, rules, n_members, n_messages, created_at, updated_at`

func scanGroup(row interface{ Scan(...any) error }) (*store.Group, error) {
	var g store.Group
	if err := row.Scan(
		&g.ID, &g.Username, &g.BotToken, &g.CreatorID, &g.Disabled, &g.DefaultBanMask,
		&g.Welcome, &g.Rules, &g.NMembers, &g.NMessages, &g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GroupStore) Create(ctx context.Context, g *store.Group) error {
	now := time.Now()
	g.CreatedAt, g.UpdatedAt = now, now
	if g.ID == uuid.Nil {
		g.ID = store.GenID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (id, username, bot_token, creator_id, disabled, default_ban_mask,
		 welcome, rules, n_members, n_messages, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		g.ID, g.Username, g.BotToken, g.CreatorID, g.Disabled, g.DefaultBanMask,
		g.Welcome, g.Rules, g.NMembers, g.NMessages, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

func (s *GroupStore) Get(ctx context.Context, id uuid.UUID) (*store.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupSelectCols+` FROM groups WHERE id = $1`, id)
	return scanGroup(row)
}

func (s *GroupStore) GetByUsername(ctx context.Context, username string) (*store.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupSelectCols+` FROM groups WHERE username = $1`, username)
	return scanGroup(row)
}

func (s *GroupStore) GetByBotToken(ctx context.Context, token string) (*store.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupSelectCols+` FROM groups WHERE bot_token = $1`, token)
	return scanGroup(row)
}

func (s *GroupStore) ListActive(ctx context.Context) ([]store.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+groupSelectCols+` FROM groups WHERE disabled = false ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *GroupStore) Disable(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE groups SET disabled = true, updated_at = now() WHERE id = $1`, id)
	return err
}

func (s *GroupStore) IncrMessageCount(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE groups SET n_messages = n_messages + 1, updated_at = now() WHERE id = $1`, id)
	return err
}

func (s *GroupStore) SetMemberCount(ctx context.Context, id uuid.UUID, n int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE groups SET n_members = $2, updated_at = now() WHERE id = $1`, id, n)
	return err
}
