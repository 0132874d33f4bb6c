package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// MessageStore implements store.MessageStore backed by Postgres.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore { return &MessageStore{db: db} }

const messageSelectCols = `id, member_id, group_id, mask_used, sender_mid, text,
	has_media, media_file_id, reply_to_id, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*store.Message, error) {
	var m store.Message
	var replyTo uuid.NullUUID
	if err := row.Scan(
		&m.ID, &m.MemberID, &m.GroupID, &m.MaskUsed, &m.SenderMID, &m.Text,
		&m.HasMedia, &m.MediaFileID, &replyTo, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	if replyTo.Valid {
		m.ReplyToID = replyTo.UUID
	}
	return &m, nil
}

func (s *MessageStore) Create(ctx context.Context, m *store.Message) error {
	if m.ID == uuid.Nil {
		m.ID = store.GenID()
	}
	m.CreatedAt = time.Now()
	var replyTo uuid.NullUUID
	if m.ReplyToID != uuid.Nil {
		replyTo = uuid.NullUUID{UUID: m.ReplyToID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, member_id, group_id, mask_used, sender_mid, text,
		 has_media, media_file_id, reply_to_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.MemberID, m.GroupID, m.MaskUsed, m.SenderMID, m.Text,
		m.HasMedia, m.MediaFileID, replyTo, m.CreatedAt,
	)
	return err
}

func (s *MessageStore) Get(ctx context.Context, id uuid.UUID) (*store.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageSelectCols+` FROM messages WHERE id = $1`, id)
	return scanMessage(row)
}

func (s *MessageStore) UpdateText(ctx context.Context, id uuid.UUID, text string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE messages SET text = $2 WHERE id = $1`, id, text)
	return err
}

func (s *MessageStore) GetBySenderMID(ctx context.Context, memberID uuid.UUID, mid int) (*store.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageSelectCols+` FROM messages WHERE member_id = $1 AND sender_mid = $2`, memberID, mid)
	return scanMessage(row)
}
