// Package store defines the repository interfaces the fan-out engine is
// built against. Concrete implementations live in internal/store/pg.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stores is the top-level container for all repository backends consumed
// by the fan-out engine and the bot command layer.
type Stores struct {
	Users     UserStore
	Groups    GroupStore
	Members   MemberStore
	Messages  MessageStore
	Redirects RedirectStore
	PMs       PMStore
	Bans      BanStore
	Masks     MaskStore
	Codes     CodeStore
}

// UserStore persists transport-level identities.
type UserStore interface {
	GetOrCreateByTelegramID(ctx context.Context, telegramID int64, displayName string) (*User, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
}

// GroupStore persists Group rows and their lifecycle.
type GroupStore interface {
	Create(ctx context.Context, g *Group) error
	Get(ctx context.Context, id uuid.UUID) (*Group, error)
	GetByUsername(ctx context.Context, username string) (*Group, error)
	GetByBotToken(ctx context.Context, token string) (*Group, error)
	ListActive(ctx context.Context) ([]Group, error)
	Disable(ctx context.Context, id uuid.UUID) error
	IncrMessageCount(ctx context.Context, id uuid.UUID) error
	SetMemberCount(ctx context.Context, id uuid.UUID, n int) error
}

// MemberStore persists Member rows and role/mask/activity state.
type MemberStore interface {
	GetOrCreate(ctx context.Context, groupID, userID uuid.UUID, telegramID int64) (*Member, error)
	Get(ctx context.Context, groupID, userID uuid.UUID) (*Member, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	// UserMembers returns a snapshot of members with role > LEFT and role != BANNED.
	UserMembers(ctx context.Context, groupID uuid.UUID) ([]Member, error)
	SetRole(ctx context.Context, id uuid.UUID, role Role) error
	SetMask(ctx context.Context, id uuid.UUID, mask string, expiresAt *time.Time) error
	SetPinnedMask(ctx context.Context, id uuid.UUID, mask string) error
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error
	IncrMessageCount(ctx context.Context, id uuid.UUID) error
}

// MessageStore persists original member-authored messages.
type MessageStore interface {
	Create(ctx context.Context, m *Message) error
	Get(ctx context.Context, id uuid.UUID) (*Message, error)
	// GetBySenderMID resolves a message by (transport mid, member) in the
	// sender's own private chat with the bot.
	GetBySenderMID(ctx context.Context, memberID uuid.UUID, mid int) (*Message, error)
	// UpdateText persists an edited message's new text so later replies
	// and re-edits see the current content.
	UpdateText(ctx context.Context, id uuid.UUID, text string) error
}

// RedirectStore persists RedirectedMessage rows, the join index used by
// edit/delete/pin/reply to target the correct per-recipient transport mid.
type RedirectStore interface {
	Create(ctx context.Context, r *RedirectedMessage) error
	// GetByRecipient looks up the redirect for (message, recipient).
	GetByRecipient(ctx context.Context, messageID, toMemberID uuid.UUID) (*RedirectedMessage, error)
	// GetByMID resolves a redirect by the incoming (mid, recipient) pair,
	// used when a recipient replies to a copy they received.
	GetByMID(ctx context.Context, toMemberID uuid.UUID, mid int) (*RedirectedMessage, error)
	ListByMessage(ctx context.Context, messageID uuid.UUID) ([]RedirectedMessage, error)
	Delete(ctx context.Context, messageID, toMemberID uuid.UUID) error
}

// PMStore persists private-message redirects and the PM deny-list.
type PMStore interface {
	Create(ctx context.Context, p *PMMessage) error
	GetByRedirectedMID(ctx context.Context, toMemberID uuid.UUID, redirectedMID int) (*PMMessage, error)
	IsBanned(ctx context.Context, from, to uuid.UUID) (bool, error)
	Ban(ctx context.Context, from, to uuid.UUID) error
	Unban(ctx context.Context, from, to uuid.UUID) error
}

// BanStore persists the typed ban matrix rows.
type BanStore interface {
	Upsert(ctx context.Context, b *Ban) error
	Clear(ctx context.Context, scope BanScope, subjectID uuid.UUID, t BanType) error
	ListFor(ctx context.Context, scope BanScope, subjectID uuid.UUID) ([]Ban, error)
}

// MaskStore persists mask assignments so a group's pool state survives
// restarts. At most one row exists per member.
type MaskStore interface {
	Upsert(ctx context.Context, e *MaskEntry) error
	Delete(ctx context.Context, memberID uuid.UUID) error
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]MaskEntry, error)
}

// CodeStore persists invite codes minted by the father bot.
type CodeStore interface {
	Create(ctx context.Context, c *Code) error
	GetByCode(ctx context.Context, code string) (*Code, error)
	IncrUses(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GenID generates a new primary key the way the repository layer
// expects them: application-side UUIDs.
func GenID() uuid.UUID { return uuid.New() }
