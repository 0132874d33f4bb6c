// Package store defines the repository interfaces the fan-out engine is
// built against. Concrete implementations live in internal/store/pg.
package store

import (
	"time"

	"github.com/google/uuid"
)

// User is a transport-level identity, independent of any group.
type User struct {
	ID          uuid.UUID
	TelegramID  int64
	DisplayName string
	CreatedAt   time.Time
}

// Group is a logical anonymous room backed by its own bot token.
type Group struct {
	ID             uuid.UUID
	Username       string
	BotToken       string
	CreatorID      uuid.UUID
	Disabled       bool
	DefaultBanMask BanMask
	Welcome        string
	Rules          string
	NMembers       int
	NMessages      int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Member is a (User, Group) pair carrying role, mask, and ban state.
type Member struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	GroupID       uuid.UUID
	TelegramID    int64
	Role          Role
	BanMask       BanMask
	PinnedMask    string // empty = no pinned mask
	LastMask      string
	MaskExpiresAt *time.Time
	LastActivity  time.Time
	MessageCount  int
}

// Message is an original member-authored message.
type Message struct {
	ID          uuid.UUID
	MemberID    uuid.UUID
	GroupID     uuid.UUID
	MaskUsed    string
	SenderMID   int // transport mid in the sender's private chat with the bot
	Text        string
	HasMedia    bool
	MediaFileID string
	ReplyToID   uuid.UUID // uuid.Nil = no reply
	CreatedAt   time.Time
}

// RedirectedMessage binds an original Message to the transport mid of the
// copy delivered to one recipient Member.
type RedirectedMessage struct {
	ID         uuid.UUID
	MessageID  uuid.UUID
	ToMemberID uuid.UUID
	MID        int
	CreatedAt  time.Time
}

// PMMessage binds a private message copy delivered through the bot.
type PMMessage struct {
	ID            uuid.UUID
	FromMemberID  uuid.UUID
	ToMemberID    uuid.UUID
	OriginalMID   int
	RedirectedMID int
	CreatedAt     time.Time
}

// PMBan is a directed deny-list entry for private messages.
type PMBan struct {
	FromMemberID uuid.UUID
	ToMemberID   uuid.UUID
	CreatedAt    time.Time
}

// Role is the ordered member-role lattice. Higher values dominate lower
// ones; every permission check reduces to actor.Role >= required.
type Role int

const (
	RoleLeft Role = iota
	RoleBanned
	RoleGuest
	RoleMember
	RoleAdminMsg
	RoleAdminBan
	RoleAdminAdmin
	RoleAdmin
	RoleCreator
)

func (r Role) String() string {
	switch r {
	case RoleLeft:
		return "LEFT"
	case RoleBanned:
		return "BANNED"
	case RoleGuest:
		return "GUEST"
	case RoleMember:
		return "MEMBER"
	case RoleAdminMsg:
		return "ADMIN_MSG"
	case RoleAdminBan:
		return "ADMIN_BAN"
	case RoleAdminAdmin:
		return "ADMIN_ADMIN"
	case RoleAdmin:
		return "ADMIN"
	case RoleCreator:
		return "CREATOR"
	default:
		return "UNKNOWN"
	}
}

// BanType enumerates the typed restriction bits of the ban matrix.
type BanType int

const (
	BanMessage BanType = iota
	BanMedia
	BanSticker
	BanLink
	BanReceive
	BanPMUser
	BanPMAdmin
)

// BanMask is a bitmask over BanType, used for the group-wide default ban
// and for each member's ban_mask column. A Ban row holds a single
// BanType, not a mask.
type BanMask uint32

func (m BanMask) Has(t BanType) bool { return m&(1<<uint(t)) != 0 }
func (m BanMask) Set(t BanType) BanMask { return m | (1 << uint(t)) }
func (m BanMask) Clear(t BanType) BanMask { return m &^ (1 << uint(t)) }

// BanScope identifies whether a Ban row applies to one member or to an
// entire group (the group-wide default mask).
type BanScope string

const (
	ScopeMember BanScope = "member"
	ScopeGroup  BanScope = "group"
)

// MaskEntry is the persisted form of one mask assignment, so a group's
// pool survives process restarts without masks silently changing.
type MaskEntry struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	MemberID  uuid.UUID
	Mask      string
	Pinned    bool
	LastSeen  time.Time
	CreatedAt time.Time
}

// Code is an invite code minted by the father bot's _usecode deep link.
// Consuming it joins the holder to the group with the granted role.
type Code struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	Code      string
	Role      Role // role granted on consumption
	MaxUses   int  // 0 = unlimited
	Uses      int
	ExpiresAt *time.Time // nil = never expires
	CreatedAt time.Time
}

// Usable reports whether the code can still be consumed as of now.
func (c Code) Usable(now time.Time) bool {
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	return c.MaxUses == 0 || c.Uses < c.MaxUses
}

// Ban is one (scope, subject, type, expiry) row of the ban matrix.
type Ban struct {
	ID        uuid.UUID
	Scope     BanScope
	SubjectID uuid.UUID // MemberID or GroupID depending on Scope
	Type      BanType
	ExpiresAt *time.Time // nil = permanent
	CreatedAt time.Time
}

// Expired reports whether the ban has lapsed as of now.
func (b Ban) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && now.After(*b.ExpiresAt)
}
