package member

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// fakeMemberStore is a minimal in-memory stand-in for store.MemberStore,
// enough to exercise Directory's permission logic without a database.
type fakeMemberStore struct {
	members map[uuid.UUID]*store.Member
}

func newFakeMemberStore(members ...*store.Member) *fakeMemberStore {
	m := &fakeMemberStore{members: map[uuid.UUID]*store.Member{}}
	for _, mm := range members {
		m.members[mm.ID] = mm
	}
	return m
}

func (f *fakeMemberStore) GetOrCreate(ctx context.Context, groupID, userID uuid.UUID, telegramID int64) (*store.Member, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeMemberStore) Get(ctx context.Context, groupID, userID uuid.UUID) (*store.Member, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeMemberStore) GetByID(ctx context.Context, id uuid.UUID) (*store.Member, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return m, nil
}
func (f *fakeMemberStore) UserMembers(ctx context.Context, groupID uuid.UUID) ([]store.Member, error) {
	var out []store.Member
	for _, m := range f.members {
		if m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	return out, nil
}
func (f *fakeMemberStore) SetRole(ctx context.Context, id uuid.UUID, role store.Role) error {
	f.members[id].Role = role
	return nil
}
func (f *fakeMemberStore) SetMask(ctx context.Context, id uuid.UUID, mask string, expiresAt *time.Time) error {
	f.members[id].LastMask = mask
	f.members[id].MaskExpiresAt = expiresAt
	return nil
}
func (f *fakeMemberStore) SetPinnedMask(ctx context.Context, id uuid.UUID, mask string) error {
	f.members[id].PinnedMask = mask
	return nil
}
func (f *fakeMemberStore) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.members[id].LastActivity = at
	return nil
}
func (f *fakeMemberStore) IncrMessageCount(ctx context.Context, id uuid.UUID) error {
	f.members[id].MessageCount++
	return nil
}

type fakeBanStore struct {
	rows map[uuid.UUID][]store.Ban
}

func newFakeBanStore() *fakeBanStore { return &fakeBanStore{rows: map[uuid.UUID][]store.Ban{}} }

func (f *fakeBanStore) Upsert(ctx context.Context, b *store.Ban) error {
	rows := f.rows[b.SubjectID]
	for i, r := range rows {
		if r.Type == b.Type {
			rows[i] = *b
			f.rows[b.SubjectID] = rows
			return nil
		}
	}
	f.rows[b.SubjectID] = append(rows, *b)
	return nil
}
func (f *fakeBanStore) Clear(ctx context.Context, scope store.BanScope, subjectID uuid.UUID, t store.BanType) error {
	rows := f.rows[subjectID]
	out := rows[:0]
	for _, r := range rows {
		if r.Type != t {
			out = append(out, r)
		}
	}
	f.rows[subjectID] = out
	return nil
}
func (f *fakeBanStore) ListFor(ctx context.Context, scope store.BanScope, subjectID uuid.UUID) ([]store.Ban, error) {
	return f.rows[subjectID], nil
}

func newMember(groupID uuid.UUID, role store.Role) *store.Member {
	return &store.Member{ID: uuid.New(), GroupID: groupID, Role: role}
}

// Permission escalation denial: an actor with ADMIN_BAN attempts
// /ban on a target with role ADMIN → rejected with "Permission denied".
func TestBan_EscalationDenied(t *testing.T) {
	groupID := uuid.New()
	actor := newMember(groupID, store.RoleAdminBan)
	target := newMember(groupID, store.RoleAdmin)

	ms := newFakeMemberStore(actor, target)
	bs := newFakeBanStore()
	dir := NewDirectory(ms, nil, bs)

	err := dir.Ban(context.Background(), actor, target, store.BanMessage, nil)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

// Ban followed by unban returns the role to GUEST, not the member's
// prior role.
func TestBanThenUnban_RestoresGuestNotPriorRole(t *testing.T) {
	groupID := uuid.New()
	actor := newMember(groupID, store.RoleAdminBan)
	target := newMember(groupID, store.RoleAdminMsg)

	ms := newFakeMemberStore(actor, target)
	bs := newFakeBanStore()
	dir := NewDirectory(ms, nil, bs)
	ctx := context.Background()

	if err := dir.Ban(ctx, actor, target, store.BanMessage, nil); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if target.Role != store.RoleBanned {
		t.Fatalf("expected role BANNED, got %s", target.Role)
	}

	if err := dir.Unban(ctx, actor, target, store.BanMessage); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if target.Role != store.RoleGuest {
		t.Fatalf("expected role GUEST after unban, got %s", target.Role)
	}
}

func TestCanAct_SelfTargetRejected(t *testing.T) {
	groupID := uuid.New()
	actor := newMember(groupID, store.RoleAdminBan)

	ms := newFakeMemberStore(actor)
	bs := newFakeBanStore()
	dir := NewDirectory(ms, nil, bs)

	err := dir.Ban(context.Background(), actor, actor, store.BanMessage, nil)
	if !errors.Is(err, ErrSelfTarget) {
		t.Fatalf("expected ErrSelfTarget, got %v", err)
	}
}

func TestUserMembers_ExcludesLeftAndBanned(t *testing.T) {
	groupID := uuid.New()
	alive := newMember(groupID, store.RoleMember)
	left := newMember(groupID, store.RoleLeft)
	banned := newMember(groupID, store.RoleBanned)

	ms := newFakeMemberStore(alive, left, banned)
	dir := NewDirectory(ms, nil, newFakeBanStore())

	got, err := dir.UserMembers(context.Background(), groupID)
	if err != nil {
		t.Fatalf("UserMembers: %v", err)
	}
	if len(got) != 1 || got[0].ID != alive.ID {
		t.Fatalf("expected only the alive member, got %+v", got)
	}
}
