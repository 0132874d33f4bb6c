package fanout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
	"github.com/anonchat/goclaw-anon/internal/transport"
)

// The fakes below are minimal in-memory repository stand-ins used only
// by this package's tests.

type fakeGroupStore struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*store.Group
}

func newFakeGroupStore(g *store.Group) *fakeGroupStore {
	return &fakeGroupStore{groups: map[uuid.UUID]*store.Group{g.ID: g}}
}

func (f *fakeGroupStore) Create(ctx context.Context, g *store.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[g.ID] = g
	return nil
}
func (f *fakeGroupStore) Get(ctx context.Context, id uuid.UUID) (*store.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return nil, fmt.Errorf("group not found")
	}
	return g, nil
}
func (f *fakeGroupStore) GetByUsername(ctx context.Context, username string) (*store.Group, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeGroupStore) GetByBotToken(ctx context.Context, token string) (*store.Group, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeGroupStore) ListActive(ctx context.Context) ([]store.Group, error) { return nil, nil }
func (f *fakeGroupStore) Disable(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[id].Disabled = true
	return nil
}
func (f *fakeGroupStore) IncrMessageCount(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[id].NMessages++
	return nil
}
func (f *fakeGroupStore) SetMemberCount(ctx context.Context, id uuid.UUID, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[id].NMembers = n
	return nil
}

type fakeMemberStore struct {
	mu      sync.Mutex
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
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeMemberStore) Get(ctx context.Context, groupID, userID uuid.UUID) (*store.Member, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeMemberStore) GetByID(ctx context.Context, id uuid.UUID) (*store.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return nil, fmt.Errorf("member not found")
	}
	return m, nil
}
func (f *fakeMemberStore) UserMembers(ctx context.Context, groupID uuid.UUID) ([]store.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Member
	for _, m := range f.members {
		if m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	return out, nil
}
func (f *fakeMemberStore) SetRole(ctx context.Context, id uuid.UUID, role store.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id].Role = role
	return nil
}
func (f *fakeMemberStore) SetMask(ctx context.Context, id uuid.UUID, mask string, expiresAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id].LastMask = mask
	f.members[id].MaskExpiresAt = expiresAt
	return nil
}
func (f *fakeMemberStore) SetPinnedMask(ctx context.Context, id uuid.UUID, mask string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id].PinnedMask = mask
	return nil
}
func (f *fakeMemberStore) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id].LastActivity = at
	return nil
}
func (f *fakeMemberStore) IncrMessageCount(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id].MessageCount++
	return nil
}

type fakeRedirectStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID][]store.RedirectedMessage // messageID -> rows
}

func newFakeRedirectStore() *fakeRedirectStore {
	return &fakeRedirectStore{rows: map[uuid.UUID][]store.RedirectedMessage{}}
}

func (f *fakeRedirectStore) Create(ctx context.Context, r *store.RedirectedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[r.MessageID] = append(f.rows[r.MessageID], *r)
	return nil
}
func (f *fakeRedirectStore) GetByRecipient(ctx context.Context, messageID, toMemberID uuid.UUID) (*store.RedirectedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows[messageID] {
		if r.ToMemberID == toMemberID {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}
func (f *fakeRedirectStore) GetByMID(ctx context.Context, toMemberID uuid.UUID, mid int) (*store.RedirectedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rows := range f.rows {
		for _, r := range rows {
			if r.ToMemberID == toMemberID && r.MID == mid {
				cp := r
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("not found")
}
func (f *fakeRedirectStore) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]store.RedirectedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.RedirectedMessage, len(f.rows[messageID]))
	copy(out, f.rows[messageID])
	return out, nil
}
func (f *fakeRedirectStore) Delete(ctx context.Context, messageID, toMemberID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[messageID]
	out := rows[:0]
	for _, r := range rows {
		if r.ToMemberID != toMemberID {
			out = append(out, r)
		}
	}
	f.rows[messageID] = out
	return nil
}

// fakeTransport records every call and lets tests script per-user errors.
type fakeTransport struct {
	mu        sync.Mutex
	nextMID   int
	blockedTo map[int64]bool
	failTo    map[int64]error
	copies    []copyCall
	edits     []editCall
	deletes   []deleteCall
	pins      []pinCall
}

type copyCall struct {
	toUserID   int64
	src        transport.CopySource
	text       string
	replyToMID int
}
type editCall struct {
	toUserID int64
	mid      int
	text     string
}
type deleteCall struct {
	toUserID int64
	mid      int
}
type pinCall struct {
	toUserID int64
	mid      int
	pin      bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{blockedTo: map[int64]bool{}, failTo: map[int64]error{}}
}

func (f *fakeTransport) Copy(ctx context.Context, toUserID int64, src transport.CopySource, text string, replyToMID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, copyCall{toUserID, src, text, replyToMID})
	if f.blockedTo[toUserID] {
		return 0, transport.ErrUserBlocked
	}
	if err, ok := f.failTo[toUserID]; ok {
		return 0, err
	}
	f.nextMID++
	return f.nextMID, nil
}
func (f *fakeTransport) EditText(ctx context.Context, toUserID int64, mid int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editCall{toUserID, mid, text})
	return nil
}
func (f *fakeTransport) Delete(ctx context.Context, toUserID int64, mid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, deleteCall{toUserID, mid})
	return nil
}
func (f *fakeTransport) Pin(ctx context.Context, toUserID int64, mid int, disableNotification bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins = append(f.pins, pinCall{toUserID, mid, true})
	return nil
}
func (f *fakeTransport) Unpin(ctx context.Context, toUserID int64, mid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins = append(f.pins, pinCall{toUserID, mid, false})
	return nil
}

type fakeMaskStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]store.MaskEntry // memberID -> entry
}

func newFakeMaskStore() *fakeMaskStore {
	return &fakeMaskStore{entries: map[uuid.UUID]store.MaskEntry{}}
}

func (f *fakeMaskStore) Upsert(ctx context.Context, e *store.MaskEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.MemberID] = *e
	return nil
}
func (f *fakeMaskStore) Delete(ctx context.Context, memberID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, memberID)
	return nil
}
func (f *fakeMaskStore) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]store.MaskEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.MaskEntry
	for _, e := range f.entries {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeBanStore struct{}

func (fakeBanStore) Upsert(ctx context.Context, b *store.Ban) error { return nil }
func (fakeBanStore) Clear(ctx context.Context, scope store.BanScope, subjectID uuid.UUID, t store.BanType) error {
	return nil
}
func (fakeBanStore) ListFor(ctx context.Context, scope store.BanScope, subjectID uuid.UUID) ([]store.Ban, error) {
	return nil, nil
}
