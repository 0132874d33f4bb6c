// Package member implements the member directory, the role lattice, and
// the ban matrix described by the fan-out engine's permission model.
package member

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// Directory wraps the member/group/ban repositories and enforces the
// permission matrix uniformly across every role-changing operation.
type Directory struct {
	Members store.MemberStore
	Groups  store.GroupStore
	Bans    store.BanStore
}

func NewDirectory(members store.MemberStore, groups store.GroupStore, bans store.BanStore) *Directory {
	return &Directory{Members: members, Groups: groups, Bans: bans}
}

// GetMember resolves the (user, group) member row.
func (d *Directory) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*store.Member, error) {
	return d.Members.Get(ctx, groupID, userID)
}

// UserMembers returns the current fan-out recipient snapshot: members
// whose role is above LEFT and who are not BANNED.
func (d *Directory) UserMembers(ctx context.Context, groupID uuid.UUID) ([]store.Member, error) {
	all, err := d.Members.UserMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]store.Member, 0, len(all))
	for _, m := range all {
		if m.Role > store.RoleLeft && m.Role != store.RoleBanned {
			out = append(out, m)
		}
	}
	return out, nil
}

// ValidateRole is the uniform permission gate: "role >= required".
// When fail is true, a non-satisfying role raises ErrPermissionDenied;
// when false, it returns (false, nil) instead.
func ValidateRole(actor store.Role, required store.Role, fail bool) (bool, error) {
	if actor >= required {
		return true, nil
	}
	if fail {
		return false, ErrPermissionDenied
	}
	return false, nil
}

// CheckBan resolves the ban matrix for one type: a per-member entry, if present and
// unexpired, wins; otherwise the group-wide default mask is consulted
// when checkGroup is true. fail controls whether a ban raises an error
// or is reported as a plain bool.
func (d *Directory) CheckBan(ctx context.Context, m *store.Member, g *store.Group, t store.BanType, checkGroup, fail bool) (bool, error) {
	now := time.Now()

	rows, err := d.Bans.ListFor(ctx, store.ScopeMember, m.ID)
	if err != nil {
		return false, err
	}
	for _, b := range rows {
		if b.Type == t && !b.Expired(now) {
			return banResult(true, fail)
		}
	}

	if checkGroup && g != nil && g.DefaultBanMask.Has(t) {
		return banResult(true, fail)
	}

	return banResult(false, fail)
}

func banResult(banned, fail bool) (bool, error) {
	if banned && fail {
		return true, NewOperationError("You are banned from doing that.")
	}
	return banned, nil
}

// canAct enforces the escalation rules shared by Ban/Unban/Promote, in
// this order:
//   - an actor may never target themselves
//   - targets with role >= ADMIN_ADMIN require actor role == CREATOR
//   - targets with role >= ADMIN require actor role >= ADMIN_ADMIN
//   - an actor may never act on a target whose role >= their own
func canAct(actor, target *store.Member) error {
	if actor.ID == target.ID {
		return ErrSelfTarget
	}
	if target.Role >= store.RoleAdminAdmin && actor.Role < store.RoleCreator {
		return ErrPermissionDenied
	}
	if target.Role >= store.RoleAdmin && actor.Role < store.RoleAdminAdmin {
		return ErrPermissionDenied
	}
	if target.Role >= actor.Role {
		return ErrOutranked
	}
	return nil
}

// Ban applies a typed, optionally expiring ban to target on behalf of
// actor, enforcing the escalation matrix first.
func (d *Directory) Ban(ctx context.Context, actor, target *store.Member, t store.BanType, expiresAt *time.Time) error {
	if _, err := ValidateRole(actor.Role, store.RoleAdminBan, true); err != nil {
		return err
	}
	if err := canAct(actor, target); err != nil {
		return err
	}
	if err := d.Bans.Upsert(ctx, &store.Ban{
		ID:        store.GenID(),
		Scope:     store.ScopeMember,
		SubjectID: target.ID,
		Type:      t,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}); err != nil {
		return err
	}
	return d.Members.SetRole(ctx, target.ID, store.RoleBanned)
}

// Unban lifts a ban and restores target to GUEST, not the member's
// prior role. Intentional: the prior role is not tracked.
func (d *Directory) Unban(ctx context.Context, actor, target *store.Member, t store.BanType) error {
	if _, err := ValidateRole(actor.Role, store.RoleAdminBan, true); err != nil {
		return err
	}
	if err := canAct(actor, target); err != nil {
		return err
	}
	if err := d.Bans.Clear(ctx, store.ScopeMember, target.ID, t); err != nil {
		return err
	}
	if target.Role == store.RoleBanned {
		return d.Members.SetRole(ctx, target.ID, store.RoleGuest)
	}
	return nil
}

// Promote changes target's role to newRole, gated by the same escalation
// matrix used for ban/unban.
func (d *Directory) Promote(ctx context.Context, actor, target *store.Member, newRole store.Role) error {
	if _, err := ValidateRole(actor.Role, store.RoleAdminAdmin, true); err != nil {
		return err
	}
	if err := canAct(actor, target); err != nil {
		return err
	}
	if newRole >= store.RoleAdminAdmin && actor.Role < store.RoleCreator {
		return ErrPermissionDenied
	}
	return d.Members.SetRole(ctx, target.ID, newRole)
}

// Kick demotes target to LEFT; a kicked member is retained for historical
// attribution but excluded from every subsequent fan-out.
func (d *Directory) Kick(ctx context.Context, actor, target *store.Member) error {
	if _, err := ValidateRole(actor.Role, store.RoleAdminBan, true); err != nil {
		return err
	}
	if err := canAct(actor, target); err != nil {
		return err
	}
	return d.Members.SetRole(ctx, target.ID, store.RoleLeft)
}

// Leave is the self-service equivalent of Kick.
func (d *Directory) Leave(ctx context.Context, m *store.Member) error {
	return d.Members.SetRole(ctx, m.ID, store.RoleLeft)
}
