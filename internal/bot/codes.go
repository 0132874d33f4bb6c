package bot

import (
	"context"
	"time"

	"github.com/anonchat/goclaw-anon/internal/member"
	"github.com/anonchat/goclaw-anon/internal/store"
)

// ResolveInviteCode consumes an invite code minted by the father bot's
// _usecode deep link: it validates the code against this bot's group,
// joins the holder with the code's granted role, and sends the group's
// welcome message and rules. Menu rendering around this flow stays the
// father bot's concern; this is the hook it calls into.
func (b *Bot) ResolveInviteCode(ctx context.Context, code string, telegramID int64, displayName string) error {
	c, err := b.Stores.Codes.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if c == nil || c.GroupID != b.GroupID {
		return member.NewOperationError("Invalid code.")
	}
	if !c.Usable(time.Now()) {
		return member.NewOperationError("This code has expired.")
	}

	u, err := b.Stores.Users.GetOrCreateByTelegramID(ctx, telegramID, displayName)
	if err != nil {
		return err
	}
	m, err := b.Stores.Members.GetOrCreate(ctx, b.GroupID, u.ID, telegramID)
	if err != nil {
		return err
	}
	if m.Role == store.RoleBanned {
		return member.NewOperationError("You are banned from this group.")
	}
	if m.Role < c.Role {
		if err := b.Stores.Members.SetRole(ctx, m.ID, c.Role); err != nil {
			return err
		}
	}
	if err := b.Stores.Codes.IncrUses(ctx, c.ID); err != nil {
		return err
	}

	if all, err := b.Directory.UserMembers(ctx, b.GroupID); err == nil {
		_ = b.Stores.Groups.SetMemberCount(ctx, b.GroupID, len(all))
	}

	group, err := b.Stores.Groups.Get(ctx, b.GroupID)
	if err != nil {
		return err
	}
	welcome := group.Welcome
	if welcome == "" {
		welcome = "Welcome. Everything you send here is re-broadcast anonymously to the whole group."
	}
	b.reply(ctx, telegramID, welcome)
	if group.Rules != "" {
		b.reply(ctx, telegramID, group.Rules)
	}
	return nil
}
