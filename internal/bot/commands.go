package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"

	"github.com/anonchat/goclaw-anon/internal/fanout"
	"github.com/anonchat/goclaw-anon/internal/mask"
	"github.com/anonchat/goclaw-anon/internal/member"
	"github.com/anonchat/goclaw-anon/internal/store"
	"github.com/anonchat/goclaw-anon/internal/transport"
)

// handleCommand dispatches the group bot's command surface. Every
// handler is responsible for its own validation and for deleting the
// originating command message once it has answered.
func (b *Bot) handleCommand(ctx context.Context, m *store.Member, msg *telego.Message, text string) {
	fields := strings.SplitN(text, " ", 2)
	cmd := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
	var arg string
	if len(fields) > 1 {
		arg = strings.TrimSpace(fields[1])
	}

	switch cmd {
	case "/delete":
		b.cmdDelete(ctx, m, msg)
	case "/change":
		b.cmdChange(ctx, m, msg)
	case "/setmask":
		b.cmdSetmask(ctx, m, msg)
	case "/ban":
		b.cmdBan(ctx, m, msg, arg)
	case "/unban":
		b.cmdUnban(ctx, m, msg, arg)
	case "/pin":
		b.cmdPin(ctx, m, msg, true)
	case "/unpin":
		b.cmdPin(ctx, m, msg, false)
	case "/reveal":
		b.cmdReveal(ctx, m, msg)
	case "/manage":
		b.cmdManage(ctx, m, msg)
	case "/pm":
		b.cmdPM(ctx, m, msg, arg)
	default:
		// Unknown commands fall through silently.
	}
}

// reportError renders a domain error to the actor and deletes their
// command message. Anything unexpected gets logged and a generic
// apology instead.
func (b *Bot) reportError(ctx context.Context, m *store.Member, msg *telego.Message, err error) {
	var opErr *member.OperationError
	switch {
	case errors.As(err, &opErr):
		b.reply(ctx, m.TelegramID, opErr.Msg)
	case errors.Is(err, mask.ErrNotAvailable):
		b.reply(ctx, m.TelegramID, "no mask currently available")
	default:
		slog.Warn("bot: command failed", "group", b.GroupID, "cmd", msg.Text, "error", err)
		b.reply(ctx, m.TelegramID, "Something went wrong. Please try again.")
	}
	_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
}

// waitAndReport enqueues op, waits up to the configured timeout, and
// reports a delivered-k/n summary or a timeout notice.
func (b *Bot) waitAndReport(ctx context.Context, m *store.Member, msg *telego.Message, op *fanout.Operation, verb string) {
	b.Fanout.Enqueue(ctx, op)
	if err := op.Wait(b.Timeouts.OperationWait); err != nil {
		b.replyEphemeral(ctx, m.TelegramID, "Timeout", b.Timeouts.StatusLifetime)
		_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
		return
	}
	delivered := op.Requests - op.Errors
	b.replyEphemeral(ctx, m.TelegramID, fmt.Sprintf("%s: delivered %d/%d", verb, delivered, op.Requests), b.Timeouts.StatusLifetime)
	_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
}

// cmdDelete implements /delete: a member deletes their own message;
// ADMIN_BAN+ may delete anyone's.
func (b *Bot) cmdDelete(ctx context.Context, m *store.Member, msg *telego.Message) {
	if msg.ReplyToMessage == nil {
		b.reportError(ctx, m, msg, member.NewOperationError("Reply to the message you want to delete."))
		return
	}
	group, err := b.Stores.Groups.Get(ctx, b.GroupID)
	if err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	// A member banned from messaging may not delete either.
	if _, err := b.Directory.CheckBan(ctx, m, group, store.BanMessage, true, true); err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	target, err := b.resolveReplyTarget(ctx, m, msg.ReplyToMessage.MessageID)
	if err != nil {
		b.reportError(ctx, m, msg, member.NewOperationError("not an anonymous message or outdated"))
		return
	}
	if target.MemberID != m.ID {
		if _, err := member.ValidateRole(m.Role, store.RoleAdminBan, true); err != nil {
			b.reportError(ctx, m, msg, member.NewOperationError("Only messages sent by you can be deleted."))
			return
		}
	}

	op := fanout.NewOperation(fanout.KindDelete, b.GroupID)
	op.Message = target
	b.waitAndReport(ctx, m, msg, op, "delete")
}

// cmdChange implements /change: force mask renewal.
func (b *Bot) cmdChange(ctx context.Context, m *store.Member, msg *telego.Message) {
	_, maskStr, err := b.MaskPool.GetMask(m.ID, true)
	if err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	_ = b.Stores.Members.SetMask(ctx, m.ID, maskStr, nil)
	_ = b.Stores.Masks.Upsert(ctx, &store.MaskEntry{GroupID: b.GroupID, MemberID: m.ID, Mask: maskStr})
	b.replyEphemeral(ctx, m.TelegramID, "Your new mask: "+maskStr, b.Timeouts.StatusLifetime)
	_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
}

// cmdSetmask starts the 120s /setmask wizard; the actual emoji is
// consumed by consumeSetmaskReply on the member's next message.
func (b *Bot) cmdSetmask(ctx context.Context, m *store.Member, msg *telego.Message) {
	b.pendingSetmask.Store(m.ID, time.Now().Add(b.Timeouts.SetmaskWait))
	b.reply(ctx, m.TelegramID, "Send the emoji you want to use as your mask within 120 seconds.")
	_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
}

// consumeSetmaskReply reports whether msg was consumed as the pending
// /setmask wizard's answer.
func (b *Bot) consumeSetmaskReply(ctx context.Context, m *store.Member, msg *telego.Message) bool {
	v, ok := b.pendingSetmask.Load(m.ID)
	if !ok {
		return false
	}
	b.pendingSetmask.Delete(m.ID)

	deadline := v.(time.Time)
	if time.Now().After(deadline) {
		b.reply(ctx, m.TelegramID, "Timeout")
		return true
	}

	candidate := messageText(msg)
	if err := mask.ValidatePinnable(candidate); err != nil {
		b.reply(ctx, m.TelegramID, "That doesn't look like a single emoji. /setmask cancelled.")
		return true
	}

	if err := b.MaskPool.SetPinned(m.ID, candidate); err != nil {
		b.reply(ctx, m.TelegramID, "That mask is already in use by another member. /setmask cancelled.")
		return true
	}
	_ = b.Stores.Members.SetPinnedMask(ctx, m.ID, candidate)
	_ = b.Stores.Masks.Upsert(ctx, &store.MaskEntry{GroupID: b.GroupID, MemberID: m.ID, Mask: candidate, Pinned: true})
	b.reply(ctx, m.TelegramID, "Your mask is now pinned to "+candidate)
	return true
}

// resolveTargetMember resolves a /ban or /unban target either from an
// explicit numeric Telegram ID argument or from the member replied to.
func (b *Bot) resolveTargetMember(ctx context.Context, msg *telego.Message, arg string) (*store.Member, error) {
	var telegramID int64
	if arg != "" {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, member.NewOperationError("Usage: /ban <telegram id>, or reply to a message.")
		}
		telegramID = id
	} else if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		telegramID = msg.ReplyToMessage.From.ID
	} else {
		return nil, member.NewOperationError("Reply to a message or pass a telegram id.")
	}

	u, err := b.Stores.Users.GetOrCreateByTelegramID(ctx, telegramID, "")
	if err != nil {
		return nil, err
	}
	return b.Stores.Members.Get(ctx, b.GroupID, u.ID)
}

// cmdBan implements /ban: replying to a PM copy bans that PM sender
// instead of touching group membership.
func (b *Bot) cmdBan(ctx context.Context, m *store.Member, msg *telego.Message, arg string) {
	if msg.ReplyToMessage != nil {
		if pm, err := b.Stores.PMs.GetByRedirectedMID(ctx, m.ID, msg.ReplyToMessage.MessageID); err == nil && pm != nil {
			if err := b.Stores.PMs.Ban(ctx, m.ID, pm.FromMemberID); err != nil {
				b.reportError(ctx, m, msg, err)
				return
			}
			b.replyEphemeral(ctx, m.TelegramID, "PM sender banned.", b.Timeouts.StatusLifetime)
			_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
			return
		}
	}

	target, err := b.resolveTargetMember(ctx, msg, arg)
	if err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	if err := b.Directory.Ban(ctx, m, target, store.BanMessage, nil); err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	b.MaskPool.Release(target.ID)
	_ = b.Stores.Masks.Delete(ctx, target.ID)
	b.replyEphemeral(ctx, m.TelegramID, "Member banned.", b.Timeouts.StatusLifetime)
	_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
}

// cmdUnban implements /unban, the symmetric counterpart. A lifted ban
// restores GUEST, not the prior role.
func (b *Bot) cmdUnban(ctx context.Context, m *store.Member, msg *telego.Message, arg string) {
	if msg.ReplyToMessage != nil {
		if pm, err := b.Stores.PMs.GetByRedirectedMID(ctx, m.ID, msg.ReplyToMessage.MessageID); err == nil && pm != nil {
			if err := b.Stores.PMs.Unban(ctx, m.ID, pm.FromMemberID); err != nil {
				b.reportError(ctx, m, msg, err)
				return
			}
			b.replyEphemeral(ctx, m.TelegramID, "PM sender unbanned.", b.Timeouts.StatusLifetime)
			_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
			return
		}
	}

	target, err := b.resolveTargetMember(ctx, msg, arg)
	if err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	if err := b.Directory.Unban(ctx, m, target, store.BanMessage); err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	b.replyEphemeral(ctx, m.TelegramID, "Member unbanned.", b.Timeouts.StatusLifetime)
	_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
}

// cmdPin implements /pin and /unpin, both requiring ADMIN_MSG.
func (b *Bot) cmdPin(ctx context.Context, m *store.Member, msg *telego.Message, pin bool) {
	if _, err := member.ValidateRole(m.Role, store.RoleAdminMsg, true); err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	if msg.ReplyToMessage == nil {
		b.reportError(ctx, m, msg, member.NewOperationError("Reply to the message you want to pin."))
		return
	}
	target, err := b.resolveReplyTarget(ctx, m, msg.ReplyToMessage.MessageID)
	if err != nil {
		b.reportError(ctx, m, msg, member.NewOperationError("not an anonymous message or outdated"))
		return
	}

	kind := fanout.KindPin
	verb := "pin"
	if !pin {
		kind = fanout.KindUnpin
		verb = "unpin"
	}
	op := fanout.NewOperation(kind, b.GroupID)
	op.Message = target
	b.waitAndReport(ctx, m, msg, op, verb)
}

// cmdReveal implements /reveal (ADMIN_BAN+): a 15s ephemeral profile
// panel for the target of the replied-to message.
func (b *Bot) cmdReveal(ctx context.Context, m *store.Member, msg *telego.Message) {
	if _, err := member.ValidateRole(m.Role, store.RoleAdminBan, true); err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	if msg.ReplyToMessage == nil {
		b.reportError(ctx, m, msg, member.NewOperationError("Reply to the message you want to reveal."))
		return
	}
	target, err := b.resolveReplyTarget(ctx, m, msg.ReplyToMessage.MessageID)
	if err != nil {
		b.reportError(ctx, m, msg, member.NewOperationError("not an anonymous message or outdated"))
		return
	}
	author, err := b.Stores.Members.GetByID(ctx, target.MemberID)
	if err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	u, err := b.Stores.Users.Get(ctx, author.UserID)
	if err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	panel := fmt.Sprintf("Telegram ID: %d\nDisplay name: %s\nRole: %s\nMessages sent: %d\nLast activity: %s",
		u.TelegramID, u.DisplayName, author.Role, author.MessageCount, author.LastActivity.Format(time.RFC3339))
	b.replyEphemeral(ctx, m.TelegramID, panel, b.Timeouts.RevealLifetime)
	_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
}

// cmdManage implements /manage (ADMIN_BAN+): a text summary of the
// actions available against the target member. Interactive menu
// rendering is the father bot's concern;
// this handler exposes the same information as plain text.
func (b *Bot) cmdManage(ctx context.Context, m *store.Member, msg *telego.Message) {
	if _, err := member.ValidateRole(m.Role, store.RoleAdminBan, true); err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	if msg.ReplyToMessage == nil {
		b.reportError(ctx, m, msg, member.NewOperationError("Reply to a message from the member you want to manage."))
		return
	}
	target, err := b.resolveReplyTarget(ctx, m, msg.ReplyToMessage.MessageID)
	if err != nil {
		b.reportError(ctx, m, msg, member.NewOperationError("not an anonymous message or outdated"))
		return
	}
	author, err := b.Stores.Members.GetByID(ctx, target.MemberID)
	if err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	b.reply(ctx, m.TelegramID, fmt.Sprintf(
		"Member role: %s\nAvailable actions: /ban (reply), /unban (reply), /reveal (reply)",
		author.Role,
	))
	_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
}

// cmdPM implements /pm <text> (reply): a private message to the
// author of the replied-to message, routed through the bot with a
// "(👁️ PM)" prefix. PMs are never broadcast.
func (b *Bot) cmdPM(ctx context.Context, m *store.Member, msg *telego.Message, text string) {
	if text == "" {
		b.reportError(ctx, m, msg, member.NewOperationError("Usage: /pm <text> (as a reply to a message)."))
		return
	}
	if msg.ReplyToMessage == nil {
		b.reportError(ctx, m, msg, member.NewOperationError("Reply to the message of the person you want to PM."))
		return
	}
	// When the reply does not resolve to a broadcast message, resolution
	// falls through to the PM map: a reply to a PM copy PMs its sender
	// back.
	var toMemberID uuid.UUID
	if target, err := b.resolveReplyTarget(ctx, m, msg.ReplyToMessage.MessageID); err == nil {
		toMemberID = target.MemberID
	} else if pm, pmErr := b.Stores.PMs.GetByRedirectedMID(ctx, m.ID, msg.ReplyToMessage.MessageID); pmErr == nil && pm != nil {
		toMemberID = pm.FromMemberID
	} else {
		b.reportError(ctx, m, msg, member.NewOperationError("not an anonymous message or outdated"))
		return
	}
	if toMemberID == m.ID {
		b.reportError(ctx, m, msg, member.NewOperationError("You cannot PM yourself."))
		return
	}
	to, err := b.Stores.Members.GetByID(ctx, toMemberID)
	if err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}

	group, err := b.Stores.Groups.Get(ctx, b.GroupID)
	if err != nil {
		b.reportError(ctx, m, msg, err)
		return
	}
	banType := store.BanPMUser
	if to.Role >= store.RoleAdminMsg {
		banType = store.BanPMAdmin
	}
	if banned, err := b.Directory.CheckBan(ctx, m, group, banType, true, false); err != nil {
		b.reportError(ctx, m, msg, err)
		return
	} else if banned {
		b.reportError(ctx, m, msg, member.NewOperationError("You are not allowed to send PMs."))
		return
	}
	if banned, err := b.Stores.PMs.IsBanned(ctx, to.ID, m.ID); err != nil {
		b.reportError(ctx, m, msg, err)
		return
	} else if banned {
		b.reportError(ctx, m, msg, member.NewOperationError("That member has blocked PMs from you."))
		return
	}

	mid, err := b.Transport.Copy(ctx, to.TelegramID, transport.CopySource{}, "(👁️ PM) "+trim1000(text), 0)
	if err != nil {
		b.reportError(ctx, m, msg, fmt.Errorf("pm delivery failed: %w", err))
		return
	}
	_ = b.Stores.PMs.Create(ctx, &store.PMMessage{
		FromMemberID:  m.ID,
		ToMemberID:    to.ID,
		OriginalMID:   msg.MessageID,
		RedirectedMID: mid,
	})
	b.replyEphemeral(ctx, m.TelegramID, "PM sent.", b.Timeouts.StatusLifetime)
	_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
}
