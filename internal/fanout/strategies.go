package fanout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anonchat/goclaw-anon/internal/store"
	"github.com/anonchat/goclaw-anon/internal/transport"
)

// skipReceive reports whether a recipient's own ban mask excludes it
// from broadcast/edit/delete fan-out.
func skipReceive(m store.Member) bool {
	return m.BanMask.Has(store.BanReceive)
}

// onTransportError advances op.Errors and, for a blocked recipient who is
// not the group CREATOR, transitions them to LEFT and frees their mask.
func (g *Group) onTransportError(ctx context.Context, op *Operation, recipient store.Member, err error) {
	op.Errors++
	if errors.Is(err, transport.ErrUserBlocked) && recipient.Role != store.RoleCreator {
		_ = g.Stores.Members.SetRole(ctx, recipient.ID, store.RoleLeft)
		g.MaskPool.Release(recipient.ID)
		_ = g.Stores.Masks.Delete(ctx, recipient.ID)
	}
}

// broadcast delivers op.Message to every eligible recipient, threading
// replies to the copy each recipient received themselves. Media is
// copied from the sender's private chat so the media kind survives.
func (g *Group) broadcast(ctx context.Context, op *Operation, recipients []store.Member) {
	sender, err := g.Stores.Members.GetByID(ctx, op.Message.MemberID)
	if err != nil {
		slog.Warn("fanout: broadcast sender lookup failed", "group", g.ID, "error", err)
		return
	}
	src := transport.CopySource{
		FromUserID: sender.TelegramID,
		MessageID:  op.Message.SenderMID,
		HasMedia:   op.Message.HasMedia,
	}

	for _, r := range recipients {
		if r.ID == op.OriginatorID || skipReceive(r) {
			continue
		}
		op.Requests++

		var replyMID int
		if op.ReplyTo != nil {
			if rd, err := g.Stores.Redirects.GetByRecipient(ctx, op.ReplyTo.ID, r.ID); err == nil && rd != nil {
				replyMID = rd.MID
			}
		}

		text := FormatBroadcast(op.Mask, op.Message)
		mid, err := g.Transport.Copy(ctx, r.TelegramID, src, text, replyMID)
		if err != nil {
			g.onTransportError(ctx, op, r, err)
			continue
		}

		_ = g.Stores.Redirects.Create(ctx, &store.RedirectedMessage{
			ID:         store.GenID(),
			MessageID:  op.Message.ID,
			ToMemberID: r.ID,
			MID:        mid,
			CreatedAt:  time.Now(),
		})
	}
}

// edit rewrites each recipient's redirected copy. A recipient with no
// existing redirect was never delivered to and is silently skipped;
// that is not an error.
func (g *Group) edit(ctx context.Context, op *Operation, recipients []store.Member) {
	for _, r := range recipients {
		if r.ID == op.OriginatorID || skipReceive(r) {
			continue
		}
		op.Requests++

		rd, err := g.Stores.Redirects.GetByRecipient(ctx, op.Message.ID, r.ID)
		if err != nil || rd == nil {
			continue
		}

		text := FormatBroadcast(op.Mask, op.Message)
		if err := g.Transport.EditText(ctx, r.TelegramID, rd.MID, text); err != nil {
			g.onTransportError(ctx, op, r, err)
		}
	}
}

// delete removes the original in the sender's own private chat, plus
// every recipient's redirected copy except those of RECEIVE-banned
// recipients.
func (g *Group) delete(ctx context.Context, op *Operation) {
	sender, err := g.Stores.Members.GetByID(ctx, op.Message.MemberID)
	if err == nil {
		op.Requests++
		if err := g.Transport.Delete(ctx, sender.TelegramID, op.Message.SenderMID); err != nil {
			op.Errors++
		}
	}

	rows, err := g.Stores.Redirects.ListByMessage(ctx, op.Message.ID)
	if err != nil {
		return
	}
	for _, rd := range rows {
		recipient, err := g.Stores.Members.GetByID(ctx, rd.ToMemberID)
		if err != nil || skipReceive(*recipient) {
			continue
		}
		op.Requests++
		if err := g.Transport.Delete(ctx, recipient.TelegramID, rd.MID); err != nil {
			op.Errors++
			continue
		}
		_ = g.Stores.Redirects.Delete(ctx, op.Message.ID, rd.ToMemberID)
	}
}

// pinOrUnpin walks every non-BANNED member. Unlike broadcast/edit/
// delete, RECEIVE-banned members still get pin/unpin applied: pin state
// is low-churn and admins need to force it even for muted members.
func (g *Group) pinOrUnpin(ctx context.Context, op *Operation, recipients []store.Member, pin bool) {
	apply := func(toUserID int64, mid int) error {
		if pin {
			return g.Transport.Pin(ctx, toUserID, mid, true)
		}
		return g.Transport.Unpin(ctx, toUserID, mid)
	}

	sender, err := g.Stores.Members.GetByID(ctx, op.Message.MemberID)
	if err == nil && sender.Role != store.RoleBanned {
		op.Requests++
		if err := apply(sender.TelegramID, op.Message.SenderMID); err != nil {
			op.Errors++
		}
	}

	for _, r := range recipients {
		if err == nil && r.ID == sender.ID {
			continue
		}
		if r.Role == store.RoleBanned {
			continue
		}
		rd, lookupErr := g.Stores.Redirects.GetByRecipient(ctx, op.Message.ID, r.ID)
		if lookupErr != nil || rd == nil {
			continue
		}
		op.Requests++
		if err := apply(r.TelegramID, rd.MID); err != nil {
			op.Errors++
		}
	}
}
