package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"github.com/anonchat/goclaw-anon/internal/fanout"
	"github.com/anonchat/goclaw-anon/internal/mask"
	"github.com/anonchat/goclaw-anon/internal/store"
)

// handleMessage is the entry point for every non-edited update on this
// group's bot: resolve identity, dispatch commands, or fan the content
// out as an anonymous Broadcast.
func (b *Bot) handleMessage(ctx context.Context, msg *telego.Message) {
	if isServiceMessage(msg) || msg.From == nil {
		return
	}

	m, err := b.resolveMember(ctx, msg)
	if err != nil {
		slog.Warn("bot: resolve member failed", "group", b.GroupID, "error", err)
		return
	}
	_ = b.Stores.Members.TouchActivity(ctx, m.ID, time.Now())

	text := messageText(msg)
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, m, msg, text)
		return
	}

	if b.consumeSetmaskReply(ctx, m, msg) {
		return
	}

	b.broadcastIncoming(ctx, m, msg)
}

// resolveMember upserts the (User, Member) pair for the sender on first
// contact.
func (b *Bot) resolveMember(ctx context.Context, msg *telego.Message) (*store.Member, error) {
	displayName := msg.From.FirstName
	if msg.From.Username != "" {
		displayName = "@" + msg.From.Username
	}
	u, err := b.Stores.Users.GetOrCreateByTelegramID(ctx, msg.From.ID, displayName)
	if err != nil {
		return nil, err
	}
	return b.Stores.Members.GetOrCreate(ctx, b.GroupID, u.ID, msg.From.ID)
}

// broadcastIncoming implements the per-member gate in front of
// Broadcast: banned members are dropped silently (they are already
// excluded from every fan-out by role), typed bans on MESSAGE/MEDIA/
// STICKER/LINK are reported and the offending message is deleted, mask
// exhaustion is reported as "no mask currently available", and
// everything else becomes a queued Broadcast.
func (b *Bot) broadcastIncoming(ctx context.Context, m *store.Member, msg *telego.Message) {
	if m.Role == store.RoleBanned || m.Role == store.RoleLeft {
		return
	}

	group, err := b.Stores.Groups.Get(ctx, b.GroupID)
	if err != nil {
		slog.Warn("bot: group lookup failed", "group", b.GroupID, "error", err)
		return
	}

	has, kind, fileID := hasMedia(msg)
	if denyErr := b.checkBroadcastBans(ctx, m, group, has, kind, msg); denyErr != nil {
		b.reply(ctx, m.TelegramID, denyErr.Error())
		_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
		return
	}

	var replyTo *store.Message
	if msg.ReplyToMessage != nil {
		if rt, err := b.resolveReplyTarget(ctx, m, msg.ReplyToMessage.MessageID); err == nil {
			replyTo = rt
		}
	}

	created, maskStr, err := b.MaskPool.GetMask(m.ID, false)
	if err != nil {
		if errors.Is(err, mask.ErrNotAvailable) {
			b.reply(ctx, m.TelegramID, "no mask currently available")
		} else {
			slog.Warn("bot: mask allocation failed", "group", b.GroupID, "error", err)
		}
		_ = b.Transport.Delete(ctx, m.TelegramID, msg.MessageID)
		return
	}
	if created {
		_ = b.Stores.Members.SetMask(ctx, m.ID, maskStr, nil)
		_ = b.Stores.Masks.Upsert(ctx, &store.MaskEntry{GroupID: b.GroupID, MemberID: m.ID, Mask: maskStr})
	}

	original := &store.Message{
		MemberID:    m.ID,
		GroupID:     b.GroupID,
		MaskUsed:    maskStr,
		SenderMID:   msg.MessageID,
		Text:        messageText(msg),
		HasMedia:    has,
		MediaFileID: fileID,
	}
	if replyTo != nil {
		original.ReplyToID = replyTo.ID
	}
	if err := b.Stores.Messages.Create(ctx, original); err != nil {
		slog.Warn("bot: message persist failed", "group", b.GroupID, "error", err)
		return
	}
	_ = b.Stores.Members.IncrMessageCount(ctx, m.ID)
	_ = b.Stores.Groups.IncrMessageCount(ctx, b.GroupID)

	op := fanout.NewOperation(fanout.KindBroadcast, b.GroupID)
	op.Message = original
	op.ReplyTo = replyTo
	op.OriginatorID = m.ID
	op.Mask = maskStr
	b.Fanout.Enqueue(ctx, op)
}

// checkBroadcastBans gates a plain send against the typed ban matrix.
// kind narrows MEDIA down to the STICKER subtype when applicable.
func (b *Bot) checkBroadcastBans(ctx context.Context, m *store.Member, group *store.Group, hasMedia bool, kind fileKind, msg *telego.Message) error {
	if banned, err := b.Directory.CheckBan(ctx, m, group, store.BanMessage, true, false); err != nil {
		return err
	} else if banned {
		return errBanned("You are banned from sending messages.")
	}
	if hasMedia {
		if banned, err := b.Directory.CheckBan(ctx, m, group, store.BanMedia, true, false); err != nil {
			return err
		} else if banned {
			return errBanned("You are banned from sending media.")
		}
	}
	if kind == kindSticker {
		if banned, err := b.Directory.CheckBan(ctx, m, group, store.BanSticker, true, false); err != nil {
			return err
		} else if banned {
			return errBanned("You are banned from sending stickers.")
		}
	}
	if hasLink(msg) {
		if banned, err := b.Directory.CheckBan(ctx, m, group, store.BanLink, true, false); err != nil {
			return err
		} else if banned {
			return errBanned("You are banned from sending links.")
		}
	}
	return nil
}

type bannedError string

func (e bannedError) Error() string { return string(e) }
func errBanned(msg string) error    { return bannedError(msg) }

// handleEdit mirrors an edited private-chat message as a queued Edit
// operation. An edit to a message this bot never recorded (too old, or
// never an anonymous message) is silently ignored.
func (b *Bot) handleEdit(ctx context.Context, msg *telego.Message) {
	if msg.From == nil {
		return
	}
	m, err := b.resolveMember(ctx, msg)
	if err != nil {
		return
	}

	original, err := b.Stores.Messages.GetBySenderMID(ctx, m.ID, msg.MessageID)
	if err != nil || original == nil {
		return
	}

	edited := *original
	edited.Text = messageText(msg)
	_ = b.Stores.Messages.UpdateText(ctx, original.ID, edited.Text)

	op := fanout.NewOperation(fanout.KindEdit, b.GroupID)
	op.Message = &edited
	op.OriginatorID = m.ID
	op.Mask = original.MaskUsed
	b.Fanout.Enqueue(ctx, op)
}
