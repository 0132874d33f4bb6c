// Package bot implements the group bot's command surface and
// message/edit ingestion: the thin layer that turns Telegram updates on
// one group's bot into internal/fanout Operations.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/anonchat/goclaw-anon/internal/fanout"
	"github.com/anonchat/goclaw-anon/internal/mask"
	"github.com/anonchat/goclaw-anon/internal/member"
	"github.com/anonchat/goclaw-anon/internal/store"
	"github.com/anonchat/goclaw-anon/internal/transport"
)

// Timeouts mirrors config.FanoutConfig's timing knobs without importing
// internal/config directly, so this package stays testable in isolation.
type Timeouts struct {
	OperationWait  time.Duration
	SetmaskWait    time.Duration
	RevealLifetime time.Duration
	StatusLifetime time.Duration
}

// DefaultTimeouts returns the stock timing knobs.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		OperationWait:  fanout.DefaultWaitTimeout,
		SetmaskWait:    120 * time.Second,
		RevealLifetime: 15 * time.Second,
		StatusLifetime: 10 * time.Second,
	}
}

// Bot wires one Group's command surface and message ingestion to the
// fan-out engine. One Bot instance exists per active Group.
type Bot struct {
	GroupID   uuid.UUID
	Stores    *store.Stores
	Directory *member.Directory
	MaskPool  *mask.Pool
	Fanout    *fanout.Group
	Transport *transport.TelegramClient
	Timeouts  Timeouts

	pendingSetmask sync.Map // memberID uuid.UUID -> time.Time (deadline)
}

// New builds a Bot for one group's already-wired dependencies.
func New(groupID uuid.UUID, stores *store.Stores, dir *member.Directory, pool *mask.Pool, fg *fanout.Group, tc *transport.TelegramClient, timeouts Timeouts) *Bot {
	return &Bot{
		GroupID:   groupID,
		Stores:    stores,
		Directory: dir,
		MaskPool:  pool,
		Fanout:    fg,
		Transport: tc,
		Timeouts:  timeouts,
	}
}

// Start begins long polling this group's bot token for updates.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.Transport.Bot().UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "edited_message"},
	})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update telego.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.EditedMessage != nil:
		b.handleEdit(ctx, update.EditedMessage)
	}
}

// reply sends plain text back to the sender's private chat with this
// group's bot, the channel every command response and error uses.
func (b *Bot) reply(ctx context.Context, toUserID int64, text string) {
	if _, err := b.Transport.Bot().SendMessage(ctx, tu.Message(tu.ID(toUserID), text)); err != nil {
		slog.Warn("bot: reply send failed", "group", b.GroupID, "to", toUserID, "error", err)
	}
}

// replyEphemeral sends text and deletes it again after lifetime, used
// for /reveal's panel and informational status messages.
func (b *Bot) replyEphemeral(ctx context.Context, toUserID int64, text string, lifetime time.Duration) {
	msg, err := b.Transport.Bot().SendMessage(ctx, tu.Message(tu.ID(toUserID), text))
	if err != nil {
		slog.Warn("bot: ephemeral send failed", "group", b.GroupID, "to", toUserID, "error", err)
		return
	}
	go func() {
		time.Sleep(lifetime)
		_ = b.Transport.Delete(context.Background(), toUserID, msg.MessageID)
	}()
}

// hasMedia reports whether msg carries non-text content, and returns
// its primary file ID the way media.go's per-kind dispatch does,
// trimmed to the single highest-value attachment per message.
func hasMedia(msg *telego.Message) (bool, fileKind, string) {
	switch {
	case len(msg.Photo) > 0:
		return true, kindPhoto, msg.Photo[len(msg.Photo)-1].FileID
	case msg.Sticker != nil:
		return true, kindSticker, msg.Sticker.FileID
	case msg.Video != nil:
		return true, kindOther, msg.Video.FileID
	case msg.Document != nil:
		return true, kindOther, msg.Document.FileID
	case msg.Voice != nil:
		return true, kindOther, msg.Voice.FileID
	case msg.Audio != nil:
		return true, kindOther, msg.Audio.FileID
	case msg.Animation != nil:
		return true, kindOther, msg.Animation.FileID
	case msg.VideoNote != nil:
		return true, kindOther, msg.VideoNote.FileID
	default:
		return false, kindNone, ""
	}
}

type fileKind int

const (
	kindNone fileKind = iota
	kindPhoto
	kindSticker
	kindOther
)

// hasLink reports whether msg's text/caption entities include a URL,
// the trigger for the BanLink check.
func hasLink(msg *telego.Message) bool {
	for _, e := range msg.Entities {
		if e.Type == "url" || e.Type == "text_link" {
			return true
		}
	}
	for _, e := range msg.CaptionEntities {
		if e.Type == "url" || e.Type == "text_link" {
			return true
		}
	}
	return false
}

func isServiceMessage(msg *telego.Message) bool {
	if msg.Text != "" || msg.Caption != "" {
		return false
	}
	has, _, _ := hasMedia(msg)
	return !has
}

func messageText(msg *telego.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// resolveReplyTarget resolves what a member replied to in their private
// thread with the bot: first a Message of their own by (mid, member),
// then a RedirectedMessage by (mid, recipient) followed up to its
// underlying Message. PM resolution is left to the /pm-aware caller
// since ordinary broadcast replies never consult the PM map.
func (b *Bot) resolveReplyTarget(ctx context.Context, member *store.Member, mid int) (*store.Message, error) {
	if msg, err := b.Stores.Messages.GetBySenderMID(ctx, member.ID, mid); err == nil && msg != nil {
		return msg, nil
	}
	rd, err := b.Stores.Redirects.GetByMID(ctx, member.ID, mid)
	if err != nil || rd == nil {
		return nil, fmt.Errorf("not an anonymous message or outdated")
	}
	return b.Stores.Messages.Get(ctx, rd.MessageID)
}

func trim1000(s string) string {
	const max = 1000
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
