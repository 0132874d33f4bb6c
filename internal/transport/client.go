// Package transport defines the one-to-one messaging primitives the
// fan-out engine is built against and a Telegram-backed implementation
// over github.com/mymmrac/telego.
package transport

import "context"

// CopySource identifies the original message in the sender's private
// chat with the bot, the source a media Copy re-sends from. A zero
// source is valid for plain-text copies, which carry their full content
// in the text argument.
type CopySource struct {
	FromUserID int64
	MessageID  int
	HasMedia   bool
}

// Client is the transport abstraction the fan-out engine calls into.
// Every method operates against one recipient's private chat with the
// group's bot.
type Client interface {
	// Copy re-sends message content into the recipient's private chat,
	// threaded under replyToMID if non-zero. Text messages are sent as
	// text (already mask-prefixed by the caller); media messages are
	// copied from src with text as the caption override, preserving the
	// media kind. Returns the transport mid of the delivered copy.
	Copy(ctx context.Context, toUserID int64, src CopySource, text string, replyToMID int) (mid int, err error)
	EditText(ctx context.Context, toUserID int64, mid int, text string) error
	Delete(ctx context.Context, toUserID int64, mid int) error
	Pin(ctx context.Context, toUserID int64, mid int, disableNotification bool) error
	Unpin(ctx context.Context, toUserID int64, mid int) error
}
