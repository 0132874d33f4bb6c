package transport

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"
)

// TelegramClient implements Client over a single group's Telegram bot
// token, rate-limited per bot.
type TelegramClient struct {
	bot     *telego.Bot
	limiter *rate.Limiter
}

// NewTelegramClient creates a bot for token and caps outbound calls to
// ratePerSecond.
func NewTelegramClient(token string, ratePerSecond float64) (*TelegramClient, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramClient{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}, nil
}

// Bot exposes the underlying telego.Bot for the command layer (menu
// sync, long polling, update dispatch).
func (c *TelegramClient) Bot() *telego.Bot { return c.bot }

func (c *TelegramClient) replyParams(replyToMID int) *telego.ReplyParameters {
	if replyToMID == 0 {
		return nil
	}
	return &telego.ReplyParameters{MessageID: replyToMID}
}

// Copy delivers content into toUserID's private chat with the bot,
// threaded under replyToMID. Media goes through CopyMessage, which
// preserves the media kind (photo, sticker, video, document, voice,
// ...) while overriding the caption; text goes out as a plain message.
func (c *TelegramClient) Copy(ctx context.Context, toUserID int64, src CopySource, text string, replyToMID int) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	chatID := tu.ID(toUserID)
	reply := c.replyParams(replyToMID)

	if src.HasMedia {
		mid, err := c.bot.CopyMessage(ctx, &telego.CopyMessageParams{
			ChatID:          chatID,
			FromChatID:      tu.ID(src.FromUserID),
			MessageID:       src.MessageID,
			Caption:         text,
			ReplyParameters: reply,
		})
		if err != nil {
			return 0, classify(err)
		}
		return mid.MessageID, nil
	}

	msg, err := c.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          chatID,
		Text:            text,
		ReplyParameters: reply,
	})
	if err != nil {
		return 0, classify(err)
	}
	return msg.MessageID, nil
}

func (c *TelegramClient) EditText(ctx context.Context, toUserID int64, mid int, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(toUserID),
		MessageID: mid,
		Text:      text,
	})
	return classify(err)
}

func (c *TelegramClient) Delete(ctx context.Context, toUserID int64, mid int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(toUserID),
		MessageID: mid,
	})
	return classify(err)
}

func (c *TelegramClient) Pin(ctx context.Context, toUserID int64, mid int, disableNotification bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.bot.PinChatMessage(ctx, &telego.PinChatMessageParams{
		ChatID:              tu.ID(toUserID),
		MessageID:           mid,
		DisableNotification: disableNotification,
	})
	return classify(err)
}

func (c *TelegramClient) Unpin(ctx context.Context, toUserID int64, mid int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.bot.UnpinChatMessage(ctx, &telego.UnpinChatMessageParams{
		ChatID:    tu.ID(toUserID),
		MessageID: mid,
	})
	return classify(err)
}
