package transport

import (
	"errors"
	"strings"
)

// ErrUserBlocked is the distinct transport failure that triggers a
// recipient's transition to LEFT. All other transport failures are just
// counted as errors and the fan-out continues.
var ErrUserBlocked = errors.New("transport: user has blocked the bot")

// classify maps a raw telego API error to ErrUserBlocked when Telegram
// reports the recipient has blocked the bot or deactivated their
// account, and returns everything else unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "bot was blocked by the user") ||
		strings.Contains(msg, "user is deactivated") ||
		strings.Contains(msg, "chat not found") {
		return ErrUserBlocked
	}
	return err
}
