package fanout

import "github.com/anonchat/goclaw-anon/internal/store"

// FormatBroadcast composes the anonymized content delivered to each
// recipient: textual messages get a "{mask} | {text}" prefix; media
// messages either get the mask prepended to their caption, or a generic
// "{mask} has sent a media." caption when there is none.
func FormatBroadcast(mask string, msg *store.Message) string {
	if msg.HasMedia && msg.Text == "" {
		return mask + " has sent a media."
	}
	return mask + " | " + msg.Text
}
