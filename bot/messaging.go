package bot

import (
	"log/slog"
)

// SendMessageWithLevel delivers a log notification to every admin. Errors go
// out at once; lower levels wait for the digest when one is running.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < slog.LevelError && t.digest != nil {
		for id := range t.admins {
			t.digest.Add(id, msg, level)
		}
		return
	}
	t.notifyAdmins(msg)
}
