package bot

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

const maxTelegramMessageLen = 4096

type DigestEntry struct {
	Message   string
	Level     slog.Level
	Timestamp time.Time
}

type DigestBuffer struct {
	mu       sync.Mutex
	entries  map[int64][]DigestEntry
	interval time.Duration
	send     func(chatId int64, text string)
	stopCh   chan struct{}
	done     chan struct{}
}

func NewDigestBuffer(send func(chatId int64, text string), interval time.Duration) *DigestBuffer {
	return &DigestBuffer{
		entries:  make(map[int64][]DigestEntry),
		interval: interval,
		send:     send,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *DigestBuffer) Add(chatId int64, msg string, level slog.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[chatId] = append(d.entries[chatId], DigestEntry{
		Message:   msg,
		Level:     level,
		Timestamp: time.Now().UTC(),
	})
}

func (d *DigestBuffer) StartTicker() {
	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.Flush()
			case <-d.stopCh:
				d.Flush()
				return
			}
		}
	}()
}

func (d *DigestBuffer) Flush() {
	d.mu.Lock()
	snapshot := d.entries
	d.entries = make(map[int64][]DigestEntry)
	d.mu.Unlock()

	for chatId, entries := range snapshot {
		if len(entries) == 0 {
			continue
		}
		for _, part := range splitMessage(formatDigest(entries), maxTelegramMessageLen) {
			d.send(chatId, part)
		}
	}
}

func (d *DigestBuffer) Stop() {
	close(d.stopCh)
	<-d.done
}

// formatDigest groups entries by level, highest first, keeping arrival order inside a group.
func formatDigest(entries []DigestEntry) string {
	grouped := make(map[slog.Level][]DigestEntry)
	var levels []slog.Level
	for _, e := range entries {
		if _, ok := grouped[e.Level]; !ok {
			levels = append(levels, e.Level)
		}
		grouped[e.Level] = append(grouped[e.Level], e)
	}
	slices.SortFunc(levels, func(a, b slog.Level) int { return cmp.Compare(b, a) })

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Digest* \\(%d messages\\)\n\n", len(entries)))

	for _, level := range levels {
		levelEntries := grouped[level]
		sb.WriteString(fmt.Sprintf("*%s* \\(%d\\):\n", Sanitize(level.String()), len(levelEntries)))
		for _, e := range levelEntries {
			sb.WriteString(fmt.Sprintf("  `%s` %s\n", e.Timestamp.Format("15:04"), e.Message))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
