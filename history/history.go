package history

import (
	"context"
	"time"

	"github.com/hooknotify/hooknotify/event"
)

/* Recorder persists delivered notifications for later search and
 * export. The delivery pipeline only ever appends; search backs the
 * history browser.
 */
type Recorder interface {
	Append(ctx context.Context, ev event.Event) error
	/* Search returns the newest entries whose event type or message
	 * contains query, newest first. An empty query matches everything.
	 */
	Search(ctx context.Context, query string, limit int) ([]Entry, error)
	Close() error
}

// Entry is one persisted notification
type Entry struct {
	ID         int64
	EventID    string
	EventType  string
	Message    string
	Timestamp  time.Time
	DataJSON   string
	ReceivedAt time.Time
}

// Nop is the recorder used when history tracking is disabled
type Nop struct{}

func (Nop) Append(context.Context, event.Event) error { return nil }

func (Nop) Search(context.Context, string, int) ([]Entry, error) { return nil, nil }

func (Nop) Close() error { return nil }
