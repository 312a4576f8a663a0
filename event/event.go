package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

/* Event represents a received webhook notification in the system
 * Uses value semantics as it represents data, not behavior
 *
 * An Event is immutable once normalized: it travels by value through
 * encryption, the wire, the delivery queue, and into history.
 */
type Event struct {
	ID             string         `json:"id,omitempty"`
	Type           string         `json:"event"`
	Message        string         `json:"message,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
}

// Validate checks the invariants every normalized event must hold
func (e Event) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("event type is required")
	}
	return nil
}

/* Normalize returns a copy of the event with server-assigned fields
 * filled in: a generated ID when the producer omitted one, and the
 * given instant (in UTC) when the timestamp is the zero value.
 */
func (e Event) Normalize(now time.Time) (Event, error) {
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	} else {
		e.Timestamp = e.Timestamp.UTC()
	}
	return e, nil
}
