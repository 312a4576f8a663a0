package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hooknotify/hooknotify/event"
)

func TestFormatNotification(t *testing.T) {
	t.Run("title carries the event type", func(t *testing.T) {
		title, body := formatNotification(event.Event{Type: "OrderCreated", Message: "order placed"})
		assert.Equal(t, "Webhook: OrderCreated", title)
		assert.Equal(t, "order placed", body)
	})

	t.Run("empty message gets a placeholder", func(t *testing.T) {
		_, body := formatNotification(event.Event{Type: "Ping"})
		assert.Equal(t, "No message", body)
	})

	t.Run("additional data is listed with sorted keys", func(t *testing.T) {
		_, body := formatNotification(event.Event{
			Type:    "OrderCreated",
			Message: "order placed",
			AdditionalData: map[string]any{
				"customer": "acme",
				"amount":   19.9,
			},
		})
		assert.Equal(t, "order placed\n\nAdditional data:\namount: 19.9\ncustomer: acme", body)
	})
}
