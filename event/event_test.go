package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hooknotify/hooknotify/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("assigns timestamp when unset", func(t *testing.T) {
		before := time.Now()
		ev, err := event.Event{Type: "OrderCreated"}.Normalize(time.Now())
		require.NoError(t, err)
		assert.False(t, ev.Timestamp.Before(before.UTC()))
		assert.Equal(t, time.UTC, ev.Timestamp.Location())
	})

	t.Run("keeps producer timestamp, converted to UTC", func(t *testing.T) {
		loc := time.FixedZone("CET", 3600)
		ts := time.Date(2026, 3, 1, 12, 30, 0, 0, loc)
		ev, err := event.Event{Type: "OrderCreated", Timestamp: ts}.Normalize(time.Now())
		require.NoError(t, err)
		assert.True(t, ev.Timestamp.Equal(ts))
		assert.Equal(t, time.UTC, ev.Timestamp.Location())
	})

	t.Run("assigns id when empty", func(t *testing.T) {
		ev, err := event.Event{Type: "OrderCreated"}.Normalize(time.Now())
		require.NoError(t, err)
		assert.NotEmpty(t, ev.ID)
	})

	t.Run("keeps producer id", func(t *testing.T) {
		ev, err := event.Event{ID: "evt-1", Type: "OrderCreated"}.Normalize(time.Now())
		require.NoError(t, err)
		assert.Equal(t, "evt-1", ev.ID)
	})

	t.Run("rejects missing event type", func(t *testing.T) {
		_, err := event.Event{Message: "hi"}.Normalize(time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "event type is required")
	})
}

func TestJSONFieldNames(t *testing.T) {
	raw := []byte(`{"event":"Test","message":"hi","additionalData":{"order":42}}`)
	var ev event.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "Test", ev.Type)
	assert.Equal(t, "hi", ev.Message)
	assert.Equal(t, float64(42), ev.AdditionalData["order"])
}
