package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicore/internal/report"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishEnvelope(t *testing.T) {
	hub := NewHub(testLogger())

	at := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	hub.Publish(report.Event{
		Type:     report.EventCompleted,
		ReportID: "rep-1",
		OwnerID:  "dr-souza",
		Status:   report.StatusCompleted,
		At:       at,
	})

	select {
	case raw := <-hub.broadcast:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, report.EventCompleted, msg["type"])
		assert.Equal(t, at.Format(time.RFC3339), msg["timestamp"])

		data, ok := msg["data"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "rep-1", data["report_id"])
		assert.Equal(t, "dr-souza", data["owner_id"])
		assert.Equal(t, string(report.StatusCompleted), data["status"])
	default:
		t.Fatal("expected a broadcast message")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(testLogger())

	// Fill the buffer well past capacity; Publish must drop, not hang.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(report.Event{Type: report.EventQueued, ReportID: "rep-x", At: time.Now()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full broadcast buffer")
	}
}

func TestHubStartStop(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	// Starting twice is a no-op.
	hub.Start()

	assert.Equal(t, 0, hub.ClientCount())

	hub.Stop()
	// Stopping twice is a no-op.
	hub.Stop()
}
