package report

import "time"

// Event notifies listeners of a lifecycle transition so callers can react
// without polling.
type Event struct {
	Type     string    `json:"type"` // report:queued, report:completed, report:failed
	ReportID string    `json:"report_id"`
	OwnerID  string    `json:"owner_id"`
	Status   Status    `json:"status"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

// Event types published by the manager.
const (
	EventQueued    = "report:queued"
	EventCompleted = "report:completed"
	EventFailed    = "report:failed"
)

// EventSink receives lifecycle events. Implementations must not block.
type EventSink interface {
	Publish(e Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(Event) {}
