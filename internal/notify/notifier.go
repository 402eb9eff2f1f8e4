// Package notify is the engine's outbound event boundary. The lifecycle
// engine publishes one event per transition; formatting, storage and delivery
// to recipients live in a downstream consumer. A Notifier error never rolls
// back the transition that produced the event.
package notify

import "time"

type EventKind string

const (
	KindAssigned EventKind = "assigned"
	KindFinished EventKind = "finished"
	KindReminder EventKind = "reminder"
)

// Event is the payload published for a lifecycle transition. ID is unique per
// emission so consumers can deduplicate.
type Event struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	CandidateID uint      `json:"candidate_id"`
	TestID      uint      `json:"test_id"`
	TestTitle   string    `json:"test_title,omitempty"`

	// Finished events only.
	Status string   `json:"status,omitempty"`
	Score  *float64 `json:"score,omitempty"`

	// Reminder events only.
	RemainingTime string `json:"remaining_time,omitempty"`

	EmittedAt time.Time `json:"emitted_at"`
}

type Notifier interface {
	Publish(event Event) error
}
