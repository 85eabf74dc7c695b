package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

type AttemptEventType string

const (
	EventAttemptStarted   AttemptEventType = "attempt_started"
	EventAttemptCompleted AttemptEventType = "attempt_completed"
	EventScoreOverridden  AttemptEventType = "score_overridden"
)

// AttemptEvent is the envelope published for attempt lifecycle transitions.
// Downstream consumers (notifications, reporting) subscribe to these topics.
type AttemptEvent struct {
	ID        string           `json:"id"`
	Type      AttemptEventType `json:"type"`
	Source    string           `json:"source"`
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`

	AttemptID uint   `json:"attempt_id"`
	TestID    uint   `json:"test_id"`
	StudentID string `json:"student_id"`

	// Set on completion and override events
	Score     *float64 `json:"score,omitempty"`
	Passed    *bool    `json:"passed,omitempty"`
	ChangedBy string   `json:"changed_by,omitempty"`
}

const (
	eventSource  = "exam-engine"
	eventVersion = "1.0"
)

// NewAttemptEvent builds an event envelope with a fresh ID and timestamp.
func NewAttemptEvent(eventType AttemptEventType, attemptID, testID uint, studentID string) *AttemptEvent {
	return &AttemptEvent{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		AttemptID: attemptID,
		TestID:    testID,
		StudentID: studentID,
	}
}
