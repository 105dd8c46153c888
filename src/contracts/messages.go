// Package contracts defines the message types published on the build event topic.
package contracts

import (
	"encoding/json"
	"fmt"
)

// DefaultTopic is the topic build events are published to unless configured otherwise.
const DefaultTopic = "ci_build_events"

// EventType identifies the kind of BuildEvent.
type EventType string

const (
	// EventTriggered is emitted once per build after the trigger API accepted it.
	EventTriggered EventType = "triggered"
	// EventProgress is emitted after every polling pass.
	EventProgress EventType = "progress"
	// EventFinished is emitted once per build when it first reaches lifecycle "finished".
	EventFinished EventType = "finished"
	// EventSummary is emitted once at the end of a run.
	EventSummary EventType = "summary"
)

// BuildEvent is a single observation of a run.
// Published to: ci_build_events
// Key: {package} for build events, {run_id} for progress and summary.
type BuildEvent struct {
	RunID     string    `json:"run_id"`
	Type      EventType `json:"type"`
	Package   string    `json:"package,omitempty"`
	BuildNum  int       `json:"build_num,omitempty"`
	Lifecycle string    `json:"lifecycle,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Status    string    `json:"status,omitempty"`
	URL       string    `json:"url,omitempty"`
	Pass      int       `json:"pass,omitempty"`
	Pending   int       `json:"pending"`
	Total     int       `json:"total"`
	Failed    int       `json:"failed,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Timestamp string    `json:"timestamp"`
}

// Key returns the partition key for the event.
func (e BuildEvent) Key() string {
	if e.Package != "" {
		return e.Package
	}
	return e.RunID
}

// Encode serializes the event to JSON.
func (e BuildEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeBuildEvent parses a JSON-encoded BuildEvent.
func DecodeBuildEvent(data []byte) (BuildEvent, error) {
	var e BuildEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return BuildEvent{}, fmt.Errorf("decode build event: %w", err)
	}
	if e.Type == "" {
		return BuildEvent{}, fmt.Errorf("decode build event: missing type")
	}
	return e, nil
}
