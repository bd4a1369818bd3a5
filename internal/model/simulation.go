package model

import "time"

// State is the replay stepper's lifecycle state.
type State string

const (
	StateIdle     State = "IDLE"
	StateRunning  State = "RUNNING"
	StatePaused   State = "PAUSED_ON_EVENT"
	StateComplete State = "COMPLETE"
)

// Sample is one point of the equity curve.
type Sample struct {
	Index     int     `json:"index"`
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// LogLine is a free-text simulation log entry stamped with wall-clock time.
type LogLine struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Snapshot is a point-in-time view of a stepper.
type Snapshot struct {
	State   State    `json:"state"`
	Index   int      `json:"index"`
	Value   float64  `json:"value"`
	Samples []Sample `json:"samples"`
}
