package websocket

import "time"

// Stages of a compute run, in lifecycle order.
const (
	StageQueued     = "queued"
	StageLoading    = "loading"
	StageThresholds = "thresholds"
	StageComputing  = "computing"
	StagePersisting = "persisting"
	StageCompleted  = "completed"
	StageFailed     = "failed"
)

// RunEvent is one progress update for a compute run.
type RunEvent struct {
	RunID   string    `json:"run_id"`
	Stage   string    `json:"stage"`
	Percent float64   `json:"percent"`
	Message string    `json:"message,omitempty"`
	TS      time.Time `json:"ts"`
}

// NewRunEvent stamps a progress event with the current time.
func NewRunEvent(runID, stage string, percent float64, message string) RunEvent {
	return RunEvent{
		RunID:   runID,
		Stage:   stage,
		Percent: percent,
		Message: message,
		TS:      time.Now().UTC(),
	}
}
