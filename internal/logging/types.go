package logging

import "time"

// #region run-entry
// RunEntry is a single row in the simulation_runs table. Events themselves
// are never stored, only the summary of each run.
type RunEntry struct {
	RunID         string    `json:"runId"`
	DatasetID     string    `json:"datasetId,omitempty"`
	SimStart      time.Time `json:"simStart"`
	SimEnd        time.Time `json:"simEnd"`
	State         string    `json:"state"` // "streaming" | "completed" | "cancelled" | "failed"
	Count         int       `json:"count"`
	PassCount     int       `json:"passCount"`
	FailCount     int       `json:"failCount"`
	AvgConfidence float64   `json:"avgConfidence"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt,omitzero"`
}
// #endregion run-entry
