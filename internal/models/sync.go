package models

import "time"

// Per-call sync outcomes
const (
	SyncStatusSuccess = "success"
	SyncStatusSkipped = "skipped"
	SyncStatusError   = "error"
)

// SyncDetail is the per-call line item in a sync summary
type SyncDetail struct {
	CallID string `json:"call_id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// SyncSummary accounts for every call a sync attempt touched. The invariant
// Processed + Skipped + Errors == Total holds even on partial failure, so
// callers can distinguish "nothing happened" from "mostly succeeded".
type SyncSummary struct {
	Platform  string       `json:"platform"`
	Total     int          `json:"total"`
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Errors    int          `json:"errors"`
	Details   []SyncDetail `json:"details"`
}

// QueueMessage is one webhook-originated unit of work: sync a single call
type QueueMessage struct {
	Platform  string            `json:"platform"`
	CallID    string            `json:"call_id"`
	EventType string            `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Extras    map[string]string `json:"extras,omitempty"`
	Attempts  int               `json:"attempts"`
}
