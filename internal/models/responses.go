package models

import "time"

// HealthResponse represents the basic health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// DBHealthResponse represents the database health check response
type DBHealthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
}

// QueueHealthResponse reports webhook queue connectivity and backlog
type QueueHealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Connected  bool      `json:"connected"`
	Pending    int64     `json:"pending"`
	DeadLetter int64     `json:"dead_letter"`
	Error      string    `json:"error,omitempty"`
}

// ErrorResponse is the structured error body for admin endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}

// AdminAuthRequest represents an admin login request
type AdminAuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminAuthResponse represents an admin login response
type AdminAuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UsageSummary aggregates ingestion activity over a reporting period
type UsageSummary struct {
	Period    string    `json:"period"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	SyncRuns            int `json:"sync_runs"`
	TranscriptsIngested int `json:"transcripts_ingested"`
	WebhooksReceived    int `json:"webhooks_received"`
	Reassociations      int `json:"reassociations"`

	TotalTranscripts      int            `json:"total_transcripts"`
	TotalAccounts         int            `json:"total_accounts"`
	TranscriptsByPlatform map[string]int `json:"transcripts_by_platform"`
}
