package models

import "time"

// Account provenance values
const (
	ProvenanceAutoCreated = "auto-created"
	ProvenanceFallback    = "fallback"
	ProvenanceManual      = "manual"
)

// Association rule types
const (
	RuleTypeDomain       = "domain"
	RuleTypeEmailPattern = "email_pattern"
	RuleTypeTitlePattern = "title_pattern"
	RuleTypeManual       = "manual"
)

// Fixed confidence constants per association source
const (
	ConfidenceManualRule   = 1.0
	ConfidenceDomainRule   = 0.9
	ConfidenceEmailPattern = 0.8
	ConfidenceTitlePattern = 0.7
	ConfidenceFallback     = 0.3
)

// Account is a customer organization that calls are grouped under. Domain is
// unique and acts as the natural idempotency key for auto-created accounts.
type Account struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Domain            string    `db:"domain" json:"domain"`
	Provenance        string    `db:"provenance" json:"provenance"`
	CreatedFromCallID string    `db:"created_from_call_id" json:"created_from_call_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// AssociationRule is a prioritized, operator-defined condition that pins
// calls to an account. Rules are evaluated in descending priority order;
// ties are broken by rule ID so evaluation is deterministic across runs.
type AssociationRule struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Pattern   string `json:"pattern"`
	AccountID string `json:"account_id"`
	Priority  int    `json:"priority"`
	Active    bool   `json:"active"`
}

// AssociationResult is the outcome of account association for one call
type AssociationResult struct {
	AccountID   string   `json:"account_id"`
	Confidence  float64  `json:"confidence"`
	RuleName    string   `json:"rule_name,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ReassociationAudit records a manual account reassignment. The old account
// reference is required; it is the audit trail.
type ReassociationAudit struct {
	ID           string    `db:"id" json:"id"`
	TranscriptID int64     `db:"transcript_id" json:"transcript_id"`
	OldAccountID string    `db:"old_account_id" json:"old_account_id"`
	NewAccountID string    `db:"new_account_id" json:"new_account_id"`
	Reason       string    `db:"reason" json:"reason"`
	Actor        string    `db:"actor" json:"actor"`
	Timestamp    time.Time `db:"created_at" json:"timestamp"`
}
