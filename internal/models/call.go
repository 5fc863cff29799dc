package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Attendee roles, best-effort from vendor data
const (
	RoleHost        = "host"
	RoleParticipant = "participant"
)

// SegmentSeparator joins segment texts into a transcript's full text
const SegmentSeparator = "\n"

// Call is the normalized, vendor-agnostic metadata for one recorded meeting.
// Identity is (Platform, VendorID): vendors may reuse id spaces, so VendorID
// alone is never a persistence key.
type Call struct {
	VendorID        string     `json:"vendor_id"`
	Platform        string     `json:"platform"`
	Title           string     `json:"title"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationSeconds int        `json:"duration_seconds"`
	Attendees       []Attendee `json:"attendees"`
	RecordingURL    string     `json:"recording_url,omitempty"`
}

// Attendee is one meeting participant. Email is the join key for account
// association; everything else is best-effort vendor data.
type Attendee struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	Company string `json:"company,omitempty"`
}

// EmailDomain returns the lowercased domain part of the attendee's email,
// or "" when the email has no domain
func (a Attendee) EmailDomain() string {
	at := strings.LastIndex(a.Email, "@")
	if at < 0 || at == len(a.Email)-1 {
		return ""
	}
	return strings.ToLower(a.Email[at+1:])
}

// Segment is one speaker-attributed span of transcript text. Offsets are
// milliseconds relative to call start. Confidence, when present, is in [0,1].
type Segment struct {
	SpeakerName  string   `json:"speaker_name"`
	SpeakerEmail string   `json:"speaker_email,omitempty"`
	Text         string   `json:"text"`
	StartMs      int64    `json:"start_ms"`
	EndMs        int64    `json:"end_ms"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// Transcript is the full normalized record for one call: the call metadata,
// the ordered segments, and the account assignment once association has run.
type Transcript struct {
	ID        int64           `db:"id" json:"id"`
	Platform  string          `db:"platform" json:"platform"`
	CallID    string          `db:"call_id" json:"call_id"`
	Call      Call            `json:"call"`
	Segments  []Segment       `json:"segments"`
	FullText  string          `db:"full_text" json:"full_text"`
	AIContent json.RawMessage `db:"ai_content" json:"ai_content,omitempty"`

	AccountID  string  `db:"account_id" json:"account_id,omitempty"`
	Confidence float64 `db:"confidence" json:"confidence"`
	RuleName   string  `db:"rule_name" json:"rule_name,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// JoinSegments derives the concatenated full text from ordered segments.
// FullText must always be regenerable this way, never edited independently.
func JoinSegments(segments []Segment) string {
	texts := make([]string, 0, len(segments))
	for _, s := range segments {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, SegmentSeparator)
}
