// Package platform defines the vendor-agnostic adapter contract for
// call-intelligence platforms and the registry that resolves platform
// identifiers to authenticated adapter instances. Adapters speak only
// normalized model types; vendor JSON never crosses this boundary.
package platform

import (
	"context"
	"encoding/json"
	"time"

	"callsync/internal/models"
)

// Supported platform identifiers
const (
	PlatformGong      = "gong"
	PlatformFireflies = "fireflies"
	PlatformZoom      = "zoom"
)

// Window is a half-open time range [Start, End) over call start times
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Adapter hides one vendor's API behind a uniform contract. Pagination,
// cursor style, and rate limiting are adapter-internal; callers only ask
// for "up to N calls in this window".
type Adapter interface {
	// Platform returns the platform identifier this adapter serves
	Platform() string

	// Authenticate establishes whatever token/header state the vendor
	// requires, resolving credentials from configuration. Idempotent:
	// calling twice re-authenticates, and expired tokens are refreshed
	// transparently. Returns an AuthConfigError when no credentials are
	// resolvable.
	Authenticate(ctx context.Context) error

	// TestConnection performs the cheapest possible authenticated call.
	// It never returns an error; any failure yields false.
	TestConnection(ctx context.Context) bool

	// ListCalls returns calls whose start time falls in the window,
	// ascending by start time, paginating transparently until limit calls
	// are gathered or the vendor signals no more pages. A page-fetch error
	// aborts the whole listing; partial results are never returned.
	ListCalls(ctx context.Context, window Window, limit int) ([]models.Call, error)

	// GetTranscript fetches call metadata and transcript content, resolving
	// speaker identity to attendee email where the vendor exposes a
	// speaker-participant mapping. Returns a NotFoundError when the vendor
	// has no transcript yet.
	GetTranscript(ctx context.Context, callID string) (*models.Transcript, error)

	// GetAIContent fetches vendor AI-derived content (summary, highlights)
	// as an opaque blob. Best-effort: callers treat any failure as
	// "AI content absent".
	GetAIContent(ctx context.Context, callID string) (json.RawMessage, error)

	// SetupWebhook registers url for call-processed events. Best-effort:
	// vendors that only support console configuration log instructions
	// and return nil.
	SetupWebhook(ctx context.Context, url string) error
}
