// Package gong implements the platform adapter for the Gong API.
// Gong paginates with opaque cursors, authenticates with a Basic
// access-key/secret pair, and exposes a speaker-to-party mapping that lets
// transcript segments be resolved to attendee emails.
package gong

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"callsync/internal/config"
	"callsync/internal/models"
	"callsync/internal/platform"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Adapter talks to the Gong REST API
type Adapter struct {
	baseURL      string
	accessKey    string
	accessSecret string
	authHeader   string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       zerolog.Logger
}

// New creates a Gong adapter from configuration. Credentials are validated
// lazily by Authenticate.
func New(cfg *config.Config, logger zerolog.Logger) *Adapter {
	return &Adapter{
		baseURL:      cfg.GongBaseURL,
		accessKey:    cfg.GongAccessKey,
		accessSecret: cfg.GongAccessSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		// Gong allows 3 requests per second
		limiter: rate.NewLimiter(rate.Limit(3), 3),
		logger:  logger.With().Str("platform", platform.PlatformGong).Logger(),
	}
}

// Platform returns the platform identifier
func (a *Adapter) Platform() string { return platform.PlatformGong }

// Authenticate builds the Basic auth header from the configured key pair.
// Idempotent: calling again simply rebuilds the header.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if a.accessKey == "" || a.accessSecret == "" {
		return &platform.AuthConfigError{
			Platform: platform.PlatformGong,
			Reason:   "GONG_ACCESS_KEY and GONG_ACCESS_SECRET must be set",
		}
	}

	token := base64.StdEncoding.EncodeToString([]byte(a.accessKey + ":" + a.accessSecret))
	a.authHeader = "Basic " + token
	return nil
}

// TestConnection performs the cheapest authenticated call. Never errors.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	if a.authHeader == "" {
		if err := a.Authenticate(ctx); err != nil {
			return false
		}
	}

	var resp struct {
		Users []json.RawMessage `json:"users"`
	}
	err := a.doRequest(ctx, http.MethodGet, "/v2/users?limit=1", nil, &resp)
	if err != nil {
		a.logger.Debug().Err(err).Msg("Connection test failed")
		return false
	}
	return true
}

// extensiveRequest is the body for POST /v2/calls/extensive
type extensiveRequest struct {
	Filter struct {
		FromDateTime string   `json:"fromDateTime,omitempty"`
		ToDateTime   string   `json:"toDateTime,omitempty"`
		CallIDs      []string `json:"callIds,omitempty"`
		Cursor       string   `json:"cursor,omitempty"`
	} `json:"filter"`
	ContentSelector struct {
		ExposedFields struct {
			Parties bool `json:"parties"`
			Content bool `json:"content"`
		} `json:"exposedFields"`
	} `json:"contentSelector"`
}

type extensiveResponse struct {
	Records struct {
		Cursor string `json:"cursor"`
	} `json:"records"`
	Calls []extensiveCall `json:"calls"`
}

type extensiveCall struct {
	MetaData struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Started  string `json:"started"`
		Duration int    `json:"duration"`
		URL      string `json:"url"`
	} `json:"metaData"`
	Parties []gongParty     `json:"parties"`
	Content json.RawMessage `json:"content"`
}

type gongParty struct {
	SpeakerID    string `json:"speakerId"`
	EmailAddress string `json:"emailAddress"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Affiliation  string `json:"affiliation"` // "Internal" or "External"
}

// ListCalls pages through /v2/calls/extensive until limit is satisfied or
// the cursor runs out. Any page failure aborts the whole listing.
func (a *Adapter) ListCalls(ctx context.Context, window platform.Window, limit int) ([]models.Call, error) {
	var calls []models.Call
	cursor := ""

	for {
		req := extensiveRequest{}
		req.Filter.FromDateTime = window.Start.UTC().Format(time.RFC3339)
		req.Filter.ToDateTime = window.End.UTC().Format(time.RFC3339)
		req.Filter.Cursor = cursor
		req.ContentSelector.ExposedFields.Parties = true

		var resp extensiveResponse
		if err := a.doRequest(ctx, http.MethodPost, "/v2/calls/extensive", req, &resp); err != nil {
			// All-or-nothing: a partial listing would look misleadingly complete
			return nil, fmt.Errorf("failed to list gong calls: %w", err)
		}

		for _, ec := range resp.Calls {
			call, err := normalizeCall(ec)
			if err != nil {
				a.logger.Warn().Err(err).Str("call_id", ec.MetaData.ID).Msg("Skipping unparseable call")
				continue
			}
			if !window.Contains(call.StartTime) {
				continue
			}
			calls = append(calls, call)
			if len(calls) >= limit {
				break
			}
		}

		if len(calls) >= limit || resp.Records.Cursor == "" {
			break
		}
		cursor = resp.Records.Cursor
	}

	sort.Slice(calls, func(i, j int) bool {
		return calls[i].StartTime.Before(calls[j].StartTime)
	})

	return calls, nil
}

// GetTranscript fetches a single call's metadata plus its transcript and
// joins transcript speaker ids to party emails
func (a *Adapter) GetTranscript(ctx context.Context, callID string) (*models.Transcript, error) {
	ec, err := a.fetchCall(ctx, callID)
	if err != nil {
		return nil, err
	}

	call, err := normalizeCall(*ec)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize gong call %s: %w", callID, err)
	}

	req := struct {
		Filter struct {
			CallIDs []string `json:"callIds"`
		} `json:"filter"`
	}{}
	req.Filter.CallIDs = []string{callID}

	var resp struct {
		CallTranscripts []struct {
			CallID     string `json:"callId"`
			Transcript []struct {
				SpeakerID string `json:"speakerId"`
				Sentences []struct {
					Start int64  `json:"start"`
					End   int64  `json:"end"`
					Text  string `json:"text"`
				} `json:"sentences"`
			} `json:"transcript"`
		} `json:"callTranscripts"`
	}
	if err := a.doRequest(ctx, http.MethodPost, "/v2/calls/transcript", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch gong transcript: %w", err)
	}
	if len(resp.CallTranscripts) == 0 || len(resp.CallTranscripts[0].Transcript) == 0 {
		return nil, &platform.NotFoundError{Platform: platform.PlatformGong, Resource: "transcript", ID: callID}
	}

	// speakerId -> party lookup for email resolution
	speakers := make(map[string]gongParty, len(ec.Parties))
	for _, p := range ec.Parties {
		if p.SpeakerID != "" {
			speakers[p.SpeakerID] = p
		}
	}

	var segments []models.Segment
	for _, monologue := range resp.CallTranscripts[0].Transcript {
		party, known := speakers[monologue.SpeakerID]
		for _, sentence := range monologue.Sentences {
			seg := models.Segment{
				SpeakerName: monologue.SpeakerID,
				Text:        sentence.Text,
				StartMs:     sentence.Start,
				EndMs:       sentence.End,
			}
			if known {
				seg.SpeakerEmail = party.EmailAddress
				if party.Name != "" {
					seg.SpeakerName = party.Name
				}
			}
			segments = append(segments, seg)
		}
	}

	return &models.Transcript{
		Platform: platform.PlatformGong,
		CallID:   callID,
		Call:     call,
		Segments: segments,
		FullText: models.JoinSegments(segments),
	}, nil
}

// GetAIContent returns Gong's call content (brief, highlights) as an opaque
// blob. Best-effort by contract; callers absorb failures.
func (a *Adapter) GetAIContent(ctx context.Context, callID string) (json.RawMessage, error) {
	req := extensiveRequest{}
	req.Filter.CallIDs = []string{callID}
	req.ContentSelector.ExposedFields.Content = true

	var resp extensiveResponse
	if err := a.doRequest(ctx, http.MethodPost, "/v2/calls/extensive", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch gong AI content: %w", err)
	}
	if len(resp.Calls) == 0 || len(resp.Calls[0].Content) == 0 {
		return nil, &platform.NotFoundError{Platform: platform.PlatformGong, Resource: "ai content", ID: callID}
	}
	return resp.Calls[0].Content, nil
}

// SetupWebhook is a no-op: Gong automation rules are configured in the
// admin console, not via API
func (a *Adapter) SetupWebhook(ctx context.Context, url string) error {
	a.logger.Info().
		Str("url", url).
		Msg("Gong webhooks require console setup: create an automation rule posting call-processed events to this URL")
	return nil
}

// fetchCall retrieves one call with parties via the extensive endpoint
func (a *Adapter) fetchCall(ctx context.Context, callID string) (*extensiveCall, error) {
	req := extensiveRequest{}
	req.Filter.CallIDs = []string{callID}
	req.ContentSelector.ExposedFields.Parties = true

	var resp extensiveResponse
	if err := a.doRequest(ctx, http.MethodPost, "/v2/calls/extensive", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch gong call %s: %w", callID, err)
	}
	if len(resp.Calls) == 0 {
		return nil, &platform.NotFoundError{Platform: platform.PlatformGong, Resource: "call", ID: callID}
	}
	return &resp.Calls[0], nil
}

// normalizeCall maps a Gong extensive call onto the normalized model
func normalizeCall(ec extensiveCall) (models.Call, error) {
	started, err := time.Parse(time.RFC3339, ec.MetaData.Started)
	if err != nil {
		return models.Call{}, fmt.Errorf("invalid started timestamp %q: %w", ec.MetaData.Started, err)
	}

	attendees := make([]models.Attendee, 0, len(ec.Parties))
	for _, p := range ec.Parties {
		if p.EmailAddress == "" {
			continue
		}
		role := models.RoleParticipant
		if p.Affiliation == "Internal" {
			role = models.RoleHost
		}
		attendees = append(attendees, models.Attendee{
			Email: p.EmailAddress,
			Name:  p.Name,
			Role:  role,
		})
	}

	return models.Call{
		VendorID:        ec.MetaData.ID,
		Platform:        platform.PlatformGong,
		Title:           ec.MetaData.Title,
		StartTime:       started,
		EndTime:         started.Add(time.Duration(ec.MetaData.Duration) * time.Second),
		DurationSeconds: ec.MetaData.Duration,
		Attendees:       attendees,
		RecordingURL:    ec.MetaData.URL,
	}, nil
}

// doRequest issues one rate-limited request and maps HTTP failures onto the
// shared error taxonomy
func (a *Adapter) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", a.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &platform.TransientError{Platform: platform.PlatformGong, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &platform.AuthError{Platform: platform.PlatformGong, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return &platform.NotFoundError{Platform: platform.PlatformGong, Resource: "resource", ID: path}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &platform.TransientError{Platform: platform.PlatformGong, StatusCode: resp.StatusCode, Err: fmt.Errorf("vendor unavailable")}
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gong API error: status %d, body: %s", resp.StatusCode, data)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode gong response: %w", err)
		}
	}
	return nil
}
