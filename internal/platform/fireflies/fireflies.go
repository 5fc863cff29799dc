// Package fireflies implements the platform adapter for the Fireflies.ai
// GraphQL API. Fireflies exposes a single endpoint; pagination is skip/limit
// and speaker emails are resolved through the meeting attendee list by
// display name.
package fireflies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"callsync/internal/config"
	"callsync/internal/models"
	"callsync/internal/platform"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const pageSize = 50

const listQuery = `query Transcripts($fromDate: DateTime, $toDate: DateTime, $limit: Int, $skip: Int) {
  transcripts(fromDate: $fromDate, toDate: $toDate, limit: $limit, skip: $skip) {
    id title date duration transcript_url
    meeting_attendees { displayName email name }
    host_email
  }
}`

const transcriptQuery = `query Transcript($id: String!) {
  transcript(id: $id) {
    id title date duration transcript_url
    meeting_attendees { displayName email name }
    host_email
    sentences { speaker_name text start_time end_time }
    summary { overview action_items keywords }
  }
}`

// Adapter talks to the Fireflies GraphQL API
type Adapter struct {
	endpoint   string
	apiKey     string
	authorized bool
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// New creates a Fireflies adapter from configuration
func New(cfg *config.Config, logger zerolog.Logger) *Adapter {
	return &Adapter{
		endpoint:   cfg.FirefliesBaseURL,
		apiKey:     cfg.FirefliesAPIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Fireflies allows 10 requests per second
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		logger:  logger.With().Str("platform", platform.PlatformFireflies).Logger(),
	}
}

// Platform returns the platform identifier
func (a *Adapter) Platform() string { return platform.PlatformFireflies }

// Authenticate validates that an API key is configured. The key is sent as
// a bearer token on every request, so there is no token state to refresh.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if a.apiKey == "" {
		return &platform.AuthConfigError{
			Platform: platform.PlatformFireflies,
			Reason:   "FIREFLIES_API_KEY must be set",
		}
	}
	a.authorized = true
	return nil
}

// TestConnection runs the cheapest authenticated query. Never errors.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	var resp struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	err := a.query(ctx, `query { user { email } }`, nil, &resp)
	if err != nil {
		a.logger.Debug().Err(err).Msg("Connection test failed")
		return false
	}
	return true
}

type ffTranscript struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Date          int64   `json:"date"` // epoch milliseconds
	Duration      float64 `json:"duration"`
	TranscriptURL string  `json:"transcript_url"`
	HostEmail     string  `json:"host_email"`
	Attendees     []struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
		Name        string `json:"name"`
	} `json:"meeting_attendees"`
	Sentences []struct {
		SpeakerName string  `json:"speaker_name"`
		Text        string  `json:"text"`
		StartTime   float64 `json:"start_time"` // seconds
		EndTime     float64 `json:"end_time"`
	} `json:"sentences"`
	Summary json.RawMessage `json:"summary"`
}

// ListCalls pages with skip/limit until limit is satisfied or a short page
// signals the end. Any page failure aborts the whole listing.
func (a *Adapter) ListCalls(ctx context.Context, window platform.Window, limit int) ([]models.Call, error) {
	var calls []models.Call
	skip := 0

	for {
		vars := map[string]interface{}{
			"fromDate": window.Start.UTC().Format(time.RFC3339),
			"toDate":   window.End.UTC().Format(time.RFC3339),
			"limit":    pageSize,
			"skip":     skip,
		}

		var resp struct {
			Transcripts []ffTranscript `json:"transcripts"`
		}
		if err := a.query(ctx, listQuery, vars, &resp); err != nil {
			return nil, fmt.Errorf("failed to list fireflies transcripts: %w", err)
		}

		for _, ft := range resp.Transcripts {
			call := normalizeCall(ft)
			if !window.Contains(call.StartTime) {
				continue
			}
			calls = append(calls, call)
			if len(calls) >= limit {
				break
			}
		}

		if len(calls) >= limit || len(resp.Transcripts) < pageSize {
			break
		}
		skip += pageSize
	}

	sort.Slice(calls, func(i, j int) bool {
		return calls[i].StartTime.Before(calls[j].StartTime)
	})

	return calls, nil
}

// GetTranscript fetches one transcript with sentences and resolves speaker
// names to attendee emails where display names match
func (a *Adapter) GetTranscript(ctx context.Context, callID string) (*models.Transcript, error) {
	ft, err := a.fetchTranscript(ctx, callID)
	if err != nil {
		return nil, err
	}
	if len(ft.Sentences) == 0 {
		return nil, &platform.NotFoundError{Platform: platform.PlatformFireflies, Resource: "transcript", ID: callID}
	}

	// Display-name -> email lookup; Fireflies has no speaker id join
	emails := make(map[string]string, len(ft.Attendees))
	for _, att := range ft.Attendees {
		name := att.DisplayName
		if name == "" {
			name = att.Name
		}
		if name != "" && att.Email != "" {
			emails[strings.ToLower(name)] = att.Email
		}
	}

	segments := make([]models.Segment, 0, len(ft.Sentences))
	for _, s := range ft.Sentences {
		seg := models.Segment{
			SpeakerName: s.SpeakerName,
			Text:        s.Text,
			StartMs:     int64(s.StartTime * 1000),
			EndMs:       int64(s.EndTime * 1000),
		}
		if email, ok := emails[strings.ToLower(s.SpeakerName)]; ok {
			seg.SpeakerEmail = email
		}
		segments = append(segments, seg)
	}

	return &models.Transcript{
		Platform: platform.PlatformFireflies,
		CallID:   callID,
		Call:     normalizeCall(*ft),
		Segments: segments,
		FullText: models.JoinSegments(segments),
	}, nil
}

// GetAIContent returns the Fireflies summary object as an opaque blob
func (a *Adapter) GetAIContent(ctx context.Context, callID string) (json.RawMessage, error) {
	ft, err := a.fetchTranscript(ctx, callID)
	if err != nil {
		return nil, err
	}
	if len(ft.Summary) == 0 || string(ft.Summary) == "null" {
		return nil, &platform.NotFoundError{Platform: platform.PlatformFireflies, Resource: "ai content", ID: callID}
	}
	return ft.Summary, nil
}

// SetupWebhook is a no-op: Fireflies webhooks are configured per workspace
// in their dashboard
func (a *Adapter) SetupWebhook(ctx context.Context, url string) error {
	a.logger.Info().
		Str("url", url).
		Msg("Fireflies webhooks require dashboard setup: add this URL under Settings > Developer > Webhooks")
	return nil
}

func (a *Adapter) fetchTranscript(ctx context.Context, callID string) (*ffTranscript, error) {
	var resp struct {
		Transcript *ffTranscript `json:"transcript"`
	}
	err := a.query(ctx, transcriptQuery, map[string]interface{}{"id": callID}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fireflies transcript %s: %w", callID, err)
	}
	if resp.Transcript == nil {
		return nil, &platform.NotFoundError{Platform: platform.PlatformFireflies, Resource: "transcript", ID: callID}
	}
	return resp.Transcript, nil
}

func normalizeCall(ft ffTranscript) models.Call {
	started := time.UnixMilli(ft.Date).UTC()
	duration := int(ft.Duration)

	attendees := make([]models.Attendee, 0, len(ft.Attendees))
	for _, att := range ft.Attendees {
		if att.Email == "" {
			continue
		}
		name := att.DisplayName
		if name == "" {
			name = att.Name
		}
		role := models.RoleParticipant
		if strings.EqualFold(att.Email, ft.HostEmail) {
			role = models.RoleHost
		}
		attendees = append(attendees, models.Attendee{
			Email: att.Email,
			Name:  name,
			Role:  role,
		})
	}

	return models.Call{
		VendorID:        ft.ID,
		Platform:        platform.PlatformFireflies,
		Title:           ft.Title,
		StartTime:       started,
		EndTime:         started.Add(time.Duration(duration) * time.Second),
		DurationSeconds: duration,
		Attendees:       attendees,
		RecordingURL:    ft.TranscriptURL,
	}
}

// graphQLError is a single error entry in a GraphQL response
type graphQLError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// query posts one rate-limited GraphQL request and maps failures onto the
// shared error taxonomy
func (a *Adapter) query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	if !a.authorized {
		if err := a.Authenticate(ctx); err != nil {
			return err
		}
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &platform.TransientError{Platform: platform.PlatformFireflies, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &platform.AuthError{Platform: platform.PlatformFireflies, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &platform.TransientError{Platform: platform.PlatformFireflies, StatusCode: resp.StatusCode, Err: fmt.Errorf("vendor unavailable")}
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fireflies API error: status %d, body: %s", resp.StatusCode, data)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode fireflies response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		if first.Code == "object_not_found" {
			return &platform.NotFoundError{Platform: platform.PlatformFireflies, Resource: "object", ID: first.Message}
		}
		if first.Code == "too_many_requests" {
			return &platform.TransientError{Platform: platform.PlatformFireflies, Err: fmt.Errorf("%s", first.Message)}
		}
		return fmt.Errorf("fireflies API error: %s", first.Message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode fireflies data: %w", err)
		}
	}
	return nil
}
