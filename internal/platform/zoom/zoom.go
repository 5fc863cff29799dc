// Package zoom implements the platform adapter for the Zoom cloud recording
// API. Zoom uses server-to-server OAuth with short-lived tokens, paginates
// with next_page_token, and delivers transcripts as WebVTT files that are
// parsed into segments.
package zoom

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"callsync/internal/config"
	"callsync/internal/models"
	"callsync/internal/platform"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const pageSize = 300

// Adapter talks to the Zoom REST API
type Adapter struct {
	baseURL      string
	accountID    string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New creates a Zoom adapter from configuration
func New(cfg *config.Config, logger zerolog.Logger) *Adapter {
	return &Adapter{
		baseURL:      cfg.ZoomBaseURL,
		accountID:    cfg.ZoomAccountID,
		clientID:     cfg.ZoomClientID,
		clientSecret: cfg.ZoomClientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		// Zoom enforces a daily quota; a low sustained rate with burst
		// headroom keeps single syncs fast without draining the quota
		limiter: rate.NewLimiter(rate.Limit(2), 10),
		logger:  logger.With().Str("platform", platform.PlatformZoom).Logger(),
	}
}

// Platform returns the platform identifier
func (a *Adapter) Platform() string { return platform.PlatformZoom }

// Authenticate obtains a server-to-server OAuth token. Idempotent: calling
// again fetches a fresh token. Expired tokens are also refreshed
// transparently before each request.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if a.accountID == "" || a.clientID == "" || a.clientSecret == "" {
		return &platform.AuthConfigError{
			Platform: platform.PlatformZoom,
			Reason:   "ZOOM_ACCOUNT_ID, ZOOM_CLIENT_ID and ZOOM_CLIENT_SECRET must be set",
		}
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", a.accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/oauth/token?"+form.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(a.clientID + ":" + a.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &platform.TransientError{Platform: platform.PlatformZoom, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return &platform.AuthConfigError{
			Platform: platform.PlatformZoom,
			Reason:   fmt.Sprintf("token request rejected: status %d, body: %s", resp.StatusCode, data),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return &platform.TransientError{Platform: platform.PlatformZoom, StatusCode: resp.StatusCode, Err: fmt.Errorf("token endpoint unavailable")}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	a.mu.Lock()
	a.accessToken = token.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	a.mu.Unlock()

	return nil
}

// ensureToken refreshes the cached token when missing or within a minute of
// expiry
func (a *Adapter) ensureToken(ctx context.Context) error {
	a.mu.Lock()
	valid := a.accessToken != "" && time.Until(a.tokenExpiry) > time.Minute
	a.mu.Unlock()
	if valid {
		return nil
	}
	return a.Authenticate(ctx)
}

// TestConnection performs the cheapest authenticated call. Never errors.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	var me struct {
		ID string `json:"id"`
	}
	if err := a.doRequest(ctx, http.MethodGet, "/v2/users/me", &me); err != nil {
		a.logger.Debug().Err(err).Msg("Connection test failed")
		return false
	}
	return true
}

type zoomMeeting struct {
	UUID           string `json:"uuid"`
	ID             int64  `json:"id"`
	Topic          string `json:"topic"`
	StartTime      string `json:"start_time"`
	Duration       int    `json:"duration"` // minutes
	ShareURL       string `json:"share_url"`
	HostEmail      string `json:"host_email"`
	RecordingFiles []struct {
		FileType    string `json:"file_type"`
		DownloadURL string `json:"download_url"`
	} `json:"recording_files"`
}

type recordingsPage struct {
	NextPageToken string        `json:"next_page_token"`
	Meetings      []zoomMeeting `json:"meetings"`
}

// ListCalls pages through cloud recordings with next_page_token. Any page
// failure aborts the whole listing.
func (a *Adapter) ListCalls(ctx context.Context, window platform.Window, limit int) ([]models.Call, error) {
	var calls []models.Call
	pageToken := ""

	for {
		query := url.Values{}
		query.Set("from", window.Start.UTC().Format("2006-01-02"))
		query.Set("to", window.End.UTC().Format("2006-01-02"))
		query.Set("page_size", fmt.Sprintf("%d", pageSize))
		if pageToken != "" {
			query.Set("next_page_token", pageToken)
		}

		var page recordingsPage
		if err := a.doRequest(ctx, http.MethodGet, "/v2/users/me/recordings?"+query.Encode(), &page); err != nil {
			return nil, fmt.Errorf("failed to list zoom recordings: %w", err)
		}

		for _, meeting := range page.Meetings {
			call, err := a.normalizeCall(ctx, meeting)
			if err != nil {
				a.logger.Warn().Err(err).Str("call_id", meeting.UUID).Msg("Skipping unparseable meeting")
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

		if len(calls) >= limit || page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	sort.Slice(calls, func(i, j int) bool {
		return calls[i].StartTime.Before(calls[j].StartTime)
	})

	return calls, nil
}

// GetTranscript fetches the meeting's TRANSCRIPT recording file (WebVTT) and
// parses it into segments, resolving speaker names to participant emails
func (a *Adapter) GetTranscript(ctx context.Context, callID string) (*models.Transcript, error) {
	var meeting zoomMeeting
	path := "/v2/meetings/" + url.PathEscape(callID) + "/recordings"
	if err := a.doRequest(ctx, http.MethodGet, path, &meeting); err != nil {
		return nil, fmt.Errorf("failed to fetch zoom recording %s: %w", callID, err)
	}

	transcriptURL := ""
	for _, file := range meeting.RecordingFiles {
		if file.FileType == "TRANSCRIPT" {
			transcriptURL = file.DownloadURL
			break
		}
	}
	if transcriptURL == "" {
		return nil, &platform.NotFoundError{Platform: platform.PlatformZoom, Resource: "transcript", ID: callID}
	}

	vtt, err := a.download(ctx, transcriptURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download zoom transcript: %w", err)
	}

	call, err := a.normalizeCall(ctx, meeting)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize zoom meeting %s: %w", callID, err)
	}

	// Speaker name -> email via the participant list gathered during
	// normalization
	emails := make(map[string]string, len(call.Attendees))
	for _, att := range call.Attendees {
		if att.Name != "" {
			emails[strings.ToLower(att.Name)] = att.Email
		}
	}

	segments := parseVTT(vtt)
	for i := range segments {
		if email, ok := emails[strings.ToLower(segments[i].SpeakerName)]; ok {
			segments[i].SpeakerEmail = email
		}
	}
	if len(segments) == 0 {
		return nil, &platform.NotFoundError{Platform: platform.PlatformZoom, Resource: "transcript", ID: callID}
	}

	return &models.Transcript{
		Platform: platform.PlatformZoom,
		CallID:   callID,
		Call:     call,
		Segments: segments,
		FullText: models.JoinSegments(segments),
	}, nil
}

// GetAIContent returns the meeting summary from Zoom's AI Companion
func (a *Adapter) GetAIContent(ctx context.Context, callID string) (json.RawMessage, error) {
	var summary json.RawMessage
	path := "/v2/meetings/" + url.PathEscape(callID) + "/meeting_summary"
	if err := a.doRequest(ctx, http.MethodGet, path, &summary); err != nil {
		return nil, fmt.Errorf("failed to fetch zoom meeting summary: %w", err)
	}
	if len(summary) == 0 || string(summary) == "null" {
		return nil, &platform.NotFoundError{Platform: platform.PlatformZoom, Resource: "ai content", ID: callID}
	}
	return summary, nil
}

// SetupWebhook is a no-op: Zoom event subscriptions are configured on the
// Marketplace app, not via API
func (a *Adapter) SetupWebhook(ctx context.Context, url string) error {
	a.logger.Info().
		Str("url", url).
		Msg("Zoom webhooks require Marketplace setup: subscribe the app to recording.transcript_completed with this URL")
	return nil
}

// normalizeCall maps a Zoom meeting onto the normalized model, fetching the
// participant list for attendee emails
func (a *Adapter) normalizeCall(ctx context.Context, meeting zoomMeeting) (models.Call, error) {
	started, err := time.Parse(time.RFC3339, meeting.StartTime)
	if err != nil {
		return models.Call{}, fmt.Errorf("invalid start_time %q: %w", meeting.StartTime, err)
	}

	var participants struct {
		Participants []struct {
			Name      string `json:"name"`
			UserEmail string `json:"user_email"`
		} `json:"participants"`
	}
	path := fmt.Sprintf("/v2/past_meetings/%d/participants", meeting.ID)
	if err := a.doRequest(ctx, http.MethodGet, path, &participants); err != nil {
		// Participants are enrichment; the call itself is still usable
		a.logger.Debug().Err(err).Str("call_id", meeting.UUID).Msg("No participant list")
	}

	var attendees []models.Attendee
	seen := make(map[string]bool)
	for _, p := range participants.Participants {
		if p.UserEmail == "" || seen[strings.ToLower(p.UserEmail)] {
			continue
		}
		seen[strings.ToLower(p.UserEmail)] = true
		role := models.RoleParticipant
		if strings.EqualFold(p.UserEmail, meeting.HostEmail) {
			role = models.RoleHost
		}
		attendees = append(attendees, models.Attendee{
			Email: p.UserEmail,
			Name:  p.Name,
			Role:  role,
		})
	}

	durationSeconds := meeting.Duration * 60

	return models.Call{
		VendorID:        meeting.UUID,
		Platform:        platform.PlatformZoom,
		Title:           meeting.Topic,
		StartTime:       started,
		EndTime:         started.Add(time.Duration(durationSeconds) * time.Second),
		DurationSeconds: durationSeconds,
		Attendees:       attendees,
		RecordingURL:    meeting.ShareURL,
	}, nil
}

// parseVTT converts a WebVTT transcript into ordered segments. Zoom cues
// carry the speaker as a "Name: text" prefix on the first payload line.
func parseVTT(vtt string) []models.Segment {
	var segments []models.Segment

	blocks := strings.Split(strings.ReplaceAll(vtt, "\r\n", "\n"), "\n\n")
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 || lines[0] == "WEBVTT" {
			continue
		}

		timingIdx := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timingIdx = i
				break
			}
		}
		if timingIdx < 0 || timingIdx == len(lines)-1 {
			continue
		}

		parts := strings.SplitN(lines[timingIdx], "-->", 2)
		startMs, ok1 := parseVTTTimestamp(strings.TrimSpace(parts[0]))
		endMs, ok2 := parseVTTTimestamp(strings.TrimSpace(parts[1]))
		if !ok1 || !ok2 {
			continue
		}

		text := strings.Join(lines[timingIdx+1:], " ")
		speaker := ""
		if colon := strings.Index(text, ": "); colon > 0 && colon < 64 {
			speaker = text[:colon]
			text = text[colon+2:]
		}
		if text == "" {
			continue
		}

		segments = append(segments, models.Segment{
			SpeakerName: speaker,
			Text:        text,
			StartMs:     startMs,
			EndMs:       endMs,
		})
	}

	return segments
}

// parseVTTTimestamp parses "HH:MM:SS.mmm" or "MM:SS.mmm" into milliseconds
func parseVTTTimestamp(ts string) (int64, bool) {
	var h, m, s, ms int64
	if _, err := fmt.Sscanf(ts, "%d:%d:%d.%d", &h, &m, &s, &ms); err != nil {
		h = 0
		if _, err := fmt.Sscanf(ts, "%d:%d.%d", &m, &s, &ms); err != nil {
			return 0, false
		}
	}
	return ((h*60+m)*60+s)*1000 + ms, true
}

// doRequest issues one rate-limited, token-authenticated request and maps
// HTTP failures onto the shared error taxonomy
func (a *Adapter) doRequest(ctx context.Context, method, path string, out interface{}) error {
	if err := a.ensureToken(ctx); err != nil {
		return err
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	a.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+a.accessToken)
	a.mu.Unlock()

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &platform.TransientError{Platform: platform.PlatformZoom, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &platform.AuthError{Platform: platform.PlatformZoom, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return &platform.NotFoundError{Platform: platform.PlatformZoom, Resource: "resource", ID: path}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &platform.TransientError{Platform: platform.PlatformZoom, StatusCode: resp.StatusCode, Err: fmt.Errorf("vendor unavailable")}
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("zoom API error: status %d, body: %s", resp.StatusCode, data)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode zoom response: %w", err)
		}
	}
	return nil
}

// download fetches a recording asset with the bearer token
func (a *Adapter) download(ctx context.Context, assetURL string) (string, error) {
	if err := a.ensureToken(ctx); err != nil {
		return "", err
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	a.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+a.accessToken)
	a.mu.Unlock()

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &platform.TransientError{Platform: platform.PlatformZoom, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &platform.TransientError{Platform: platform.PlatformZoom, StatusCode: resp.StatusCode, Err: fmt.Errorf("download failed")}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript body: %w", err)
	}
	return string(data), nil
}
