package fireflies

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callsync/internal/config"
	"callsync/internal/platform"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter := New(&config.Config{
		FirefliesBaseURL: server.URL,
		FirefliesAPIKey:  "ff-key",
	}, zerolog.Nop())
	require.NoError(t, adapter.Authenticate(context.Background()))
	return adapter
}

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func decodeGQL(t *testing.T, r *http.Request) gqlRequest {
	t.Helper()
	var req gqlRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func ffListItem(id string, dateMs int64) map[string]interface{} {
	return map[string]interface{}{
		"id":       id,
		"title":    "Weekly sync",
		"date":     dateMs,
		"duration": 1800,
	}
}

func TestAuthenticateRequiresAPIKey(t *testing.T) {
	adapter := New(&config.Config{FirefliesBaseURL: "http://ff.test"}, zerolog.Nop())
	err := adapter.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, platform.IsAuthConfig(err))
}

func TestListCallsPagesWithSkip(t *testing.T) {
	aug10 := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC).UnixMilli()

	var skips []float64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ff-key", r.Header.Get("Authorization"))
		req := decodeGQL(t, r)
		skip := req.Variables["skip"].(float64)
		skips = append(skips, skip)

		items := make([]map[string]interface{}, 0)
		if skip == 0 {
			// A full page forces another fetch
			for i := 0; i < pageSize; i++ {
				items = append(items, ffListItem(fmt.Sprintf("t%d", i), aug10))
			}
		} else {
			items = append(items, ffListItem("t-last", aug10))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"transcripts": items},
		})
	})
	adapter := newTestAdapter(t, handler)

	window := platform.Window{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	calls, err := adapter.ListCalls(context.Background(), window, 100)
	require.NoError(t, err)

	assert.Len(t, calls, pageSize+1)
	assert.Equal(t, []float64{0, float64(pageSize)}, skips)
}

func TestGetTranscriptResolvesSpeakerEmails(t *testing.T) {
	aug10 := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC).UnixMilli()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"transcript": map[string]interface{}{
					"id":         "t1",
					"title":      "Acme demo",
					"date":       aug10,
					"duration":   900,
					"host_email": "rep@seller.com",
					"meeting_attendees": []map[string]string{
						{"displayName": "Alice Smith", "email": "alice@acme.com"},
						{"displayName": "Rep", "email": "rep@seller.com"},
					},
					"sentences": []map[string]interface{}{
						{"speaker_name": "Alice Smith", "text": "Hello", "start_time": 0.0, "end_time": 2.5},
						{"speaker_name": "Rep", "text": "Hi Alice", "start_time": 2.5, "end_time": 4.0},
						{"speaker_name": "Unknown Caller", "text": "Hey", "start_time": 4.0, "end_time": 5.0},
					},
					"summary": map[string]string{"overview": "Demo call"},
				},
			},
		})
	})
	adapter := newTestAdapter(t, handler)

	transcript, err := adapter.GetTranscript(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, platform.PlatformFireflies, transcript.Platform)
	require.Len(t, transcript.Segments, 3)
	assert.Equal(t, "alice@acme.com", transcript.Segments[0].SpeakerEmail)
	assert.Equal(t, int64(2500), transcript.Segments[0].EndMs)
	// Speaker with no attendee match stays email-less
	assert.Empty(t, transcript.Segments[2].SpeakerEmail)

	require.Len(t, transcript.Call.Attendees, 2)
	assert.Equal(t, "host", transcript.Call.Attendees[1].Role)
}

func TestGetTranscriptNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"transcript": nil},
		})
	})
	adapter := newTestAdapter(t, handler)

	_, err := adapter.GetTranscript(context.Background(), "missing")
	assert.True(t, platform.IsNotFound(err))
}

func TestGraphQLErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		check func(error) bool
	}{
		{name: "object_not_found", code: "object_not_found", check: platform.IsNotFound},
		{name: "too_many_requests", code: "too_many_requests", check: platform.IsTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"errors": []map[string]string{{"message": "nope", "code": tt.code}},
				})
			})
			adapter := newTestAdapter(t, handler)

			_, err := adapter.GetTranscript(context.Background(), "t1")
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}

func TestHTTPAuthRejection(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	adapter := newTestAdapter(t, handler)

	_, err := adapter.GetTranscript(context.Background(), "t1")
	assert.True(t, platform.IsAuth(err))
}

func TestGetAIContentReturnsSummary(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"transcript": map[string]interface{}{
					"id":      "t1",
					"date":    int64(1754820000000),
					"summary": map[string]string{"overview": "Quarterly review"},
				},
			},
		})
	})
	adapter := newTestAdapter(t, handler)

	content, err := adapter.GetAIContent(context.Background(), "t1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"overview":"Quarterly review"}`, string(content))
}
