package gong

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

func newTestAdapter(t *testing.T, handler http.Handler) (*Adapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter := New(&config.Config{
		GongBaseURL:      server.URL,
		GongAccessKey:    "key",
		GongAccessSecret: "secret",
	}, zerolog.Nop())
	require.NoError(t, adapter.Authenticate(context.Background()))
	return adapter, server
}

func extensivePage(cursor string, calls ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"records": map[string]interface{}{"cursor": cursor},
		"calls":   calls,
	}
}

func gongCall(id, started string, parties ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"metaData": map[string]interface{}{
			"id":       id,
			"title":    "Demo with Acme",
			"started":  started,
			"duration": 1800,
		},
		"parties": parties,
	}
}

func TestAuthenticateRequiresCredentials(t *testing.T) {
	adapter := New(&config.Config{GongBaseURL: "http://gong.test"}, zerolog.Nop())
	err := adapter.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, platform.IsAuthConfig(err))
}

func TestListCallsFollowsCursor(t *testing.T) {
	var requests []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/calls/extensive", r.URL.Path)
		assert.Equal(t, "Basic a2V5OnNlY3JldA==", r.Header.Get("Authorization"))

		var req extensiveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req.Filter.Cursor)

		var page map[string]interface{}
		if req.Filter.Cursor == "" {
			page = extensivePage("next-1",
				gongCall("c1", "2026-08-10T10:00:00Z"),
				gongCall("c2", "2026-08-11T10:00:00Z"),
			)
		} else {
			page = extensivePage("", gongCall("c3", "2026-08-12T10:00:00Z"))
		}
		json.NewEncoder(w).Encode(page)
	})

	adapter, _ := newTestAdapter(t, handler)

	window := platform.Window{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	calls, err := adapter.ListCalls(context.Background(), window, 100)
	require.NoError(t, err)

	require.Len(t, calls, 3)
	assert.Equal(t, []string{"", "next-1"}, requests)
	// Ascending start time
	assert.Equal(t, "c1", calls[0].VendorID)
	assert.Equal(t, "c3", calls[2].VendorID)
}

func TestListCallsStopsAtLimit(t *testing.T) {
	pages := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		json.NewEncoder(w).Encode(extensivePage("more",
			gongCall("c1", "2026-08-10T10:00:00Z"),
			gongCall("c2", "2026-08-11T10:00:00Z"),
		))
	})
	adapter, _ := newTestAdapter(t, handler)

	window := platform.Window{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	calls, err := adapter.ListCalls(context.Background(), window, 2)
	require.NoError(t, err)
	assert.Len(t, calls, 2)
	assert.Equal(t, 1, pages)
}

func TestListCallsFiltersWindow(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extensivePage("",
			gongCall("in-window", "2026-08-10T10:00:00Z"),
			gongCall("too-old", "2026-07-01T10:00:00Z"),
		))
	})
	adapter, _ := newTestAdapter(t, handler)

	window := platform.Window{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	calls, err := adapter.ListCalls(context.Background(), window, 100)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "in-window", calls[0].VendorID)
}

func TestListCallsAbortsOnPageFailure(t *testing.T) {
	pages := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if pages == 1 {
			json.NewEncoder(w).Encode(extensivePage("next", gongCall("c1", "2026-08-10T10:00:00Z")))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	adapter, _ := newTestAdapter(t, handler)

	window := platform.Window{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	calls, err := adapter.ListCalls(context.Background(), window, 100)
	// All-or-nothing: the first page's calls are discarded too
	assert.Nil(t, calls)
	assert.True(t, platform.IsTransient(err))
}

func TestGetTranscriptJoinsSpeakerEmails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/calls/extensive":
			json.NewEncoder(w).Encode(extensivePage("",
				gongCall("c1", "2026-08-10T10:00:00Z",
					map[string]interface{}{
						"speakerId":    "spk-1",
						"emailAddress": "alice@acme.com",
						"name":         "Alice",
						"affiliation":  "External",
					},
					map[string]interface{}{
						"speakerId":    "spk-2",
						"emailAddress": "rep@seller.com",
						"name":         "Rep",
						"affiliation":  "Internal",
					},
				),
			))
		case "/v2/calls/transcript":
			fmt.Fprint(w, `{"callTranscripts":[{"callId":"c1","transcript":[
				{"speakerId":"spk-1","sentences":[{"start":0,"end":2000,"text":"Hello there"}]},
				{"speakerId":"spk-2","sentences":[{"start":2000,"end":4000,"text":"Hi Alice"}]}
			]}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	adapter, _ := newTestAdapter(t, handler)

	transcript, err := adapter.GetTranscript(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, platform.PlatformGong, transcript.Platform)
	assert.Equal(t, "c1", transcript.CallID)
	require.Len(t, transcript.Segments, 2)
	assert.Equal(t, "Alice", transcript.Segments[0].SpeakerName)
	assert.Equal(t, "alice@acme.com", transcript.Segments[0].SpeakerEmail)
	assert.Equal(t, "rep@seller.com", transcript.Segments[1].SpeakerEmail)
	assert.Equal(t, "Hello there\nHi Alice", transcript.FullText)

	require.Len(t, transcript.Call.Attendees, 2)
	assert.Equal(t, "host", transcript.Call.Attendees[1].Role)
}

func TestGetTranscriptMissing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/calls/extensive":
			json.NewEncoder(w).Encode(extensivePage("", gongCall("c1", "2026-08-10T10:00:00Z")))
		case "/v2/calls/transcript":
			fmt.Fprint(w, `{"callTranscripts":[]}`)
		}
	})
	adapter, _ := newTestAdapter(t, handler)

	_, err := adapter.GetTranscript(context.Background(), "c1")
	assert.True(t, platform.IsNotFound(err))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{name: "401 is auth", status: http.StatusUnauthorized, check: platform.IsAuth},
		{name: "403 is auth", status: http.StatusForbidden, check: platform.IsAuth},
		{name: "404 is not found", status: http.StatusNotFound, check: platform.IsNotFound},
		{name: "429 is transient", status: http.StatusTooManyRequests, check: platform.IsTransient},
		{name: "500 is transient", status: http.StatusInternalServerError, check: platform.IsTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			adapter, _ := newTestAdapter(t, handler)

			_, err := adapter.GetTranscript(context.Background(), "c1")
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}

func TestGetAIContent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":{"cursor":""},"calls":[{"metaData":{"id":"c1"},"content":{"brief":"Quarterly check-in"}}]}`)
	})
	adapter, _ := newTestAdapter(t, handler)

	content, err := adapter.GetAIContent(context.Background(), "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"brief":"Quarterly check-in"}`, string(content))
}
