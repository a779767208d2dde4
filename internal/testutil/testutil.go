// Package testutil provides common test utilities and helpers for engine tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/api"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/clock"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/focus"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/limits"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/notify"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/restriction"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/store"
)

// Env bundles a fully wired engine over in-memory dependencies with the
// clock pinned, so tests can drive time explicitly.
type Env struct {
	Store        *store.InMemoryStore
	Clock        *clock.Fixed
	Notifier     *notify.RecordingNotifier
	Restrictions *restriction.Manager
	Limits       *limits.Engine
	Focus        *focus.Manager
	Server       *api.Server
}

// NewEnv creates an Env with the clock pinned to now.
func NewEnv(now time.Time) *Env {
	st := store.NewInMemoryStore()
	clk := clock.NewFixed(now)
	notifier := notify.NewRecordingNotifier()
	rm := restriction.NewManager(st, clk)
	le := limits.NewEngine(st, clk)
	fm := focus.NewManager(st, clk, notifier)
	return &Env{
		Store:        st,
		Clock:        clk,
		Notifier:     notifier,
		Restrictions: rm,
		Limits:       le,
		Focus:        fm,
		Server:       api.NewServer(st, clk, rm, le, fm),
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, url, reqBody)
	req.Header.Set("Content-Type", "application/json")
	return req
}
