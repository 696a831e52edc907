package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/chat-observer/internal/observer"
	"github.com/blockedby/chat-observer/internal/submission"
	"github.com/blockedby/chat-observer/internal/web"
)

// Mock implementations for testing

type mockLedger struct {
	entries  map[string]string
	resetErr error
}

func (m *mockLedger) Snapshot() map[string]string {
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

func (m *mockLedger) Reset(context.Context) (int, error) {
	if m.resetErr != nil {
		return 0, m.resetErr
	}
	n := len(m.entries)
	m.entries = map[string]string{}
	return n, nil
}

type mockObserver struct {
	status observer.Status
}

func (m *mockObserver) Status() observer.Status { return m.status }

type mockDB struct{ err error }

func (m *mockDB) Ping(context.Context) error { return m.err }

type mockBroker struct{ connected bool }

func (m *mockBroker) IsConnected() bool { return m.connected }

type mockHub struct{ events []any }

func (m *mockHub) Broadcast(v any) { m.events = append(m.events, v) }

func testConfig() *Config {
	return &Config{
		Port:        8080,
		Title:       "Test API",
		Description: "Test",
		Version:     "1.0.0",
	}
}

func serve(srv *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	srv.fuego.Mux.ServeHTTP(w, req)
	return w
}

func TestNewServer(t *testing.T) {
	srv := NewServer(testConfig(), &Dependencies{})
	require.NotNil(t, srv)
	assert.NotNil(t, srv.fuego)
	assert.NotNil(t, srv.Mux())
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(testConfig(), &Dependencies{DB: &mockDB{}})

	w := serve(srv, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "ok", resp.Database)
	assert.Empty(t, resp.Broker)
}

func TestHealthEndpoint_Broker(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		wantStatus string
		wantBroker string
	}{
		{"connected", true, "ok", "connected"},
		{"disconnected", false, "degraded", "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(testConfig(), &Dependencies{DB: &mockDB{}, Broker: &mockBroker{connected: tt.connected}})

			w := serve(srv, http.MethodGet, "/health")
			require.Equal(t, http.StatusOK, w.Code)

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantBroker, resp.Broker)
		})
	}
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	srv := NewServer(testConfig(), &Dependencies{DB: &mockDB{err: errors.New("connection refused")}})

	w := serve(srv, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Contains(t, resp.Database, "connection refused")
}

func TestObserverStatusEndpoint(t *testing.T) {
	obs := &mockObserver{status: observer.Status{
		State:     "resolving",
		Rescans:   4,
		Dropped:   1,
		Extracted: 3,
		Submissions: submission.Counts{
			Accepted: 2,
			Skipped:  1,
		},
	}}
	srv := NewServer(testConfig(), &Dependencies{Observer: obs})

	w := serve(srv, http.MethodGet, "/api/v1/observer/status")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ObserverStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "resolving", resp.State)
	assert.Equal(t, int64(4), resp.Rescans)
	assert.Equal(t, int64(1), resp.Dropped)
	assert.Equal(t, int64(2), resp.Submissions.Accepted)
}

func TestObserverStatusEndpoint_NotRunning(t *testing.T) {
	srv := NewServer(testConfig(), &Dependencies{})

	w := serve(srv, http.MethodGet, "/api/v1/observer/status")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListLedgerEndpoint(t *testing.T) {
	led := &mockLedger{entries: map[string]string{"b": "2", "a": "10"}}
	srv := NewServer(testConfig(), &Dependencies{Ledger: led})

	w := serve(srv, http.MethodGet, "/api/v1/ledger")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LedgerResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []LedgerEntry{
		{ConversationID: "a", MessageID: "10"},
		{ConversationID: "b", MessageID: "2"},
	}, resp.Entries)
}

func TestResetLedgerEndpoint(t *testing.T) {
	led := &mockLedger{entries: map[string]string{"a": "1", "b": "2"}}
	hub := &mockHub{}
	srv := NewServer(testConfig(), &Dependencies{Ledger: led, Hub: hub})

	w := serve(srv, http.MethodDelete, "/api/v1/ledger")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LedgerResetResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Cleared)
	assert.Empty(t, led.entries)

	require.Len(t, hub.events, 1)
	ev, ok := hub.events[0].(web.WSEvent)
	require.True(t, ok)
	assert.Equal(t, web.EventLedgerReset, ev.Type)
}

func TestResetLedgerEndpoint_StoreError(t *testing.T) {
	led := &mockLedger{resetErr: errors.New("disk full")}
	srv := NewServer(testConfig(), &Dependencies{Ledger: led})

	w := serve(srv, http.MethodDelete, "/api/v1/ledger")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebSocketRoute_OnlyWithHub(t *testing.T) {
	without := NewServer(testConfig(), &Dependencies{Hub: &mockHub{}})
	assert.Equal(t, http.StatusNotFound, serve(without, http.MethodGet, "/ws").Code)

	hub := web.NewHub()
	go hub.Run()
	defer hub.Stop()

	with := NewServer(testConfig(), &Dependencies{Hub: hub})
	// a plain GET is not an upgrade request
	assert.Equal(t, http.StatusBadRequest, serve(with, http.MethodGet, "/ws").Code)
}

func TestScalarHandler(t *testing.T) {
	w := httptest.NewRecorder()
	ScalarHandler("/openapi.json", "Test API", "Test").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Test API - API Documentation")
	assert.Contains(t, w.Body.String(), `data-url="/openapi.json"`)
	assert.Contains(t, w.Body.String(), "@scalar/api-reference@"+scalarVersion)
	assert.Contains(t, w.Body.String(), "window.location.origin")
}

func TestScalarHandler_EscapesMetadata(t *testing.T) {
	w := httptest.NewRecorder()
	ScalarHandler("/openapi.json", "Chat <Observer>", "it's \"live\"").
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, body, "<Observer>")
	assert.Contains(t, body, "Chat &lt;Observer&gt; - API Documentation")
	assert.NotContains(t, body, `it's "live"`)
}
