// Package api provides the admin REST API of the observer.
package api

import (
	"net/http"
	"sort"

	"github.com/go-fuego/fuego"

	"github.com/blockedby/chat-observer/internal/web"
)

// ============================================================================
// Health
// ============================================================================

func (s *Server) healthCheck(c fuego.ContextNoBody) (HealthResponse, error) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(c.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
		} else {
			resp.Database = "ok"
		}
	}

	if s.deps.Broker != nil {
		if s.deps.Broker.IsConnected() {
			resp.Broker = "connected"
		} else {
			resp.Status = "degraded"
			resp.Broker = "disconnected"
		}
	}

	return resp, nil
}

// ============================================================================
// Observer Handlers
// ============================================================================

func (s *Server) getObserverStatus(c fuego.ContextNoBody) (ObserverStatusResponse, error) {
	if s.deps.Observer == nil {
		return ObserverStatusResponse{}, fuego.HTTPError{
			Status: http.StatusServiceUnavailable,
			Title:  "Service Unavailable",
			Detail: "observer not running",
		}
	}
	return ObserverStatusFromDomain(s.deps.Observer.Status()), nil
}

// ============================================================================
// Ledger Handlers
// ============================================================================

func (s *Server) listLedger(c fuego.ContextNoBody) (LedgerResponse, error) {
	if s.deps.Ledger == nil {
		return LedgerResponse{}, fuego.HTTPError{Status: http.StatusServiceUnavailable, Title: "Service Unavailable", Detail: "ledger not loaded"}
	}

	snapshot := s.deps.Ledger.Snapshot()
	entries := make([]LedgerEntry, 0, len(snapshot))
	for conv, msg := range snapshot {
		entries = append(entries, LedgerEntry{ConversationID: conv, MessageID: msg})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ConversationID < entries[j].ConversationID
	})

	return LedgerResponse{Entries: entries, Total: len(entries)}, nil
}

func (s *Server) resetLedger(c fuego.ContextNoBody) (LedgerResetResponse, error) {
	if s.deps.Ledger == nil {
		return LedgerResetResponse{}, fuego.HTTPError{Status: http.StatusServiceUnavailable, Title: "Service Unavailable", Detail: "ledger not loaded"}
	}

	cleared, err := s.deps.Ledger.Reset(c.Context())
	if err != nil {
		return LedgerResetResponse{}, fuego.InternalServerError{Detail: err.Error()}
	}

	if s.deps.Hub != nil {
		s.deps.Hub.Broadcast(web.LedgerResetEvent(cleared))
	}

	return LedgerResetResponse{Cleared: cleared}, nil
}
