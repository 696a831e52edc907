package web

import (
	"github.com/blockedby/chat-observer/internal/models"
)

// WebSocket event types
const (
	EventSubmissionResult = "submission.result"
	EventLedgerReset      = "ledger.reset"
)

// WSEvent represents a structured WebSocket message
type WSEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// SubmissionResultEvent wraps a submission outcome for clients.
func SubmissionResultEvent(ev models.ResultEvent) WSEvent {
	return WSEvent{Type: EventSubmissionResult, Payload: ev}
}

// LedgerResetPayload is the payload for EventLedgerReset
type LedgerResetPayload struct {
	Cleared int `json:"cleared"`
}

// LedgerResetEvent reports a ledger reset to clients.
func LedgerResetEvent(cleared int) WSEvent {
	return WSEvent{Type: EventLedgerReset, Payload: LedgerResetPayload{Cleared: cleared}}
}
