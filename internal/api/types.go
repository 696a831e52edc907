package api

import (
	"github.com/blockedby/chat-observer/internal/observer"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error" description:"Error message"`
	Details string `json:"details,omitempty" description:"Additional error details"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status" example:"ok" description:"Health status: ok or degraded"`
	Version  string `json:"version" example:"dev" description:"Application version"`
	Database string `json:"database,omitempty" example:"ok" description:"Ledger store connectivity"`
	Broker   string `json:"broker,omitempty" example:"connected" description:"NATS connection state, absent when dispatching in-process"`
}

// ============================================================================
// Observer Types
// ============================================================================

// SubmissionCounts are outcome totals since start.
type SubmissionCounts struct {
	Accepted int64 `json:"accepted" description:"Submissions accepted by the ingestion endpoint"`
	Skipped  int64 `json:"skipped" description:"Records without an addressable contact"`
	Rejected int64 `json:"rejected" description:"Submissions answered with a non-2xx status"`
	Failed   int64 `json:"failed" description:"Transport or channel failures"`
	InFlight int64 `json:"in_flight" description:"Submissions awaiting a response"`
}

// ObserverStatusResponse describes the detection pipeline.
type ObserverStatusResponse struct {
	State       string           `json:"state" example:"idle" description:"Pipeline phase: idle, extracting, resolving, submitting"`
	Pending     bool             `json:"pending" description:"A dropped rescan will be re-run"`
	Rescans     int64            `json:"rescans" description:"Rescan rounds run"`
	Dropped     int64            `json:"dropped" description:"Rescans dropped while busy"`
	Extracted   int64            `json:"extracted" description:"New messages extracted"`
	Duplicates  int64            `json:"duplicates" description:"Candidates skipped by the ledger"`
	Errors      int64            `json:"errors" description:"Extraction errors"`
	Submissions SubmissionCounts `json:"submissions" description:"Submission outcomes"`
}

// ObserverStatusFromDomain converts observer.Status.
func ObserverStatusFromDomain(s observer.Status) ObserverStatusResponse {
	return ObserverStatusResponse{
		State:      s.State,
		Pending:    s.Pending,
		Rescans:    s.Rescans,
		Dropped:    s.Dropped,
		Extracted:  s.Extracted,
		Duplicates: s.Duplicates,
		Errors:     s.Errors,
		Submissions: SubmissionCounts{
			Accepted: s.Submissions.Accepted,
			Skipped:  s.Submissions.Skipped,
			Rejected: s.Submissions.Rejected,
			Failed:   s.Submissions.Failed,
			InFlight: s.Submissions.InFlight,
		},
	}
}

// ============================================================================
// Ledger Types
// ============================================================================

// LedgerEntry is the last processed message of one conversation.
type LedgerEntry struct {
	ConversationID string `json:"conversation_id" example:"-1001234567890" description:"Conversation identifier"`
	MessageID      string `json:"message_id" example:"4711" description:"Last processed message identifier"`
}

// LedgerResponse lists every ledger entry.
type LedgerResponse struct {
	Entries []LedgerEntry `json:"entries" description:"Entries ordered by conversation"`
	Total   int           `json:"total" description:"Number of conversations"`
}

// LedgerResetResponse reports a reset.
type LedgerResetResponse struct {
	Cleared int `json:"cleared" description:"Number of conversations forgotten"`
}
