package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Platform is the constant platform tag sent with every payload.
const Platform = "telegram"

// SubmissionPayload is the JSON body POSTed to the ingestion endpoint.
type SubmissionPayload struct {
	Message    string  `json:"message"`
	Platform   string  `json:"platform"`
	ContactURL *string `json:"contactUrl"`
}

// NewSubmissionPayload derives the outbound payload from a record.
func NewSubmissionPayload(rec MessageRecord) SubmissionPayload {
	return SubmissionPayload{
		Message:    rec.Body,
		Platform:   Platform,
		ContactURL: rec.ProfileURL,
	}
}

// Outcome tags a SubmissionResult.
type Outcome string

// Outcome constants.
const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// SubmissionResult is the classified outcome of one submission.
// Only the fields belonging to Outcome are set.
type SubmissionResult struct {
	Outcome Outcome `json:"outcome"`

	// accepted
	Response json.RawMessage `json:"response,omitempty"`

	// skipped
	Reason string `json:"reason,omitempty"`

	// rejected
	StatusCode int    `json:"statusCode,omitempty"`
	StatusText string `json:"statusText,omitempty"`
	Body       string `json:"body,omitempty"`

	// failed
	Error string `json:"error,omitempty"`
}

// Accepted builds an accepted result carrying the endpoint's JSON response.
func Accepted(response json.RawMessage) SubmissionResult {
	return SubmissionResult{Outcome: OutcomeAccepted, Response: response}
}

// Skipped builds a result for a record that was filtered before sending.
func Skipped(reason string) SubmissionResult {
	return SubmissionResult{Outcome: OutcomeSkipped, Reason: reason}
}

// Rejected builds a result for a non-2xx answer from the endpoint.
func Rejected(statusCode int, statusText, body string) SubmissionResult {
	return SubmissionResult{
		Outcome:    OutcomeRejected,
		StatusCode: statusCode,
		StatusText: statusText,
		Body:       body,
	}
}

// Failed builds a result for transport failures and malformed responses.
func Failed(errMsg string) SubmissionResult {
	return SubmissionResult{Outcome: OutcomeFailed, Error: errMsg}
}

// ResultEvent is the telemetry record emitted for every submission outcome.
type ResultEvent struct {
	CaptureID      uuid.UUID        `json:"captureId"`
	ConversationID string           `json:"conversationId"`
	MessageID      string           `json:"messageId"`
	Sender         string           `json:"sender"`
	ProfileURL     *string          `json:"profileUrl"`
	Result         SubmissionResult `json:"result"`
	ReportedAt     time.Time        `json:"reportedAt"`
}

// NewResultEvent pairs a record with its outcome.
func NewResultEvent(rec MessageRecord, res SubmissionResult) ResultEvent {
	return ResultEvent{
		CaptureID:      rec.CaptureID,
		ConversationID: rec.ConversationID,
		MessageID:      rec.MessageID,
		Sender:         rec.Sender,
		ProfileURL:     rec.ProfileURL,
		Result:         res,
		ReportedAt:     time.Now().UTC(),
	}
}
