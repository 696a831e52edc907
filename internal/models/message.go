package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageRecord is one chat message lifted from the host page.
// It lives for a single pipeline run: created by the extractor, enriched
// with ProfileURL by the resolver, consumed by the submission pipeline.
type MessageRecord struct {
	CaptureID      uuid.UUID `json:"captureId"`
	Sender         string    `json:"sender"`
	Body           string    `json:"body"`
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	CreatedAtRaw   *string   `json:"createdAtRaw"`
	DisplayTime    string    `json:"displayTime"`
	ProfileURL     *string   `json:"profileUrl"`
	CapturedAt     time.Time `json:"capturedAt"`
}

// Deduplicable reports whether both identifiers needed by the ledger are present.
func (r *MessageRecord) Deduplicable() bool {
	return r.ConversationID != "" && r.MessageID != ""
}

// StringPtr is a helper for optional string fields.
func StringPtr(s string) *string {
	return &s
}
