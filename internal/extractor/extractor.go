// Package extractor lifts message records out of rendered message groups
// and filters them through the dedup ledger.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/chat-observer/internal/dom"
	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/models"
)

// UnknownSender is used when the sender name element is missing or empty.
const UnknownSender = "Unknown"

var (
	// ErrNoMessage means the group holds no user message (service notices only).
	ErrNoMessage = errors.New("extractor: no user message in group")
	// ErrSeen means the message is not newer than the ledger entry.
	ErrSeen = errors.New("extractor: message already processed")
)

// Ledger is the dedup state the extractor consults and advances.
type Ledger interface {
	IsNew(conversationID, messageID string) bool
	RecordSeen(conversationID, messageID string)
}

// Extractor reads message groups.
type Extractor struct {
	sel    dom.Selectors
	ledger Ledger
	log    *logger.Logger
	now    func() time.Time
}

// New creates an Extractor.
func New(sel dom.Selectors, ledger Ledger, log *logger.Logger) *Extractor {
	return &Extractor{
		sel:    sel,
		ledger: ledger,
		log:    log,
		now:    time.Now,
	}
}

// Extract reads the primary message of group. New messages are recorded in
// the ledger before the record is returned, so later steps failing does not
// cause the message to be seen again. Messages lacking either identifier
// cannot be deduplicated; they are always returned and never recorded.
func (e *Extractor) Extract(ctx context.Context, group dom.Node) (*models.MessageRecord, error) {
	msg, err := group.Query(ctx, e.sel.Message)
	if err != nil {
		return nil, fmt.Errorf("locate message: %w", err)
	}
	if msg == nil {
		return nil, ErrNoMessage
	}

	conversationID := e.attr(ctx, msg, e.sel.ConversationAttr)
	messageID := e.attr(ctx, msg, e.sel.MessageAttr)

	if !e.ledger.IsNew(conversationID, messageID) {
		e.log.Debug().
			Str("conversation", conversationID).
			Str("message", messageID).
			Msg("already processed")
		return nil, ErrSeen
	}

	rec := &models.MessageRecord{
		CaptureID:      uuid.New(),
		Sender:         e.childText(ctx, msg, e.sel.SenderName),
		Body:           e.childText(ctx, msg, e.sel.Body),
		MessageID:      messageID,
		ConversationID: conversationID,
		DisplayTime:    e.displayTime(ctx, msg),
		CapturedAt:     e.now().UTC(),
	}
	if rec.Sender == "" {
		rec.Sender = UnknownSender
	}
	if ts, ok, err := msg.Attr(ctx, e.sel.TimestampAttr); err == nil && ok {
		rec.CreatedAtRaw = models.StringPtr(ts)
	}

	if rec.Deduplicable() {
		e.ledger.RecordSeen(conversationID, messageID)
	} else {
		e.log.Warn().
			Str("conversation", conversationID).
			Str("message", messageID).
			Msg("message without identifiers, dedup bypassed")
	}

	e.log.Info().
		Str("capture_id", rec.CaptureID.String()).
		Str("conversation", rec.ConversationID).
		Str("message", rec.MessageID).
		Str("sender", rec.Sender).
		Str("display_time", rec.DisplayTime).
		Str("body", rec.Body).
		Msg("new message")

	return rec, nil
}

func (e *Extractor) attr(ctx context.Context, n dom.Node, name string) string {
	v, ok, err := n.Attr(ctx, name)
	if err != nil || !ok {
		return ""
	}
	return v
}

// childText returns the trimmed text of the first match of selector under n,
// or "" when it is missing or unreadable.
func (e *Extractor) childText(ctx context.Context, n dom.Node, selector string) string {
	child, err := n.Query(ctx, selector)
	if err != nil {
		e.log.Debug().Err(err).Str("selector", selector).Msg("optional field unreadable")
		return ""
	}
	if child == nil {
		return ""
	}
	text, err := child.Text(ctx)
	if err != nil {
		e.log.Debug().Err(err).Str("selector", selector).Msg("optional field unreadable")
		return ""
	}
	return text
}

func (e *Extractor) displayTime(ctx context.Context, n dom.Node) string {
	el, err := n.Query(ctx, e.sel.TimeElement)
	if err != nil || el == nil {
		return ""
	}
	return e.attr(ctx, el, e.sel.DisplayTimeAttr)
}
