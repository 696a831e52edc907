// Package telemetry fans submission outcomes out to the log, websocket
// clients and the results stream.
package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/models"
	"github.com/blockedby/chat-observer/internal/web"
)

// publishTimeout bounds one results stream publish.
const publishTimeout = 5 * time.Second

// Broadcaster pushes events to live clients. *web.Hub implements it.
type Broadcaster interface {
	Broadcast(v any)
}

// Publisher stores outcome events durably.
type Publisher interface {
	PublishResult(ctx context.Context, event models.ResultEvent) error
}

// Reporter implements submission.Reporter. hub and pub are optional.
type Reporter struct {
	log *logger.Logger
	hub Broadcaster
	pub Publisher
}

// NewReporter creates a Reporter; pass nil for sinks that are not configured.
func NewReporter(log *logger.Logger, hub Broadcaster, pub Publisher) *Reporter {
	return &Reporter{log: log, hub: hub, pub: pub}
}

// Report records one outcome. Sink failures are logged and otherwise ignored.
func (r *Reporter) Report(ctx context.Context, rec models.MessageRecord, res models.SubmissionResult) {
	event := models.NewResultEvent(rec, res)

	r.logResult(event)

	if r.hub != nil {
		r.hub.Broadcast(web.SubmissionResultEvent(event))
	}

	if r.pub != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := r.pub.PublishResult(pubCtx, event); err != nil {
			r.log.Warn().Err(err).Str("capture_id", event.CaptureID.String()).Msg("results stream publish failed")
		}
	}
}

func (r *Reporter) logResult(event models.ResultEvent) {
	res := event.Result

	var ev *zerolog.Event
	switch res.Outcome {
	case models.OutcomeAccepted:
		ev = r.log.Info()
	case models.OutcomeSkipped:
		ev = r.log.Info().Str("reason", res.Reason)
	case models.OutcomeRejected:
		ev = r.log.Warn().
			Int("status", res.StatusCode).
			Str("status_text", res.StatusText).
			Str("body", res.Body)
	default:
		ev = r.log.Error().Str("error", res.Error)
	}

	ev.Str("capture_id", event.CaptureID.String()).
		Str("conversation", event.ConversationID).
		Str("message", event.MessageID).
		Str("sender", event.Sender).
		Str("outcome", string(res.Outcome)).
		Msg("submission result")
}
