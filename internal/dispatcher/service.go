// Package dispatcher owns the call to the ingestion endpoint. It receives
// NEW_MESSAGE requests from the observer and answers with a classified result.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/models"
	"github.com/blockedby/chat-observer/internal/submission"
)

// DefaultIngestURL is the ingestion endpoint.
const DefaultIngestURL = "https://parser.kyna.one/parse"

const (
	// bodyExcerptLimit caps the response text kept for diagnostics.
	bodyExcerptLimit = 512
	// maxResponseBytes caps how much of a response body is read at all.
	maxResponseBytes = 1 << 20
)

// HTTPClient performs outbound requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Service submits payloads to the ingestion endpoint, one attempt each.
type Service struct {
	url     string
	client  HTTPClient
	limiter *RateLimiter
	marker  string
	log     *logger.Logger
}

// NewService creates a Service. A nil client uses a client with a 30s
// timeout; a nil limiter disables throttling.
func NewService(url string, client HTTPClient, limiter *RateLimiter, marker string, log *logger.Logger) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}
	return &Service{
		url:     url,
		client:  client,
		limiter: limiter,
		marker:  marker,
		log:     log,
	}
}

// Handle serves one channel request. It never fails: every problem is
// reported in the Response.
func (s *Service) Handle(ctx context.Context, env models.Envelope) models.Response {
	if env.Type != models.TypeNewMessage {
		s.log.Warn().Str("type", env.Type).Msg("unsupported request type")
		return models.ErrorResponse(fmt.Sprintf("unsupported request type: %q", env.Type))
	}

	rec := env.Data
	if !submission.ContactAllowed(rec.ProfileURL, s.marker) {
		s.log.Info().
			Str("request_id", env.RequestID.String()).
			Str("sender", rec.Sender).
			Msg("skipped, no username in profile url")
		return models.Skipped(submission.ReasonNoContact).Wire()
	}

	res := s.Submit(ctx, models.NewSubmissionPayload(rec))
	s.logResult(env, res)
	return res.Wire()
}

// Submit POSTs payload and classifies the outcome.
func (s *Service) Submit(ctx context.Context, payload models.SubmissionPayload) models.SubmissionResult {
	if err := s.limiter.Wait(ctx); err != nil {
		return models.Failed(fmt.Sprintf("rate limiter: %v", err))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return models.Failed(fmt.Sprintf("encode payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return models.Failed(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Failed(fmt.Sprintf("post: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.Failed(fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests {
			if d, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
				s.limiter.PauseFor(d)
				s.log.Warn().Dur("pause", d).Msg("ingestion endpoint asked to slow down")
			}
		}
		return models.Rejected(resp.StatusCode, http.StatusText(resp.StatusCode), excerpt(data))
	}

	if !json.Valid(data) {
		return models.Failed(fmt.Sprintf("malformed response: %s", excerpt(data)))
	}
	return models.Accepted(json.RawMessage(data))
}

func (s *Service) logResult(env models.Envelope, res models.SubmissionResult) {
	var ev *zerolog.Event
	switch res.Outcome {
	case models.OutcomeAccepted:
		ev = s.log.Info()
	case models.OutcomeRejected:
		ev = s.log.Warn().Int("status", res.StatusCode).Str("body", res.Body)
	default:
		ev = s.log.Error().Str("error", res.Error)
	}
	ev.Str("request_id", env.RequestID.String()).
		Str("conversation", env.Data.ConversationID).
		Str("message", env.Data.MessageID).
		Str("outcome", string(res.Outcome)).
		Msg("submission finished")
}

// retryAfter parses a delay-seconds Retry-After value.
func retryAfter(v string) (time.Duration, bool) {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= bodyExcerptLimit {
		return s
	}
	cut := bodyExcerptLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
