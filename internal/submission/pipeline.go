// Package submission gates extracted records on an addressable contact and
// hands them to the dispatcher over a request/response channel.
package submission

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/models"
)

// ReasonNoContact is the skip reason for records without a usable profile address.
const ReasonNoContact = "no addressable contact"

// Channel carries requests to the dispatcher.
type Channel interface {
	Send(ctx context.Context, env models.Envelope) (models.Response, error)
}

// Reporter receives every classified outcome.
type Reporter interface {
	Report(ctx context.Context, rec models.MessageRecord, res models.SubmissionResult)
}

// ContactAllowed reports whether url identifies an addressable individual.
func ContactAllowed(url *string, marker string) bool {
	return url != nil && marker != "" && strings.Contains(*url, marker)
}

// Counts is a snapshot of outcome totals.
type Counts struct {
	Accepted int64 `json:"accepted"`
	Skipped  int64 `json:"skipped"`
	Rejected int64 `json:"rejected"`
	Failed   int64 `json:"failed"`
	InFlight int64 `json:"inFlight"`
}

// Pipeline submits records at most once and never surfaces errors to the caller.
type Pipeline struct {
	ch       Channel
	reporter Reporter
	marker   string
	timeout  time.Duration
	log      *logger.Logger

	wg       sync.WaitGroup
	accepted atomic.Int64
	skipped  atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
	inFlight atomic.Int64
}

// New creates a Pipeline. timeout bounds each channel round trip.
func New(ch Channel, reporter Reporter, marker string, timeout time.Duration, log *logger.Logger) *Pipeline {
	return &Pipeline{
		ch:       ch,
		reporter: reporter,
		marker:   marker,
		timeout:  timeout,
		log:      log,
	}
}

// Submit gates rec and handles it in the background: records that pass
// are sent, the rest are reported as skipped. It never waits on the
// channel or the Reporter; every outcome goes to the Reporter.
func (p *Pipeline) Submit(ctx context.Context, rec models.MessageRecord) {
	// the outcome outlives the rescan that started it
	bgCtx := context.WithoutCancel(ctx)

	if !ContactAllowed(rec.ProfileURL, p.marker) {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.finish(bgCtx, rec, models.Skipped(ReasonNoContact))
		}()
		return
	}

	p.wg.Add(1)
	p.inFlight.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Add(-1)
		p.finish(bgCtx, rec, p.send(bgCtx, rec))
	}()
}

// SubmitSync gates and sends rec, waiting for the outcome.
func (p *Pipeline) SubmitSync(ctx context.Context, rec models.MessageRecord) models.SubmissionResult {
	var res models.SubmissionResult
	if !ContactAllowed(rec.ProfileURL, p.marker) {
		res = models.Skipped(ReasonNoContact)
	} else {
		res = p.send(ctx, rec)
	}
	p.finish(ctx, rec, res)
	return res
}

// Wait blocks until every background outcome has been reported.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Counts returns the outcome totals so far.
func (p *Pipeline) Counts() Counts {
	return Counts{
		Accepted: p.accepted.Load(),
		Skipped:  p.skipped.Load(),
		Rejected: p.rejected.Load(),
		Failed:   p.failed.Load(),
		InFlight: p.inFlight.Load(),
	}
}

func (p *Pipeline) send(ctx context.Context, rec models.MessageRecord) models.SubmissionResult {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.ch.Send(ctx, models.NewMessageEnvelope(rec))
	if err != nil {
		return models.Failed("channel: " + err.Error())
	}
	return resp.Result()
}

func (p *Pipeline) finish(ctx context.Context, rec models.MessageRecord, res models.SubmissionResult) {
	switch res.Outcome {
	case models.OutcomeAccepted:
		p.accepted.Add(1)
	case models.OutcomeSkipped:
		p.skipped.Add(1)
	case models.OutcomeRejected:
		p.rejected.Add(1)
	default:
		p.failed.Add(1)
	}
	if p.reporter != nil {
		p.reporter.Report(ctx, rec, res)
	}
}
