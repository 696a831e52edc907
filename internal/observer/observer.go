// Package observer runs the detection pipeline over the latest message
// groups: extract, resolve the sender profile, submit. Runs never overlap.
package observer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/blockedby/chat-observer/internal/dom"
	"github.com/blockedby/chat-observer/internal/extractor"
	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/models"
	"github.com/blockedby/chat-observer/internal/submission"
)

// ErrBusy is returned by Rescan when another run holds the pipeline.
var ErrBusy = errors.New("observer: pipeline busy, rescan dropped")

// State is the pipeline phase.
type State int32

const (
	StateIdle State = iota
	StateExtracting
	StateResolving
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateResolving:
		return "resolving"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Extractor reads a message group.
type Extractor interface {
	Extract(ctx context.Context, group dom.Node) (*models.MessageRecord, error)
}

// Resolver obtains the sender profile address for a group, or "".
type Resolver interface {
	Resolve(ctx context.Context, group dom.Node) string
}

// Submitter hands records to the dispatcher without waiting for the outcome.
type Submitter interface {
	Submit(ctx context.Context, rec models.MessageRecord)
	Counts() submission.Counts
}

// Config tunes rescan handling.
type Config struct {
	// RescanDropped re-runs one rescan after a run during which rescans were
	// dropped. Off by default: dropped rounds are only logged.
	RescanDropped bool
}

// Status is a point-in-time view of the observer.
type Status struct {
	State       string            `json:"state"`
	Pending     bool              `json:"pending"`
	Rescans     int64             `json:"rescans"`
	Dropped     int64             `json:"dropped"`
	Extracted   int64             `json:"extracted"`
	Duplicates  int64             `json:"duplicates"`
	Errors      int64             `json:"errors"`
	Submissions submission.Counts `json:"submissions"`
}

// Observer serializes pipeline runs over the page.
type Observer struct {
	doc dom.Document
	sel dom.Selectors
	ext Extractor
	res Resolver
	sub Submitter
	cfg Config
	log *logger.Logger

	mu      sync.Mutex
	state   State
	pending bool

	rescans    atomic.Int64
	dropped    atomic.Int64
	extracted  atomic.Int64
	duplicates atomic.Int64
	errs       atomic.Int64
}

// New creates an idle Observer.
func New(doc dom.Document, sel dom.Selectors, ext Extractor, res Resolver, sub Submitter, cfg Config, log *logger.Logger) *Observer {
	return &Observer{
		doc: doc,
		sel: sel,
		ext: ext,
		res: res,
		sub: sub,
		cfg: cfg,
		log: log,
	}
}

// Rescan processes every latest message group in turn. If a run is already
// in progress it returns ErrBusy immediately and the candidates are left
// for a later rescan.
func (o *Observer) Rescan(ctx context.Context) error {
	if !o.acquire() {
		return ErrBusy
	}
	for {
		o.round(ctx)
		if !o.release(ctx) {
			return nil
		}
		o.log.Debug().Msg("re-running dropped rescan")
	}
}

// Status reports the current state and counters.
func (o *Observer) Status() Status {
	o.mu.Lock()
	state, pending := o.state, o.pending
	o.mu.Unlock()

	return Status{
		State:       state.String(),
		Pending:     pending,
		Rescans:     o.rescans.Load(),
		Dropped:     o.dropped.Load(),
		Extracted:   o.extracted.Load(),
		Duplicates:  o.duplicates.Load(),
		Errors:      o.errs.Load(),
		Submissions: o.sub.Counts(),
	}
}

func (o *Observer) acquire() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		o.dropped.Add(1)
		if o.cfg.RescanDropped {
			o.pending = true
		}
		o.log.Info().
			Str("state", o.state.String()).
			Bool("requeued", o.cfg.RescanDropped).
			Msg("rescan dropped, pipeline busy")
		return false
	}
	o.state = StateExtracting
	return true
}

// release returns the pipeline to idle, or keeps it and reports true when
// a dropped rescan should run now.
func (o *Observer) release(ctx context.Context) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending && ctx.Err() == nil {
		o.pending = false
		o.state = StateExtracting
		return true
	}
	o.pending = false
	o.state = StateIdle
	return false
}

func (o *Observer) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Observer) round(ctx context.Context) {
	o.rescans.Add(1)

	groups, err := o.doc.QueryAll(ctx, o.sel.LatestGroup())
	if err != nil {
		o.errs.Add(1)
		o.log.Warn().Err(err).Msg("list latest groups")
		return
	}

	for _, g := range groups {
		if ctx.Err() != nil {
			return
		}
		o.process(ctx, g)
	}
}

func (o *Observer) process(ctx context.Context, group dom.Node) {
	o.setState(StateExtracting)
	rec, err := o.ext.Extract(ctx, group)
	switch {
	case errors.Is(err, extractor.ErrSeen):
		o.duplicates.Add(1)
		return
	case errors.Is(err, extractor.ErrNoMessage):
		return
	case err != nil:
		o.errs.Add(1)
		o.log.Warn().Err(err).Msg("extraction failed")
		return
	}
	o.extracted.Add(1)

	o.setState(StateResolving)
	if url := o.res.Resolve(ctx, group); url != "" {
		rec.ProfileURL = &url
	}

	o.setState(StateSubmitting)
	o.sub.Submit(ctx, *rec)
}
