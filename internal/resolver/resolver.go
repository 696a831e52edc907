// Package resolver obtains a sender's profile address by driving the host
// UI: open the profile panel from the avatar, read the address, close it.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blockedby/chat-observer/internal/dom"
	"github.com/blockedby/chat-observer/internal/logger"
)

// ErrNoAvatar means the group offers no identity affordance to click.
var ErrNoAvatar = errors.New("resolver: no avatar in group")

// Config holds the protocol timings. cmd/observer fills it from
// PROFILE_SETTLE_DELAY, CLOSE_PANEL_TIMEOUT and CLOSE_SETTLE_DELAY.
type Config struct {
	// SettleDelay is the wait after opening the panel before reading the address.
	SettleDelay time.Duration
	// CloseTimeout bounds the wait for the close affordance.
	CloseTimeout time.Duration
	// CloseSettleDelay is the wait after closing the panel.
	CloseSettleDelay time.Duration
}

// Resolver runs the profile panel protocol. It is not safe for concurrent
// use: the page has a single navigation state, so callers serialize.
type Resolver struct {
	doc dom.Document
	sel dom.Selectors
	cfg Config
	log *logger.Logger
}

// New creates a Resolver.
func New(doc dom.Document, sel dom.Selectors, cfg Config, log *logger.Logger) *Resolver {
	return &Resolver{doc: doc, sel: sel, cfg: cfg, log: log}
}

// Resolve returns the sender profile address for group, or "" when it
// cannot be obtained. It makes a single attempt and never returns an error;
// failures are logged and an open panel is closed on a best-effort basis.
func (r *Resolver) Resolve(ctx context.Context, group dom.Node) string {
	url, err := r.resolve(ctx, group)
	if err == nil {
		return url
	}

	if errors.Is(err, ErrNoAvatar) {
		r.log.Debug().Msg("no avatar, profile not resolved")
		return ""
	}

	r.log.Warn().Err(err).Msg("profile resolution failed")
	r.closeIfOpen(ctx)
	return ""
}

func (r *Resolver) resolve(ctx context.Context, group dom.Node) (string, error) {
	avatar, err := group.Query(ctx, r.sel.Avatar)
	if err != nil {
		return "", fmt.Errorf("locate avatar: %w", err)
	}
	if avatar == nil {
		return "", ErrNoAvatar
	}

	if err := avatar.Click(ctx); err != nil {
		return "", fmt.Errorf("open profile panel: %w", err)
	}

	// No reliable "profile loaded" signal exists; the delay is heuristic.
	if err := sleep(ctx, r.cfg.SettleDelay); err != nil {
		return "", err
	}

	url, err := r.doc.Location(ctx)
	if err != nil {
		return "", fmt.Errorf("capture profile address: %w", err)
	}
	r.log.Debug().Str("url", url).Msg("profile address captured")

	closeBtn, err := dom.WaitWithin(ctx, r.doc, r.sel.ClosePanel, r.cfg.CloseTimeout)
	switch {
	case errors.Is(err, dom.ErrNotFound):
		r.log.Warn().Dur("timeout", r.cfg.CloseTimeout).Msg("close button not found, panel may remain open")
		return url, nil
	case err != nil:
		return "", fmt.Errorf("wait for close button: %w", err)
	}

	if err := closeBtn.Click(ctx); err != nil {
		return "", fmt.Errorf("close profile panel: %w", err)
	}
	if err := sleep(ctx, r.cfg.CloseSettleDelay); err != nil {
		return "", err
	}

	return url, nil
}

// closeIfOpen clicks the close affordance if it is present right now.
func (r *Resolver) closeIfOpen(ctx context.Context) {
	if ctx.Err() != nil {
		// still close the panel when the run itself was cancelled
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CloseTimeout)
		defer cancel()
	}

	closeBtn, err := r.doc.Query(ctx, r.sel.ClosePanel)
	if err != nil || closeBtn == nil {
		return
	}
	if err := closeBtn.Click(ctx); err != nil {
		r.log.Debug().Err(err).Msg("best-effort close failed")
		return
	}
	r.log.Debug().Msg("profile panel closed after failure")
}

// sleep waits for d. Only cancellation of ctx (process shutdown) cuts it short.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
