// Package browser drives the chat web client through Chrome DevTools (chromedp)
// and exposes the live page as a dom.Document.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/blockedby/chat-observer/internal/dom"
	"github.com/blockedby/chat-observer/internal/logger"
)

// DefaultNavigateTimeout bounds the initial page load.
const DefaultNavigateTimeout = 60 * time.Second

// Config holds browser session settings.
type Config struct {
	ChatURL string
	// DebuggerURL attaches to an already running Chrome instead of launching one.
	DebuggerURL string
	UserDataDir string
	Headless    bool
	// PollInterval is the re-check period for element waits.
	PollInterval    time.Duration
	NavigateTimeout time.Duration
}

// Session owns one browser tab showing the chat client.
type Session struct {
	cfg    Config
	tab    context.Context
	cancel context.CancelFunc
	log    *logger.Logger
}

// Open launches (or attaches to) Chrome and navigates to cfg.ChatURL.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*Session, error) {
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = DefaultNavigateTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.DebuggerURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.DebuggerURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if cfg.UserDataDir != "" {
			opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	tab, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			log.Debug().Msgf(format, args...)
		}),
	)

	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// the first Run allocates the browser; it must not carry a timeout
	// or the whole tab is torn down when it fires
	if err := chromedp.Run(tab); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(tab, cfg.NavigateTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(cfg.ChatURL)); err != nil {
		cancel()
		return nil, fmt.Errorf("navigate to %s: %w", cfg.ChatURL, err)
	}

	log.Info().Str("url", cfg.ChatURL).Bool("attached", cfg.DebuggerURL != "").Msg("browser session ready")

	return &Session{cfg: cfg, tab: tab, cancel: cancel, log: log}, nil
}

// Document returns the live page.
func (s *Session) Document() dom.Document {
	return &Document{tab: s.tab, pollInterval: s.cfg.PollInterval}
}

// Done is closed when the browser tab goes away.
func (s *Session) Done() <-chan struct{} {
	return s.tab.Done()
}

// Close closes the tab and, if it was launched here, the browser.
func (s *Session) Close() {
	s.cancel()
}
