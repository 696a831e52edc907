package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/blockedby/chat-observer/internal/dom"
)

// BindingName is the page-side function the mutation shim calls.
const BindingName = "__chatObserverNotify"

// InstallWatch injects a MutationObserver that reports every mutation
// touching the latest message group. Each report is delivered as one
// value on the returned channel; reports arriving while the channel is
// full are coalesced. The channel is closed when ctx or the tab ends.
func (s *Session) InstallWatch(ctx context.Context, sel dom.Selectors) (<-chan struct{}, error) {
	script, err := WatchScript(sel)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		closed bool
	)
	signals := make(chan struct{}, 1)
	listenCtx, cancel := context.WithCancel(s.tab)
	stop := context.AfterFunc(ctx, cancel)

	chromedp.ListenTarget(listenCtx, func(ev any) {
		called, ok := ev.(*runtime.EventBindingCalled)
		if !ok || called.Name != BindingName {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case signals <- struct{}{}:
		default:
		}
	})

	err = chromedp.Run(s.tab, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := runtime.AddBinding(BindingName).Do(ctx); err != nil {
			return fmt.Errorf("add binding: %w", err)
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
			return fmt.Errorf("register watch script: %w", err)
		}
		_, exc, err := runtime.Evaluate(script).Do(ctx)
		if err != nil {
			return fmt.Errorf("evaluate watch script: %w", err)
		}
		if exc != nil {
			return fmt.Errorf("evaluate watch script: %s", exc.Text)
		}
		return nil
	}))
	if err != nil {
		stop()
		cancel()
		return nil, err
	}

	go func() {
		<-listenCtx.Done()
		stop()
		mu.Lock()
		closed = true
		close(signals)
		mu.Unlock()
	}()

	s.log.Info().Str("class", sel.LatestGroupClass).Msg("mutation watch installed")
	return signals, nil
}

// WatchScript renders the page-side observer for sel. It fires on added
// element nodes that are, or contain, the latest group, and on class
// changes that make an element the latest group.
func WatchScript(sel dom.Selectors) (string, error) {
	if err := sel.Validate(); err != nil {
		return "", err
	}
	class, err := json.Marshal(sel.LatestGroupClass)
	if err != nil {
		return "", err
	}
	query, err := json.Marshal(sel.LatestGroup())
	if err != nil {
		return "", err
	}
	binding, err := json.Marshal(BindingName)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(watchTemplate, class, query, binding), nil
}

const watchTemplate = `(() => {
  const cls = %s, query = %s, binding = %s;
  if (window.__chatObserverInstalled) return;
  const start = () => {
    if (!document.body) { setTimeout(start, 100); return; }
    window.__chatObserverInstalled = true;
    const notify = () => { if (typeof window[binding] === 'function') window[binding]('mutation'); };
    new MutationObserver((mutations) => {
      for (const m of mutations) {
        if (m.type === 'childList') {
          for (const n of m.addedNodes) {
            if (n.nodeType === Node.ELEMENT_NODE &&
                (n.classList?.contains(cls) || n.querySelector?.(query))) notify();
          }
        } else if (m.type === 'attributes' && m.attributeName === 'class' &&
                   m.target.classList?.contains(cls)) {
          notify();
        }
      }
    }).observe(document.body, {childList: true, subtree: true, attributes: true, attributeFilter: ['class']});
  };
  start();
})();`
