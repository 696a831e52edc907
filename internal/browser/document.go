package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/blockedby/chat-observer/internal/dom"
)

// Document implements dom.Document over a chromedp tab.
type Document struct {
	tab          context.Context
	pollInterval time.Duration
}

// run executes actions on the tab while honouring the caller's ctx.
// Actions must run on a context derived from the tab, so the caller's
// cancellation is forwarded instead.
func (d *Document) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *Document) QueryAll(ctx context.Context, selector string) ([]dom.Node, error) {
	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query all %q: %w", selector, err)
	}
	return d.wrap(nodes), nil
}

func (d *Document) Query(ctx context.Context, selector string) (dom.Node, error) {
	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &Node{doc: d, n: nodes[0]}, nil
}

func (d *Document) WaitFor(ctx context.Context, selector string) (dom.Node, error) {
	var nodes []*cdp.Node
	err := d.run(ctx, chromedp.Nodes(selector, &nodes,
		chromedp.ByQuery,
		chromedp.RetryInterval(d.pollInterval),
	))
	if err != nil {
		return nil, fmt.Errorf("wait for %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("wait for %q: no match", selector)
	}
	return &Node{doc: d, n: nodes[0]}, nil
}

func (d *Document) Location(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return url, nil
}

func (d *Document) wrap(nodes []*cdp.Node) []dom.Node {
	out := make([]dom.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Node{doc: d, n: n})
	}
	return out
}

// Node implements dom.Node over a DevTools node.
type Node struct {
	doc *Document
	n   *cdp.Node
}

func (n *Node) ids() ([]cdp.NodeID, error) {
	if n.n == nil || n.n.NodeID == cdp.EmptyNodeID {
		return nil, dom.ErrDetached
	}
	return []cdp.NodeID{n.n.NodeID}, nil
}

func (n *Node) Query(ctx context.Context, selector string) (dom.Node, error) {
	if _, err := n.ids(); err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	err := n.doc.run(ctx, chromedp.Nodes(selector, &nodes,
		chromedp.ByQuery,
		chromedp.FromNode(n.n),
		chromedp.AtLeast(0),
	))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &Node{doc: n.doc, n: nodes[0]}, nil
}

// Attr reads from the node snapshot chromedp keeps in sync with DOM events.
func (n *Node) Attr(_ context.Context, name string) (string, bool, error) {
	if _, err := n.ids(); err != nil {
		return "", false, err
	}
	v, ok := n.n.Attribute(name)
	return v, ok, nil
}

func (n *Node) Text(ctx context.Context) (string, error) {
	ids, err := n.ids()
	if err != nil {
		return "", err
	}
	var text string
	if err := n.doc.run(ctx, chromedp.TextContent(ids, &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("text content: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Click activates the element the way element.click() would, so targets
// that are hidden or overlapped still receive it.
func (n *Node) Click(ctx context.Context) error {
	if _, err := n.ids(); err != nil {
		return err
	}
	return n.doc.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := cdpdom.ResolveNode().WithNodeID(n.n.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		_, exc, err := runtime.CallFunctionOn(`function() { this.click(); }`).
			WithObjectID(obj.ObjectID).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("click: %w", err)
		}
		if exc != nil {
			return fmt.Errorf("click: %s", exc.Text)
		}
		return nil
	}))
}
