// Package domtest provides an in-memory dom.Document for tests.
package domtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blockedby/chat-observer/internal/dom"
)

// Node is a fake element. Children are keyed by the exact selector string
// the code under test will query with.
type Node struct {
	Name     string
	Attrs    map[string]string
	Content  string
	Children map[string]*Node

	// OnClick runs on every Click; a returned error is passed through.
	OnClick  func() error
	QueryErr error
	Detached bool

	mu     sync.Mutex
	clicks int
}

// NewNode returns a named empty node.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Attrs:    map[string]string{},
		Children: map[string]*Node{},
	}
}

// WithAttr sets an attribute and returns n for chaining.
func (n *Node) WithAttr(name, value string) *Node {
	n.Attrs[name] = value
	return n
}

// WithText sets the text content and returns n.
func (n *Node) WithText(text string) *Node {
	n.Content = text
	return n
}

// WithChild registers child under selector and returns n.
func (n *Node) WithChild(selector string, child *Node) *Node {
	n.Children[selector] = child
	return n
}

// Clicks reports how many times the node was clicked.
func (n *Node) Clicks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clicks
}

func (n *Node) Query(_ context.Context, selector string) (dom.Node, error) {
	if n.Detached {
		return nil, dom.ErrDetached
	}
	if n.QueryErr != nil {
		return nil, n.QueryErr
	}
	if c, ok := n.Children[selector]; ok {
		return c, nil
	}
	return nil, nil
}

func (n *Node) Attr(_ context.Context, name string) (string, bool, error) {
	if n.Detached {
		return "", false, dom.ErrDetached
	}
	v, ok := n.Attrs[name]
	return v, ok, nil
}

func (n *Node) Text(_ context.Context) (string, error) {
	if n.Detached {
		return "", dom.ErrDetached
	}
	return n.Content, nil
}

func (n *Node) Click(_ context.Context) error {
	if n.Detached {
		return dom.ErrDetached
	}
	n.mu.Lock()
	n.clicks++
	hook := n.OnClick
	n.mu.Unlock()
	if hook != nil {
		return hook()
	}
	return nil
}

// Document is a fake live page.
type Document struct {
	mu          sync.Mutex
	nodes       map[string][]*Node
	url         string
	locationErr error
	journal     []string
}

// NewDocument returns an empty document at url.
func NewDocument(url string) *Document {
	return &Document{nodes: map[string][]*Node{}, url: url}
}

// Set replaces the nodes matching selector.
func (d *Document) Set(selector string, nodes ...*Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodes[selector] = nodes
}

// Remove drops every node matching selector.
func (d *Document) Remove(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.nodes, selector)
}

// SetURL changes the navigation address.
func (d *Document) SetURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
}

// FailLocation makes Location return err.
func (d *Document) FailLocation(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locationErr = err
}

// Record appends an entry to the side-effect journal.
func (d *Document) Record(entry string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.journal = append(d.journal, entry)
}

// Journal returns a copy of the recorded side effects in order.
func (d *Document) Journal() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.journal))
	copy(out, d.journal)
	return out
}

func (d *Document) QueryAll(_ context.Context, selector string) ([]dom.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dom.Node, 0, len(d.nodes[selector]))
	for _, n := range d.nodes[selector] {
		out = append(out, n)
	}
	return out, nil
}

func (d *Document) Query(_ context.Context, selector string) (dom.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ns := d.nodes[selector]; len(ns) > 0 {
		return ns[0], nil
	}
	return nil, nil
}

// WaitFor re-checks every millisecond until selector matches or ctx ends.
func (d *Document) WaitFor(ctx context.Context, selector string) (dom.Node, error) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if n, _ := d.Query(ctx, selector); n != nil {
			return n, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Document) Location(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locationErr != nil {
		return "", d.locationErr
	}
	return d.url, nil
}

// ErrBoom is a generic injected failure.
var ErrBoom = errors.New("domtest: injected failure")
