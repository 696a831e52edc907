// Package dom describes the host page as seen by the observer: the element
// handles it reads and clicks, and the selectors naming the UI contract points.
package dom

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDetached is returned when a node no longer belongs to the live document.
	ErrDetached = errors.New("dom: node detached")
	// ErrNotFound is returned when a bounded wait ends without a match.
	ErrNotFound = errors.New("dom: element not found")
)

// Node is a handle to an element of the live document.
// Query returns (nil, nil) when nothing matches; a miss is not an error.
type Node interface {
	Query(ctx context.Context, selector string) (Node, error)
	Attr(ctx context.Context, name string) (string, bool, error)
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
}

// Document is the live page.
type Document interface {
	QueryAll(ctx context.Context, selector string) ([]Node, error)
	Query(ctx context.Context, selector string) (Node, error)
	// WaitFor blocks until selector matches or ctx is done.
	WaitFor(ctx context.Context, selector string) (Node, error)
	// Location is the current navigation address.
	Location(ctx context.Context) (string, error)
}

// WaitWithin waits up to timeout for selector to match in doc.
// A timeout yields ErrNotFound; cancellation of ctx yields ctx.Err().
func WaitWithin(ctx context.Context, doc Document, selector string, timeout time.Duration) (Node, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := doc.WaitFor(waitCtx, selector)
	if err == nil {
		return n, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitCtx.Err() != nil {
		return nil, fmt.Errorf("%w: %s after %s", ErrNotFound, selector, timeout)
	}
	return nil, err
}
