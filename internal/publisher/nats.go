package publisher

import (
	"context"
	"fmt"

	"github.com/blockedby/chat-observer/internal/models"
)

// StreamPublisher stores JSON values on a stream subject.
// *nats.Client implements it.
type StreamPublisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

// ResultPublisher emits submission outcomes to JetStream.
type ResultPublisher struct {
	js      StreamPublisher
	subject string
}

// NewResultPublisher creates a publisher for subject.
func NewResultPublisher(js StreamPublisher, subject string) *ResultPublisher {
	return &ResultPublisher{js: js, subject: subject}
}

// PublishResult publishes one outcome event.
func (p *ResultPublisher) PublishResult(ctx context.Context, event models.ResultEvent) error {
	if err := p.js.Publish(ctx, p.subject, event); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}
