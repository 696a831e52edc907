// Package channel carries NEW_MESSAGE requests from the observer to the
// dispatcher and brings the response back. Transport failures surface as
// errors; the submission pipeline turns them into Failed results.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/models"
)

// ErrNoResponder means no dispatcher is listening on the subject.
var ErrNoResponder = errors.New("channel: no dispatcher listening")

// Handler serves one request. The dispatcher Service implements it.
type Handler interface {
	Handle(ctx context.Context, env models.Envelope) models.Response
}

// Local calls a handler in the same process.
type Local struct {
	h Handler
}

// NewLocal creates an in-process channel.
func NewLocal(h Handler) *Local {
	return &Local{h: h}
}

// Send runs the handler and returns its response.
func (l *Local) Send(ctx context.Context, env models.Envelope) (models.Response, error) {
	if err := ctx.Err(); err != nil {
		return models.Response{}, err
	}
	return l.h.Handle(ctx, env), nil
}

// Requester is the request side of a NATS connection.
type Requester interface {
	RequestWithContext(ctx context.Context, subject string, data []byte) (*nats.Msg, error)
}

// NATSChannel sends requests over core NATS request/reply.
type NATSChannel struct {
	req     Requester
	subject string
}

// NewNATSChannel creates a channel publishing requests on subject.
func NewNATSChannel(req Requester, subject string) *NATSChannel {
	return &NATSChannel{req: req, subject: subject}
}

// Send publishes env and waits for the reply until ctx is done.
func (c *NATSChannel) Send(ctx context.Context, env models.Envelope) (models.Response, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return models.Response{}, fmt.Errorf("marshal request: %w", err)
	}

	msg, err := c.req.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return models.Response{}, fmt.Errorf("%w on %s", ErrNoResponder, c.subject)
		}
		return models.Response{}, fmt.Errorf("request %s: %w", c.subject, err)
	}

	var resp models.Response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return models.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Subscriber is the serving side of a NATS connection.
type Subscriber interface {
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Serve answers requests on subject with h until the subscription is
// drained. Dispatchers sharing queue split the load.
func Serve(ctx context.Context, sub Subscriber, subject, queue string, h Handler, log *logger.Logger) (*nats.Subscription, error) {
	s, err := sub.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		reply := Respond(ctx, h, msg.Data, log)
		if err := msg.Respond(reply); err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("reply failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	log.Info().Str("subject", subject).Str("queue", queue).Msg("serving dispatch requests")
	return s, nil
}

// Respond decodes one request, runs h and encodes the answer. Malformed
// requests are answered with an error response, never left unanswered.
func Respond(ctx context.Context, h Handler, data []byte, log *logger.Logger) []byte {
	var resp models.Response

	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Msg("malformed dispatch request")
		resp = models.ErrorResponse(fmt.Sprintf("malformed request: %v", err))
	} else {
		resp = h.Handle(ctx, env)
	}

	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(models.ErrorResponse("encode response: " + err.Error()))
	}
	return out
}
