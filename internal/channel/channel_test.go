package channel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/models"
)

type echoHandler struct {
	got []models.Envelope
}

func (h *echoHandler) Handle(_ context.Context, env models.Envelope) models.Response {
	h.got = append(h.got, env)
	return models.Response{Success: true, Data: json.RawMessage(`{"sender":"` + env.Data.Sender + `"}`)}
}

// loopback answers requests by calling Respond in-process, the way a
// dispatcher subscribed on the subject would.
type loopback struct {
	h       Handler
	subject string
	err     error
	reply   []byte
}

func (l *loopback) RequestWithContext(ctx context.Context, subject string, data []byte) (*nats.Msg, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.subject = subject
	if l.reply != nil {
		return &nats.Msg{Data: l.reply}, nil
	}
	return &nats.Msg{Data: Respond(ctx, l.h, data, logger.Get())}, nil
}

func newEnvelope() models.Envelope {
	return models.NewMessageEnvelope(models.MessageRecord{
		Sender:     "Alice",
		Body:       "hi",
		ProfileURL: models.StringPtr("https://host/@alice"),
	})
}

func TestLocal_Send(t *testing.T) {
	h := &echoHandler{}
	resp, err := NewLocal(h).Send(context.Background(), newEnvelope())

	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, h.got, 1)
	assert.Equal(t, "Alice", h.got[0].Data.Sender)
}

func TestLocal_SendCancelled(t *testing.T) {
	h := &echoHandler{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocal(h).Send(ctx, newEnvelope())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.got)
}

func TestNATSChannel_RoundTrip(t *testing.T) {
	h := &echoHandler{}
	lb := &loopback{h: h}
	ch := NewNATSChannel(lb, "observer.messages")

	env := newEnvelope()
	resp, err := ch.Send(context.Background(), env)

	require.NoError(t, err)
	assert.Equal(t, "observer.messages", lb.subject)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"sender":"Alice"}`, string(resp.Data))
	require.Len(t, h.got, 1)
	assert.Equal(t, env.RequestID, h.got[0].RequestID)
	assert.Equal(t, models.TypeNewMessage, h.got[0].Type)
}

func TestNATSChannel_NoResponders(t *testing.T) {
	ch := NewNATSChannel(&loopback{err: nats.ErrNoResponders}, "observer.messages")

	_, err := ch.Send(context.Background(), newEnvelope())
	assert.ErrorIs(t, err, ErrNoResponder)
}

func TestNATSChannel_Timeout(t *testing.T) {
	ch := NewNATSChannel(&loopback{err: context.DeadlineExceeded}, "observer.messages")

	_, err := ch.Send(context.Background(), newEnvelope())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNATSChannel_GarbledReply(t *testing.T) {
	ch := NewNATSChannel(&loopback{reply: []byte("not json")}, "observer.messages")

	_, err := ch.Send(context.Background(), newEnvelope())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestRespond_MalformedRequest(t *testing.T) {
	h := &echoHandler{}
	out := Respond(context.Background(), h, []byte("{"), logger.Get())

	var resp models.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "malformed request")
	assert.Empty(t, h.got)
}

type fakeSubscriber struct {
	cb  nats.MsgHandler
	err error
}

func (f *fakeSubscriber) QueueSubscribe(_, _ string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.cb = cb
	return &nats.Subscription{}, f.err
}

func TestServe_SubscribeError(t *testing.T) {
	_, err := Serve(context.Background(), &fakeSubscriber{err: errors.New("closed")}, "s", "q", &echoHandler{}, logger.Get())
	assert.Error(t, err)
}

func TestServe_RegistersHandler(t *testing.T) {
	fs := &fakeSubscriber{}
	sub, err := Serve(context.Background(), fs, "s", "q", &echoHandler{}, logger.Get())
	require.NoError(t, err)
	assert.NotNil(t, sub)
	assert.NotNil(t, fs.cb)
}
