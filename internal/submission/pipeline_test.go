package submission

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/models"
)

type mockChannel struct {
	mu    sync.Mutex
	sent  []models.Envelope
	resp  models.Response
	err   error
	block chan struct{}
}

func (m *mockChannel) Send(ctx context.Context, env models.Envelope) (models.Response, error) {
	m.mu.Lock()
	m.sent = append(m.sent, env)
	m.mu.Unlock()
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return models.Response{}, ctx.Err()
		}
	}
	return m.resp, m.err
}

func (m *mockChannel) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingReporter struct {
	mu      sync.Mutex
	results []models.SubmissionResult
	block   chan struct{}
}

func (r *recordingReporter) Report(_ context.Context, _ models.MessageRecord, res models.SubmissionResult) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingReporter) all() []models.SubmissionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SubmissionResult(nil), r.results...)
}

func record(profileURL *string) models.MessageRecord {
	return models.MessageRecord{
		Sender:         "Alice",
		Body:           "hi",
		ConversationID: "1",
		MessageID:      "2",
		ProfileURL:     profileURL,
	}
}

func TestContactAllowed(t *testing.T) {
	tests := []struct {
		name string
		url  *string
		want bool
	}{
		{"nil", nil, false},
		{"empty", models.StringPtr(""), false},
		{"username", models.StringPtr("https://host/@johndoe"), true},
		{"numeric peer", models.StringPtr("https://host/c/12345"), false},
		{"web k route", models.StringPtr("https://web.telegram.org/k/#@johndoe"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContactAllowed(tt.url, "@"))
		})
	}
	assert.False(t, ContactAllowed(models.StringPtr("https://host/@x"), ""))
}

func TestSubmitSync_SkipsWithoutContact(t *testing.T) {
	for _, url := range []*string{nil, models.StringPtr("https://host/c/12345")} {
		ch := &mockChannel{}
		rep := &recordingReporter{}
		p := New(ch, rep, "@", time.Second, logger.Get())

		res := p.SubmitSync(context.Background(), record(url))

		assert.Equal(t, models.Skipped(ReasonNoContact), res)
		assert.Equal(t, 0, ch.sentCount())
		assert.Equal(t, []models.SubmissionResult{res}, rep.all())
		assert.Equal(t, int64(1), p.Counts().Skipped)
	}
}

func TestSubmitSync_SendsPayloadEnvelope(t *testing.T) {
	ch := &mockChannel{resp: models.Response{Success: true, Data: json.RawMessage(`{"id":1}`)}}
	p := New(ch, &recordingReporter{}, "@", time.Second, logger.Get())

	res := p.SubmitSync(context.Background(), record(models.StringPtr("https://host/@johndoe")))

	assert.Equal(t, models.OutcomeAccepted, res.Outcome)
	assert.JSONEq(t, `{"id":1}`, string(res.Response))
	require.Len(t, ch.sent, 1)
	assert.Equal(t, models.TypeNewMessage, ch.sent[0].Type)
	assert.Equal(t, "hi", ch.sent[0].Data.Body)
}

func TestSubmitSync_ClassifiesResponses(t *testing.T) {
	tests := []struct {
		name string
		resp models.Response
		err  error
		want models.Outcome
	}{
		{"rejected", models.Response{Status: 500, StatusText: "Internal Server Error", Body: "oops"}, nil, models.OutcomeRejected},
		{"dispatcher failure", models.ErrorResponse("dial tcp: refused"), nil, models.OutcomeFailed},
		{"dispatcher skip", models.Response{Skipped: true, Error: ReasonNoContact}, nil, models.OutcomeSkipped},
		{"channel error", models.Response{}, errors.New("no responders"), models.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(&mockChannel{resp: tt.resp, err: tt.err}, nil, "@", time.Second, logger.Get())
			res := p.SubmitSync(context.Background(), record(models.StringPtr("https://host/@a")))
			assert.Equal(t, tt.want, res.Outcome)
		})
	}
}

func TestSubmitSync_ChannelErrorMessageCaptured(t *testing.T) {
	p := New(&mockChannel{err: errors.New("no responders")}, nil, "@", time.Second, logger.Get())
	res := p.SubmitSync(context.Background(), record(models.StringPtr("https://host/@a")))
	assert.Contains(t, res.Error, "no responders")
}

func TestSubmit_ReturnsBeforeSendCompletes(t *testing.T) {
	ch := &mockChannel{block: make(chan struct{}), resp: models.Response{Success: true}}
	rep := &recordingReporter{}
	p := New(ch, rep, "@", time.Second, logger.Get())

	p.Submit(context.Background(), record(models.StringPtr("https://host/@a")))
	assert.Eventually(t, func() bool { return ch.sentCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(1), p.Counts().InFlight)
	assert.Empty(t, rep.all())

	close(ch.block)
	p.Wait()

	assert.Equal(t, int64(0), p.Counts().InFlight)
	assert.Equal(t, int64(1), p.Counts().Accepted)
	require.Len(t, rep.all(), 1)
}

func TestSubmit_SurvivesCallerCancel(t *testing.T) {
	ch := &mockChannel{block: make(chan struct{}), resp: models.Response{Success: true}}
	p := New(ch, nil, "@", time.Second, logger.Get())

	ctx, cancel := context.WithCancel(context.Background())
	p.Submit(ctx, record(models.StringPtr("https://host/@a")))
	cancel()
	close(ch.block)
	p.Wait()

	assert.Equal(t, int64(1), p.Counts().Accepted)
}

func TestSubmit_TimeoutIsFailed(t *testing.T) {
	ch := &mockChannel{block: make(chan struct{})}
	p := New(ch, nil, "@", 10*time.Millisecond, logger.Get())

	p.Submit(context.Background(), record(models.StringPtr("https://host/@a")))
	p.Wait()

	assert.Equal(t, int64(1), p.Counts().Failed)
}

func TestSubmit_SkipDoesNotWaitForReporter(t *testing.T) {
	ch := &mockChannel{}
	rep := &recordingReporter{block: make(chan struct{})}
	p := New(ch, rep, "@", time.Second, logger.Get())

	returned := make(chan struct{})
	go func() {
		p.Submit(context.Background(), record(models.StringPtr("https://host/c/12345")))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a slow reporter")
	}
	assert.Empty(t, rep.all())

	close(rep.block)
	p.Wait()

	assert.Equal(t, 0, ch.sentCount())
	assert.Equal(t, []models.SubmissionResult{models.Skipped(ReasonNoContact)}, rep.all())
	assert.Equal(t, int64(1), p.Counts().Skipped)
	assert.Equal(t, int64(0), p.Counts().InFlight)
}
