package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/blockedby/chat-observer/internal/models"
)

// MockStreamPublisher mocks the jetstream operations we need
type MockStreamPublisher struct {
	PublishedSubject string
	PublishedData    any
	PublishError     error
}

func (m *MockStreamPublisher) Publish(_ context.Context, subject string, data any) error {
	m.PublishedSubject = subject
	m.PublishedData = data
	return m.PublishError
}

func TestResultPublisher_PublishResult(t *testing.T) {
	mock := &MockStreamPublisher{}
	pub := NewResultPublisher(mock, "observer.results")

	rec := models.MessageRecord{ConversationID: "1", MessageID: "2", Sender: "Alice"}
	event := models.NewResultEvent(rec, models.Skipped("no addressable contact"))

	if err := pub.PublishResult(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.PublishedSubject != "observer.results" {
		t.Errorf("subject = %s, want observer.results", mock.PublishedSubject)
	}

	got, ok := mock.PublishedData.(models.ResultEvent)
	if !ok {
		t.Fatalf("published %T, want models.ResultEvent", mock.PublishedData)
	}
	if got.Result.Outcome != models.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped", got.Result.Outcome)
	}
}

func TestResultPublisher_PublishError(t *testing.T) {
	mock := &MockStreamPublisher{PublishError: errors.New("stream not found")}
	pub := NewResultPublisher(mock, "observer.results")

	err := pub.PublishResult(context.Background(), models.ResultEvent{})
	if err == nil {
		t.Fatal("expected error")
	}
}
