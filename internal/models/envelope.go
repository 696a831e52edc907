package models

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
)

// TypeNewMessage is the only request type understood by the dispatcher.
const TypeNewMessage = "NEW_MESSAGE"

// Envelope is a request on the page → dispatcher channel.
type Envelope struct {
	Type      string        `json:"type"`
	RequestID uuid.UUID     `json:"requestId"`
	Data      MessageRecord `json:"data"`
}

// NewMessageEnvelope wraps a record in a NEW_MESSAGE request.
func NewMessageEnvelope(rec MessageRecord) Envelope {
	return Envelope{
		Type:      TypeNewMessage,
		RequestID: uuid.New(),
		Data:      rec,
	}
}

// Response is the dispatcher's answer on the channel.
type Response struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	Skipped    bool            `json:"skipped,omitempty"`
	Status     int             `json:"status,omitempty"`
	StatusText string          `json:"statusText,omitempty"`
	Body       string          `json:"body,omitempty"`
}

// ErrorResponse is the response delivered when a request could not be served.
func ErrorResponse(msg string) Response {
	return Response{Success: false, Error: msg}
}

// Wire converts a classified result to its channel form.
func (r SubmissionResult) Wire() Response {
	switch r.Outcome {
	case OutcomeAccepted:
		return Response{Success: true, Data: r.Response}
	case OutcomeSkipped:
		return Response{Success: false, Skipped: true, Error: r.Reason}
	case OutcomeRejected:
		return Response{
			Success:    false,
			Error:      rejectedMessage(r.StatusCode, r.StatusText),
			Status:     r.StatusCode,
			StatusText: r.StatusText,
			Body:       r.Body,
		}
	default:
		return Response{Success: false, Error: r.Error}
	}
}

// Result classifies a wire response back into a SubmissionResult.
func (r Response) Result() SubmissionResult {
	switch {
	case r.Success:
		return Accepted(r.Data)
	case r.Skipped:
		return Skipped(r.Error)
	case r.Status != 0:
		return Rejected(r.Status, r.StatusText, r.Body)
	default:
		msg := r.Error
		if msg == "" {
			msg = "dispatcher returned no result"
		}
		return Failed(msg)
	}
}

func rejectedMessage(code int, text string) string {
	if text == "" {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code) + ": " + text
}
