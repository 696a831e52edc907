package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Result(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want SubmissionResult
	}{
		{
			name: "success is accepted",
			resp: Response{Success: true, Data: json.RawMessage(`{"ok":true}`)},
			want: Accepted(json.RawMessage(`{"ok":true}`)),
		},
		{
			name: "skipped keeps reason",
			resp: Response{Skipped: true, Error: "no addressable contact"},
			want: Skipped("no addressable contact"),
		},
		{
			name: "status means rejected",
			resp: Response{Error: "500: Internal Server Error", Status: 500, StatusText: "Internal Server Error", Body: "boom"},
			want: Rejected(500, "Internal Server Error", "boom"),
		},
		{
			name: "plain error is failed",
			resp: Response{Error: "dial tcp: connection refused"},
			want: Failed("dial tcp: connection refused"),
		},
		{
			name: "empty response is failed",
			resp: Response{},
			want: Failed("dispatcher returned no result"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resp.Result())
		})
	}
}

func TestSubmissionResult_WireRoundTrip(t *testing.T) {
	results := []SubmissionResult{
		Accepted(json.RawMessage(`{"id":7}`)),
		Skipped("no addressable contact"),
		Rejected(502, "Bad Gateway", "upstream down"),
		Failed("timeout"),
	}

	for _, res := range results {
		data, err := json.Marshal(res.Wire())
		require.NoError(t, err)

		var decoded Response
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, res.Outcome, decoded.Result().Outcome, string(data))
	}
}

func TestNewSubmissionPayload(t *testing.T) {
	rec := MessageRecord{Body: "hello", ProfileURL: StringPtr("https://web.telegram.org/k/#@johndoe")}

	payload := NewSubmissionPayload(rec)

	assert.Equal(t, "hello", payload.Message)
	assert.Equal(t, "telegram", payload.Platform)
	require.NotNil(t, payload.ContactURL)
	assert.Equal(t, "https://web.telegram.org/k/#@johndoe", *payload.ContactURL)

	data, err := json.Marshal(NewSubmissionPayload(MessageRecord{Body: "x"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"x","platform":"telegram","contactUrl":null}`, string(data))
}
