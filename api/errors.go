package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusError is a non-2xx response. Message is the server-authored
// error text when the body carried one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Failure is a hard failure as presented to callers. Error() is the
// user-facing text: the server's message verbatim when it sent one,
// otherwise a generic per-operation message. ServerAuthored tells the two
// apart. The underlying cause stays reachable through errors.Is/As.
type Failure struct {
	// Op names the failed operation, e.g. "finalize".
	Op string
	// Message is the user-facing text.
	Message string
	// ServerAuthored is true when Message came from the server.
	ServerAuthored bool
	// Status is the HTTP status, or 0 for transport faults.
	Status int
	// Err is the underlying error.
	Err error
}

func (e *Failure) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Failure) Unwrap() error {
	return e.Err
}

// NewFailure classifies err for op. fallback is used when the server did not
// provide a message.
func NewFailure(op, fallback string, err error) *Failure {
	f := &Failure{Op: op, Message: fallback, Err: err}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		f.Status = statusErr.Code
		if statusErr.Message != "" {
			f.Message = statusErr.Message
			f.ServerAuthored = true
		}
	}
	return f
}

// errorBody covers the error shapes the service emits:
// {"message": "..."}, {"error": "..."} and {"error": {"message": "..."}}.
type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// ServerMessage extracts a server-authored error message from a JSON body.
// Returns "" when the body is not JSON or carries no message.
func ServerMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(eb.Message); msg != "" {
		return msg
	}
	if len(eb.Error) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Error, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(eb.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}
