package adapter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/accord/log"
	"github.com/pithecene-io/accord/types"
)

type recordingAdapter struct {
	events []*BatchFinalizedEvent
	err    error
}

func (r *recordingAdapter) Publish(_ context.Context, event *BatchFinalizedEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingAdapter) Close() error { return nil }

func TestNewBatchFinalizedEvent(t *testing.T) {
	result := types.BatchResult{
		OK:        1,
		Failed:    2,
		BaseToken: "T",
		Members: []types.BatchMember{
			{Index: 0, ProposalID: "p-0", Outcome: &types.FinalizeOutcome{Success: true}},
			{Index: 1, ProposalID: "p-1", Outcome: &types.FinalizeOutcome{Success: false}},
			{Index: 2, ProposalID: "p-2", Err: errors.New("boom")},
		},
	}
	finished := time.Date(2026, 10, 16, 14, 0, 0, 0, time.FixedZone("EDT", -4*3600))

	event := NewBatchFinalizedEvent(result, finished, 1500*time.Millisecond)

	if event.EventType != EventBatchFinalized || event.ContractVersion != ContractVersion {
		t.Errorf("unexpected header fields: %+v", event)
	}
	if event.BaseToken != "T" || event.OK != 1 || event.Failed != 2 {
		t.Errorf("unexpected counts: %+v", event)
	}
	if strings.Join(event.ProposalIDs, ",") != "p-0,p-1,p-2" {
		t.Errorf("ProposalIDs = %v", event.ProposalIDs)
	}
	if strings.Join(event.FailedIDs, ",") != "p-1,p-2" {
		t.Errorf("FailedIDs = %v", event.FailedIDs)
	}
	if event.Timestamp != "2026-10-16T18:00:00Z" {
		t.Errorf("Timestamp = %s", event.Timestamp)
	}
	if event.DurationMs != 1500 {
		t.Errorf("DurationMs = %d", event.DurationMs)
	}
}

func TestNotify(t *testing.T) {
	event := &BatchFinalizedEvent{BaseToken: "T"}

	t.Run("nil adapter", func(t *testing.T) {
		Notify(t.Context(), nil, event, nil)
	})

	t.Run("publish error is logged", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.NewLogger(log.Meta{SessionID: "s"}, log.ParseLevel("info")).WithOutput(&buf)
		a := &recordingAdapter{err: errors.New("connection refused")}

		Notify(t.Context(), a, event, logger)

		if len(a.events) != 1 {
			t.Fatalf("expected 1 publish, got %d", len(a.events))
		}
		if !strings.Contains(buf.String(), "batch notification failed") || !strings.Contains(buf.String(), "connection refused") {
			t.Errorf("expected warning in log, got %s", buf.String())
		}
	})

	t.Run("success", func(t *testing.T) {
		a := &recordingAdapter{}
		Notify(t.Context(), a, event, log.NewNop())
		if len(a.events) != 1 || a.events[0].BaseToken != "T" {
			t.Errorf("unexpected events: %+v", a.events)
		}
	})
}

func TestRetry(t *testing.T) {
	permanent := errors.New("permanent")
	transient := errors.New("transient")

	tests := []struct {
		name      string
		retries   int
		results   []error
		wantCalls int
		wantErr   error
	}{
		{"first try", 3, []error{nil}, 1, nil},
		{"second try", 3, []error{transient, nil}, 2, nil},
		{"exhausted", 1, []error{transient, transient}, 2, transient},
		{"stops on permanent", 3, []error{permanent}, 1, permanent},
		{"negative retries succeed once", -2, []error{nil}, 1, nil},
		{"negative retries fail once", -1, []error{transient}, 1, transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(t.Context(), "test", tt.retries, func(err error) bool {
				return errors.Is(err, permanent)
			}, func(context.Context) error {
				res := tt.results[calls]
				calls++
				return res
			})

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetry_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := Retry(ctx, "test", 3, nil, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("attempt must not run after cancellation")
	}
}
