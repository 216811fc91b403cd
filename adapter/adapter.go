// Package adapter notifies downstream systems when a batch finalization
// completes.
//
// Notification is best effort: Notify logs a publish failure and returns,
// it never changes the batch result that was already reported.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/accord/log"
	"github.com/pithecene-io/accord/types"
)

// ContractVersion is the version of the event payload shape.
const ContractVersion = "1.0.0"

// EventBatchFinalized is the event_type of BatchFinalizedEvent.
const EventBatchFinalized = "batch_finalized"

// BatchFinalizedEvent is published after a batch of finalize calls settles.
type BatchFinalizedEvent struct {
	ContractVersion string   `json:"contract_version"`
	EventType       string   `json:"event_type"` // always "batch_finalized"
	BaseToken       string   `json:"base_token"`
	OK              int      `json:"ok"`
	Failed          int      `json:"failed"`
	ProposalIDs     []string `json:"proposal_ids"`
	FailedIDs       []string `json:"failed_ids,omitempty"`
	Timestamp       string   `json:"timestamp"` // ISO 8601
	DurationMs      int64    `json:"duration_ms"`
}

// NewBatchFinalizedEvent builds the event for a settled batch.
func NewBatchFinalizedEvent(result types.BatchResult, finishedAt time.Time, duration time.Duration) *BatchFinalizedEvent {
	event := &BatchFinalizedEvent{
		ContractVersion: ContractVersion,
		EventType:       EventBatchFinalized,
		BaseToken:       string(result.BaseToken),
		OK:              result.OK,
		Failed:          result.Failed,
		ProposalIDs:     make([]string, 0, len(result.Members)),
		Timestamp:       finishedAt.UTC().Format(time.RFC3339),
		DurationMs:      duration.Milliseconds(),
	}
	for _, m := range result.Members {
		event.ProposalIDs = append(event.ProposalIDs, m.ProposalID)
		if !m.OK() {
			event.FailedIDs = append(event.FailedIDs, m.ProposalID)
		}
	}
	return event
}

// Adapter publishes batch events to a downstream system.
type Adapter interface {
	// Publish sends the event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *BatchFinalizedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Notify publishes event through a and logs the outcome. A nil adapter is
// a no-op.
func Notify(ctx context.Context, a Adapter, event *BatchFinalizedEvent, logger *log.Logger) {
	if a == nil {
		return
	}
	if logger == nil {
		logger = log.NewNop()
	}

	if err := a.Publish(ctx, event); err != nil {
		logger.Warn("batch notification failed", map[string]any{
			"base_token": event.BaseToken,
			"error":      err.Error(),
		})
		return
	}
	logger.Debug("batch notification published", map[string]any{
		"base_token": event.BaseToken,
	})
}

// Retry calls attempt up to 1+retries times with exponential backoff
// (500ms, 1s, 2s, ...) between attempts; negative retries count as zero.
// It stops early when attempt returns nil, when stop reports the error as
// permanent, or when ctx ends. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, stop func(error) bool, attempt func(context.Context) error) error {
	var lastErr error
	attempts := 1 + max(retries, 0)

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if stop != nil && stop(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
