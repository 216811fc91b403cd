// Package finalize triggers idempotent finalization of proposals, one at a
// time or as a concurrent batch, and fetches the resulting final proposals.
//
// Finalize never retries. A 2xx response whose body reports success=false
// is a soft failure and comes back as an outcome, not an error. Non-2xx
// responses and transport faults are hard failures returned as *api.Failure.
package finalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pithecene-io/accord/api"
	"github.com/pithecene-io/accord/log"
	"github.com/pithecene-io/accord/metrics"
	"github.com/pithecene-io/accord/transport"
	"github.com/pithecene-io/accord/types"
)

// Fallback messages for hard failures without a server-authored message.
const (
	msgFinalizeFailed = "failed to finalize proposal"
	msgGetFailed      = "failed to load final proposal"
	msgDownloadFailed = "failed to download final proposal"
)

// ErrNoProposalID is returned when an empty proposal ID is given.
var ErrNoProposalID = errors.New("proposal id is required")

// Options configures a Client. Every field is optional.
type Options struct {
	// Mode delivers downloads. Defaults to buffered.
	Mode transport.Mode
	// Logger defaults to a no-op logger.
	Logger *log.Logger
	// Metrics may be nil.
	Metrics *metrics.Collector
}

// Client performs finalize calls against the service.
type Client struct {
	doer    api.Doer
	mode    transport.Mode
	logger  *log.Logger
	metrics *metrics.Collector
}

// New creates a finalize client sending through doer.
func New(doer api.Doer, opts Options) *Client {
	c := &Client{
		doer:    doer,
		mode:    opts.Mode,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if c.mode == nil {
		c.mode = transport.NewBuffered(opts.Metrics)
	}
	if c.logger == nil {
		c.logger = log.NewNop()
	}
	return c
}

// Finalize finalizes one proposal. The token is sent as the idempotency
// header when non-zero and omitted entirely otherwise.
func (c *Client) Finalize(ctx context.Context, proposalID string, token types.IdempotencyToken) (*types.FinalizeOutcome, error) {
	if proposalID == "" {
		c.metrics.IncFinalizeHardFailed()
		return nil, api.NewFailure("finalize", msgFinalizeFailed, ErrNoProposalID)
	}

	req := &api.Request{
		Method: http.MethodPost,
		Path:   "/finalize/" + url.PathEscape(proposalID),
	}
	if !token.IsZero() {
		req.Header = http.Header{}
		req.Header.Set(api.IdempotencyHeader, string(token))
	}

	c.logger.Debug("finalize request", map[string]any{
		"proposal_id": proposalID,
		"has_token":   !token.IsZero(),
	})

	resp, err := c.doer.Send(ctx, req)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		return nil, c.hardFailure(proposalID, err)
	}

	var outcome types.FinalizeOutcome
	if err := json.Unmarshal(resp.Body, &outcome); err != nil {
		return nil, c.hardFailure(proposalID, fmt.Errorf("decode finalize response: %w", err))
	}

	if !outcome.Success {
		c.metrics.IncFinalizeSoftFailed()
		c.logger.Warn("finalize declined", map[string]any{
			"proposal_id": proposalID,
			"message":     outcome.Message,
		})
		return &outcome, nil
	}

	c.metrics.IncFinalizeSucceeded()
	fields := map[string]any{"proposal_id": proposalID}
	if outcome.ArtifactRef != nil {
		fields["final_id"] = outcome.ArtifactRef.FinalID
	}
	c.logger.Info("proposal finalized", fields)
	return &outcome, nil
}

func (c *Client) hardFailure(proposalID string, err error) error {
	c.metrics.IncFinalizeHardFailed()
	failure := api.NewFailure("finalize", msgFinalizeFailed, err)
	c.logger.Error("finalize failed", map[string]any{
		"proposal_id": proposalID,
		"status":      failure.Status,
		"error":       err.Error(),
	})
	return failure
}
