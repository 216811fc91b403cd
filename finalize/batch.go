package finalize

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/accord/types"
)

// FinalizeMany finalizes every proposal concurrently and waits for all of
// them. Member i is sent with token base:i. An empty base is replaced by a
// fresh random token.
//
// Every member is settled independently: a hard failure, soft failure or
// panic in one member never affects the others or the batch itself. Each
// member runs under its own child of ctx, so cancelling ctx aborts all
// members while a member's own cancellation leaves its siblings running.
func (c *Client) FinalizeMany(ctx context.Context, proposalIDs []string, base types.IdempotencyToken) types.BatchResult {
	if base.IsZero() {
		base = types.IdempotencyToken(uuid.New().String())
	}

	start := time.Now()
	members := make([]types.BatchMember, len(proposalIDs))
	var wg sync.WaitGroup

	for i, id := range proposalIDs {
		members[i] = types.BatchMember{
			Index:      i,
			ProposalID: id,
			Token:      base.Derive(i),
		}

		wg.Add(1)
		go func(m *types.BatchMember) {
			defer wg.Done()
			c.settle(ctx, m)
		}(&members[i])
	}
	wg.Wait()

	result := types.BatchResult{BaseToken: base, Members: members}
	for _, m := range members {
		if m.OK() {
			result.OK++
		} else {
			result.Failed++
		}
	}

	c.metrics.IncBatches()
	c.logger.Info("batch finalized", map[string]any{
		"base_token":  string(base),
		"total":       len(members),
		"ok":          result.OK,
		"failed":      result.Failed,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return result
}

// settle runs one member to completion, recording either its outcome or
// its error. Panics are recovered into the member's error.
func (c *Client) settle(ctx context.Context, m *types.BatchMember) {
	memberCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			m.Outcome = nil
			m.Err = fmt.Errorf("finalize %s: panic: %v", m.ProposalID, r)
			c.metrics.IncFinalizeHardFailed()
			c.logger.Error("finalize panicked", map[string]any{
				"proposal_id": m.ProposalID,
				"index":       m.Index,
				"panic":       fmt.Sprint(r),
			})
		}
	}()

	m.Outcome, m.Err = c.Finalize(memberCtx, m.ProposalID, m.Token)
}
