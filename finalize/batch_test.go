package finalize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pithecene-io/accord/api"
	"github.com/pithecene-io/accord/metrics"
)

// doerFunc adapts a function to api.Doer.
type doerFunc func(ctx context.Context, req *api.Request) (*api.Response, error)

func (f doerFunc) Send(ctx context.Context, req *api.Request) (*api.Response, error) {
	return f(ctx, req)
}

func okResponse() *api.Response {
	return &api.Response{Status: http.StatusOK, Body: []byte(`{"success":true,"message":"ok"}`)}
}

func proposalIDFromPath(p string) string {
	return strings.TrimPrefix(p, "/finalize/")
}

func TestFinalizeMany_DerivedTokens(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}

	client := New(doerFunc(func(_ context.Context, req *api.Request) (*api.Response, error) {
		mu.Lock()
		seen[proposalIDFromPath(req.Path)] = req.Header.Get(api.IdempotencyHeader)
		mu.Unlock()
		return okResponse(), nil
	}), Options{})

	ids := []string{"p-a", "p-b", "p-c", "p-d"}
	result := client.FinalizeMany(t.Context(), ids, "batch-1")

	if result.OK != 4 || result.Failed != 0 {
		t.Fatalf("result = %d ok / %d failed, want 4/0", result.OK, result.Failed)
	}
	if result.BaseToken != "batch-1" {
		t.Errorf("BaseToken = %q", result.BaseToken)
	}

	tokens := map[string]bool{}
	for i, id := range ids {
		want := fmt.Sprintf("batch-1:%d", i)
		if seen[id] != want {
			t.Errorf("token for %s = %q, want %q", id, seen[id], want)
		}
		tokens[seen[id]] = true

		m := result.Members[i]
		if m.Index != i || m.ProposalID != id || string(m.Token) != want {
			t.Errorf("member %d = %+v", i, m)
		}
	}
	if len(tokens) != len(ids) {
		t.Errorf("expected %d distinct tokens, got %d", len(ids), len(tokens))
	}
}

func TestFinalizeMany_PartialFailureIsolation(t *testing.T) {
	for failing := range 4 {
		t.Run(fmt.Sprintf("member_%d_fails", failing), func(t *testing.T) {
			failID := fmt.Sprintf("p-%d", failing)
			client := New(doerFunc(func(_ context.Context, req *api.Request) (*api.Response, error) {
				if proposalIDFromPath(req.Path) == failID {
					return &api.Response{Status: http.StatusInternalServerError, Body: []byte(`{"message":"boom"}`)}, nil
				}
				return okResponse(), nil
			}), Options{})

			ids := []string{"p-0", "p-1", "p-2", "p-3"}
			result := client.FinalizeMany(t.Context(), ids, "T")

			if result.OK != 3 || result.Failed != 1 {
				t.Fatalf("result = %d ok / %d failed, want 3/1", result.OK, result.Failed)
			}
			m := result.Members[failing]
			if m.OK() || m.Message() != "boom" {
				t.Errorf("failing member = %+v", m)
			}
		})
	}
}

func TestFinalizeMany_MixedOutcomes(t *testing.T) {
	collector := metrics.NewCollector("buffered")
	client := New(doerFunc(func(_ context.Context, req *api.Request) (*api.Response, error) {
		switch proposalIDFromPath(req.Path) {
		case "soft":
			return &api.Response{Status: http.StatusOK, Body: []byte(`{"success":false,"message":"not ready"}`)}, nil
		case "hard":
			return &api.Response{Status: http.StatusBadGateway}, nil
		case "fault":
			return nil, errors.New("connection reset")
		case "panic":
			panic("unexpected nil")
		default:
			return okResponse(), nil
		}
	}), Options{Metrics: collector})

	ids := []string{"ok-1", "soft", "hard", "fault", "panic", "ok-2"}
	result := client.FinalizeMany(t.Context(), ids, "T")

	if result.OK != 2 || result.Failed != 4 {
		t.Fatalf("result = %d ok / %d failed, want 2/4", result.OK, result.Failed)
	}
	if result.Total() != len(ids) {
		t.Errorf("Total() = %d", result.Total())
	}

	soft := result.Members[1]
	if soft.Err != nil || soft.Outcome == nil || soft.Message() != "not ready" {
		t.Errorf("soft member = %+v", soft)
	}
	if result.Members[2].Message() != msgFinalizeFailed {
		t.Errorf("hard member message = %q", result.Members[2].Message())
	}
	if result.Members[3].Message() != msgFinalizeFailed {
		t.Errorf("fault member message = %q", result.Members[3].Message())
	}
	if !strings.Contains(result.Members[4].Message(), "panic") {
		t.Errorf("panic member message = %q", result.Members[4].Message())
	}

	snap := collector.Snapshot()
	if snap.Batches != 1 || snap.FinalizeSucceeded != 2 || snap.FinalizeSoftFailed != 1 || snap.FinalizeHardFailed != 3 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestFinalizeMany_Concurrent(t *testing.T) {
	const n = 5
	var arrived atomic.Int32
	all := make(chan struct{})

	client := New(doerFunc(func(ctx context.Context, _ *api.Request) (*api.Response, error) {
		if arrived.Add(1) == n {
			close(all)
		}
		select {
		case <-all:
			return okResponse(), nil
		case <-time.After(5 * time.Second):
			return nil, errors.New("members were not in flight together")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}), Options{})

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p-%d", i)
	}

	result := client.FinalizeMany(t.Context(), ids, "T")
	if result.OK != n {
		t.Errorf("OK = %d, want %d (members: %+v)", result.OK, n, result.Members)
	}
}

func TestFinalizeMany_EmptyBaseToken(t *testing.T) {
	client := New(doerFunc(func(context.Context, *api.Request) (*api.Response, error) {
		return okResponse(), nil
	}), Options{})

	first := client.FinalizeMany(t.Context(), []string{"a", "b"}, "")
	second := client.FinalizeMany(t.Context(), []string{"a", "b"}, "")

	if first.BaseToken.IsZero() {
		t.Fatal("expected a generated base token")
	}
	if first.BaseToken == second.BaseToken {
		t.Error("generated base tokens must differ between batches")
	}
	if first.Members[0].Token == first.Members[1].Token {
		t.Error("member tokens must be distinct")
	}
}

func TestFinalizeMany_CancelledParent(t *testing.T) {
	client := New(doerFunc(func(ctx context.Context, _ *api.Request) (*api.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), Options{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	result := client.FinalizeMany(ctx, []string{"a", "b", "c"}, "T")
	if result.Failed != 3 {
		t.Fatalf("Failed = %d, want 3", result.Failed)
	}
	for _, m := range result.Members {
		if !errors.Is(m.Err, context.Canceled) {
			t.Errorf("member %d err = %v, want context.Canceled", m.Index, m.Err)
		}
	}
}

func TestFinalizeMany_Empty(t *testing.T) {
	client := New(doerFunc(func(context.Context, *api.Request) (*api.Response, error) {
		t.Error("no request expected")
		return okResponse(), nil
	}), Options{})

	result := client.FinalizeMany(t.Context(), nil, "T")
	if result.OK != 0 || result.Failed != 0 || len(result.Members) != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}

var _ api.Doer = doerFunc(nil)
