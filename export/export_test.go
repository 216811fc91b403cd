package export

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/pithecene-io/accord/api"
	"github.com/pithecene-io/accord/metrics"
	"github.com/pithecene-io/accord/negotiate"
	"github.com/pithecene-io/accord/transport"
	"github.com/pithecene-io/accord/types"
)

// captured is the request shape seen by the test server.
type captured struct {
	path   string
	query  url.Values
	accept string
}

type fixture struct {
	exporter  *Exporter
	collector *metrics.Collector

	mu       sync.Mutex
	requests []captured
}

func newFixture(t *testing.T, mode transport.Mode, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{collector: metrics.NewCollector("buffered")}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, captured{
			path:   r.URL.Path,
			query:  r.URL.Query(),
			accept: r.Header.Get("Accept"),
		})
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	doer, err := api.New(api.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("api.New failed: %v", err)
	}
	f.exporter = New(doer, Options{Mode: mode, Metrics: f.collector})
	return f
}

func markdownHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("# Consolidated\n"))
}

func TestPreview_AlwaysMarkdown(t *testing.T) {
	for _, target := range []types.Output{types.OutputMarkdown, types.OutputDocx, types.OutputPDF, "word"} {
		t.Run(string(target), func(t *testing.T) {
			f := newFixture(t, nil, markdownHandler)

			p, err := f.exporter.Preview(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{
				Format: types.FormatStructured,
				Output: target,
			})
			if err != nil {
				t.Fatalf("Preview failed: %v", err)
			}

			req := f.requests[0]
			if req.path != consolidatedPath {
				t.Errorf("path = %s", req.path)
			}
			if req.accept != negotiate.MediaTypeText {
				t.Errorf("Accept = %q, want text/plain", req.accept)
			}
			if got := req.query.Get("output"); got != "markdown" {
				t.Errorf("output = %q, want markdown", got)
			}
			if got := req.query.Get("download"); got != "false" {
				t.Errorf("download = %q, want false", got)
			}
			if p.Text != "# Consolidated\n" {
				t.Errorf("Text = %q", p.Text)
			}

			wantNotice := target != types.OutputMarkdown
			if (p.Notice != "") != wantNotice {
				t.Errorf("Notice = %q, want notice: %v", p.Notice, wantNotice)
			}
		})
	}
}

func TestPreview_NeverSaves(t *testing.T) {
	saver := transport.NewStubSaver()
	mode, err := transport.NewInteractive(saver, nil)
	if err != nil {
		t.Fatalf("NewInteractive failed: %v", err)
	}
	f := newFixture(t, mode, markdownHandler)

	if _, err := f.exporter.Preview(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{Output: types.OutputPDF}); err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if len(saver.Saved()) != 0 {
		t.Error("preview must not save")
	}
}

func TestPreview_PolishForwarded(t *testing.T) {
	f := newFixture(t, nil, markdownHandler)

	if _, err := f.exporter.Preview(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{Polish: "true"}); err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if got := f.requests[0].query.Get("polish"); got != "markdown" {
		t.Errorf("polish = %q, want markdown", got)
	}
}

func TestExportThenPreview_SameFilters(t *testing.T) {
	f := newFixture(t, nil, markdownHandler)
	filters := types.ConsolidatedFilters{TopicKey: "X"}

	if _, err := f.exporter.Export(t.Context(), filters, types.ExportSpec{Format: types.FormatStructured, Output: types.OutputMarkdown}, nil); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := f.exporter.Preview(t.Context(), filters, types.ExportSpec{}); err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	if len(f.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(f.requests))
	}
	for i, req := range f.requests {
		if got := req.query.Get("topicKey"); got != "X" {
			t.Errorf("request %d topicKey = %q, want X", i, got)
		}
		if req.query.Has("since") || req.query.Has("until") {
			t.Errorf("request %d carries unset bounds: %v", i, req.query)
		}
	}
}

func TestExport_Filters(t *testing.T) {
	f := newFixture(t, nil, markdownHandler)
	since := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	filters := types.ConsolidatedFilters{
		TopicKey: "billing",
		Since:    types.TimeBound(since),
		Until:    types.RawBound("2026-04-01"),
	}
	if _, err := f.exporter.Export(t.Context(), filters, types.ExportSpec{}, nil); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	q := f.requests[0].query
	if got := q.Get("since"); got != "2026-03-01T08:30:00.000Z" {
		t.Errorf("since = %q", got)
	}
	if got := q.Get("until"); got != "2026-04-01" {
		t.Errorf("until = %q", got)
	}
	if got := q.Get("topicKey"); got != "billing" {
		t.Errorf("topicKey = %q", got)
	}
}

func TestExport_DownloadDefault(t *testing.T) {
	no := false
	tests := []struct {
		name     string
		download *bool
		want     string
	}{
		{"unset defaults to attachment", nil, "true"},
		{"explicit false", &no, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, markdownHandler)
			if _, err := f.exporter.Export(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{}, tt.download); err != nil {
				t.Fatalf("Export failed: %v", err)
			}
			if got := f.requests[0].query.Get("download"); got != tt.want {
				t.Errorf("download = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExport_Binary(t *testing.T) {
	pdf := []byte("%PDF-1.7\x00\x01")
	f := newFixture(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''Spec.pdf")
		_, _ = w.Write(pdf)
	})

	res, err := f.exporter.Export(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{Format: types.FormatPlain, Output: types.OutputPDF, Polish: types.PolishAI}, nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	req := f.requests[0]
	if req.accept != negotiate.MediaTypePDF {
		t.Errorf("Accept = %q", req.accept)
	}
	if req.query.Get("format") != "plain" || req.query.Get("polish") != "ai" {
		t.Errorf("query = %v", req.query)
	}
	if res.Filename != "Spec.pdf" || string(res.Data) != string(pdf) || res.Text != "" {
		t.Errorf("unexpected result: %+v", res)
	}
	if f.collector.Snapshot().Exports != 1 {
		t.Error("expected Exports = 1")
	}
}

func TestExport_FallbackFilename(t *testing.T) {
	f := newFixture(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", "attachment; filename*=bogus")
		_, _ = w.Write([]byte("PK\x03\x04"))
	})

	res, err := f.exporter.Export(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{Output: "word-document"}, nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.Filename != "SRS.docx" {
		t.Errorf("Filename = %q, want SRS.docx", res.Filename)
	}
	if f.requests[0].query.Get("output") != "docx" {
		t.Errorf("output = %q", f.requests[0].query.Get("output"))
	}
}

func TestExport_Interactive(t *testing.T) {
	saver := transport.NewStubSaver()
	mode, err := transport.NewInteractive(saver, nil)
	if err != nil {
		t.Fatalf("NewInteractive failed: %v", err)
	}
	f := newFixture(t, mode, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="report final.docx"`)
		_, _ = w.Write([]byte("PK"))
	})

	res, err := f.exporter.Export(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{Output: types.OutputDocx}, nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if res.Filename != "report final.docx" || res.Data != nil {
		t.Errorf("unexpected result: %+v", res)
	}
	if saved := saver.Saved(); len(saved) != 1 || saved[0].Name != "report final.docx" {
		t.Errorf("unexpected saves: %+v", saved)
	}
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]string
	}{
		{
			name: "server message verbatim",
			body: `{"message":"No finalized proposals match the filters"}`,
			want: map[string]string{
				"preview": "No finalized proposals match the filters",
				"export":  "No finalized proposals match the filters",
				"legacy":  "No finalized proposals match the filters",
			},
		},
		{
			name: "generic fallback",
			body: ``,
			want: map[string]string{
				"preview": msgPreviewFailed,
				"export":  msgExportFailed,
				"legacy":  msgExportFailed,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(tt.body))
			})

			_, previewErr := f.exporter.Preview(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{})
			_, exportErr := f.exporter.Export(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{}, nil)
			_, legacyErr := f.exporter.ExportLegacy(t.Context())

			for op, err := range map[string]error{"preview": previewErr, "export": exportErr, "legacy": legacyErr} {
				var failure *api.Failure
				if !errors.As(err, &failure) {
					t.Errorf("%s: expected *api.Failure, got %v", op, err)
					continue
				}
				if failure.Error() != tt.want[op] {
					t.Errorf("%s: message = %q, want %q", op, failure.Error(), tt.want[op])
				}
				if failure.Status != http.StatusUnprocessableEntity {
					t.Errorf("%s: status = %d", op, failure.Status)
				}
			}

			snap := f.collector.Snapshot()
			if snap.PreviewFailures != 1 || snap.ExportFailures != 2 {
				t.Errorf("unexpected snapshot: %+v", snap)
			}
		})
	}
}

func TestExportLegacy(t *testing.T) {
	f := newFixture(t, nil, markdownHandler)

	res, err := f.exporter.ExportLegacy(t.Context())
	if err != nil {
		t.Fatalf("ExportLegacy failed: %v", err)
	}
	req := f.requests[0]
	if req.path != legacyPath || len(req.query) != 0 || req.accept != negotiate.MediaTypeText {
		t.Errorf("unexpected request: %+v", req)
	}
	if res.Filename != "SRS.md" || res.Text != "# Consolidated\n" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestInvalidSpec(t *testing.T) {
	f := newFixture(t, nil, markdownHandler)

	_, err := f.exporter.Export(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{Output: "epub"}, nil)
	if !errors.Is(err, negotiate.ErrUnknownOutput) {
		t.Errorf("expected ErrUnknownOutput, got %v", err)
	}
	_, err = f.exporter.Preview(t.Context(), types.ConsolidatedFilters{}, types.ExportSpec{Format: "fancy"})
	if !errors.Is(err, negotiate.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if len(f.requests) != 0 {
		t.Errorf("invalid specs must not reach the server, got %d requests", len(f.requests))
	}
}
