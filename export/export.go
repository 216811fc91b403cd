// Package export previews and exports the consolidated document.
//
// Preview and Export share one negotiation path: an ExportSpec is turned
// into query parameters and an Accept header by the negotiate package, and
// the filters are added on top. Preview always asks for the markdown
// rendering and never saves; Export delivers through the process's
// transport mode.
package export

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pithecene-io/accord/api"
	"github.com/pithecene-io/accord/log"
	"github.com/pithecene-io/accord/metrics"
	"github.com/pithecene-io/accord/negotiate"
	"github.com/pithecene-io/accord/transport"
	"github.com/pithecene-io/accord/types"
)

// Service paths.
const (
	consolidatedPath = "/finalize/consolidated"
	legacyPath       = "/finalize/consolidated-legacy"
)

// Fallback messages for failures without a server-authored message.
const (
	msgPreviewFailed = "failed to preview consolidated document"
	msgExportFailed  = "failed to export consolidated document"
)

// Options configures an Exporter. Every field is optional.
type Options struct {
	// Mode delivers exports. Defaults to buffered.
	Mode transport.Mode
	// Logger defaults to a no-op logger.
	Logger *log.Logger
	// Metrics may be nil.
	Metrics *metrics.Collector
}

// Exporter fetches the consolidated document.
type Exporter struct {
	doer    api.Doer
	mode    transport.Mode
	logger  *log.Logger
	metrics *metrics.Collector
}

// New creates an exporter sending through doer.
func New(doer api.Doer, opts Options) *Exporter {
	e := &Exporter{
		doer:    doer,
		mode:    opts.Mode,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if e.mode == nil {
		e.mode = transport.NewBuffered(opts.Metrics)
	}
	if e.logger == nil {
		e.logger = log.NewNop()
	}
	return e
}

// Preview is the markdown rendering of the consolidated document.
type Preview struct {
	// Text is the markdown body.
	Text string `json:"text" yaml:"text"`
	// Target is the output the caller intends to export.
	Target types.Output `json:"target" yaml:"target"`
	// Notice is set when Target is not markdown: the preview then reflects
	// only the markdown rendering.
	Notice string `json:"notice,omitempty" yaml:"notice,omitempty"`
}

// Preview fetches the markdown rendering for filters. spec.Output is the
// caller's eventual target; the request always asks for markdown as text
// and never for an attachment.
func (e *Exporter) Preview(ctx context.Context, filters types.ConsolidatedFilters, spec types.ExportSpec) (*Preview, error) {
	target := types.OutputMarkdown
	if spec.Output != "" {
		parsed, err := negotiate.ParseOutput(string(spec.Output))
		if err != nil {
			return nil, err
		}
		target = parsed
	}

	spec.Output = types.OutputMarkdown
	inline := false
	neg, err := negotiate.Negotiate(spec, &inline)
	if err != nil {
		return nil, err
	}

	resp, err := e.send(ctx, consolidatedPath, withFilters(neg.Params, filters), neg.Accept)
	if err != nil {
		e.metrics.IncPreviewFailures()
		failure := api.NewFailure("preview", msgPreviewFailed, err)
		e.logFailure("preview", failure)
		return nil, failure
	}
	e.metrics.IncPreviews()

	p := &Preview{
		Text:   strings.ToValidUTF8(string(resp.Body), "\uFFFD"),
		Target: target,
	}
	if target != types.OutputMarkdown {
		p.Notice = PreviewNotice(target)
	}
	return p, nil
}

// PreviewNotice is the text shown when previewing for a non-markdown target.
func PreviewNotice(target types.Output) string {
	return fmt.Sprintf("Preview shows the markdown rendering only; the %s export may differ in layout.", target)
}

// Export fetches the consolidated document for spec and delivers it.
// download nil requests an attachment disposition.
func (e *Exporter) Export(ctx context.Context, filters types.ConsolidatedFilters, spec types.ExportSpec, download *bool) (*types.DeliveryResult, error) {
	if download == nil {
		attach := true
		download = &attach
	}

	neg, err := negotiate.Negotiate(spec, download)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("export request", map[string]any{
		"format":    neg.Params.Get("format"),
		"output":    neg.Params.Get("output"),
		"polish":    neg.Params.Get("polish"),
		"topic_key": filters.TopicKey,
	})

	resp, err := e.send(ctx, consolidatedPath, withFilters(neg.Params, filters), neg.Accept)
	if err != nil {
		e.metrics.IncExportFailures()
		failure := api.NewFailure("export", msgExportFailed, err)
		e.logFailure("export", failure)
		return nil, failure
	}

	return e.deliver(ctx, transport.Payload{
		Body:         resp.Body,
		Header:       resp.Header,
		FilenameHint: neg.DefaultFilename,
		MediaType:    neg.Accept,
	})
}

// ExportLegacy fetches the legacy consolidated document, always plain
// text, and delivers it.
func (e *Exporter) ExportLegacy(ctx context.Context) (*types.DeliveryResult, error) {
	resp, err := e.send(ctx, legacyPath, nil, negotiate.MediaTypeText)
	if err != nil {
		e.metrics.IncExportFailures()
		failure := api.NewFailure("export_legacy", msgExportFailed, err)
		e.logFailure("export_legacy", failure)
		return nil, failure
	}

	return e.deliver(ctx, transport.Payload{
		Body:         resp.Body,
		Header:       resp.Header,
		FilenameHint: negotiate.DefaultFilename(types.OutputMarkdown),
		MediaType:    negotiate.MediaTypeText,
	})
}

func (e *Exporter) send(ctx context.Context, path string, query url.Values, accept string) (*api.Response, error) {
	header := http.Header{}
	header.Set("Accept", accept)

	resp, err := e.doer.Send(ctx, &api.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
		Header: header,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (e *Exporter) deliver(ctx context.Context, p transport.Payload) (*types.DeliveryResult, error) {
	result, err := e.mode.Deliver(ctx, p)
	if err != nil {
		e.metrics.IncExportFailures()
		e.logger.Error("export delivery failed", map[string]any{
			"mode":  string(e.mode.Name()),
			"error": err.Error(),
		})
		return nil, err
	}

	e.metrics.IncExports()
	e.logger.Info("export delivered", map[string]any{
		"filename":   result.Filename,
		"media_type": result.MediaType,
		"mode":       string(result.Mode),
	})
	return result, nil
}

func (e *Exporter) logFailure(op string, failure *api.Failure) {
	fields := map[string]any{
		"op":              op,
		"status":          failure.Status,
		"server_authored": failure.ServerAuthored,
	}
	if failure.Err != nil {
		fields["error"] = failure.Err.Error()
	}
	e.logger.Error("consolidated request failed", fields)
}

// withFilters returns params plus the filter query parameters. Unset
// filters are omitted.
func withFilters(params url.Values, filters types.ConsolidatedFilters) url.Values {
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	if filters.TopicKey != "" {
		q.Set("topicKey", filters.TopicKey)
	}
	if filters.Since.IsSet() {
		q.Set("since", filters.Since.String())
	}
	if filters.Until.IsSet() {
		q.Set("until", filters.Until.String())
	}
	return q
}
