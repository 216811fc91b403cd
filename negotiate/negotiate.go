// Package negotiate maps an export request onto the consolidated endpoint's
// query parameters, Accept media type and default filename.
//
// Wire contract:
//   - format and output are always sent
//   - polish is sent only when a pass was requested; "no polish" is omission,
//     never an explicit value
//   - download is sent only when the caller stated a preference
//   - markdown is requested and served as text/plain, not a markdown type
package negotiate

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pithecene-io/accord/types"
)

// Media types for each output.
const (
	MediaTypeText = "text/plain"
	MediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypePDF  = "application/pdf"
)

// Sentinel errors for unknown matrix values.
var (
	ErrUnknownFormat = errors.New("unknown format")
	ErrUnknownOutput = errors.New("unknown output")
	ErrUnknownPolish = errors.New("unknown polish mode")
)

// Negotiation is the request shape for one point of the export matrix.
type Negotiation struct {
	// Params carries format, output, and optionally polish and download.
	Params url.Values
	// Accept is the media type sent as the Accept header and expected back.
	Accept string
	// DefaultFilename is used when the response names no file.
	DefaultFilename string
}

// Negotiate builds the request shape for spec. download is nil when the
// caller has no preference. Unknown matrix values are errors; a zero Format
// or Output takes the structured/markdown default.
func Negotiate(spec types.ExportSpec, download *bool) (Negotiation, error) {
	format := spec.Format
	if format == "" {
		format = types.FormatStructured
	}
	format, err := ParseFormat(string(format))
	if err != nil {
		return Negotiation{}, err
	}

	output := spec.Output
	if output == "" {
		output = types.OutputMarkdown
	}
	output, err = ParseOutput(string(output))
	if err != nil {
		return Negotiation{}, err
	}

	polish, err := PolishFrom(spec.Polish).Normalize()
	if err != nil {
		return Negotiation{}, err
	}

	params := url.Values{}
	params.Set("format", string(format))
	params.Set("output", string(output))
	if polish.IsSet() {
		params.Set("polish", string(polish))
	}
	if download != nil {
		params.Set("download", strconv.FormatBool(*download))
	}

	return Negotiation{
		Params:          params,
		Accept:          MediaType(output),
		DefaultFilename: DefaultFilename(output),
	}, nil
}

// MediaType returns the Accept/response media type for output.
func MediaType(output types.Output) string {
	switch output {
	case types.OutputDocx:
		return MediaTypeDocx
	case types.OutputPDF:
		return MediaTypePDF
	default:
		return MediaTypeText
	}
}

// IsText reports whether a media type is delivered as decoded text.
// Only the three negotiated media types are recognized; parameters such as
// charset are ignored.
func IsText(mediaType string) bool {
	base, _, _ := strings.Cut(mediaType, ";")
	return strings.EqualFold(strings.TrimSpace(base), MediaTypeText)
}

// DefaultFilename returns the fallback filename for output.
func DefaultFilename(output types.Output) string {
	switch output {
	case types.OutputDocx:
		return "SRS.docx"
	case types.OutputPDF:
		return "SRS.pdf"
	default:
		return "SRS.md"
	}
}

// ParseFormat parses a document format name.
func ParseFormat(s string) (types.Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured":
		return types.FormatStructured, nil
	case "plain":
		return types.FormatPlain, nil
	default:
		return "", fmt.Errorf("%w: %q (must be structured or plain)", ErrUnknownFormat, s)
	}
}

// ParseOutput parses an output encoding name, accepting common aliases.
func ParseOutput(s string) (types.Output, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return types.OutputMarkdown, nil
	case "docx", "word", "word-document":
		return types.OutputDocx, nil
	case "pdf":
		return types.OutputPDF, nil
	default:
		return "", fmt.Errorf("%w: %q (must be markdown, docx, or pdf)", ErrUnknownOutput, s)
	}
}
