package types

import "time"

// Format selects the document structure of the consolidated export.
type Format string

const (
	// FormatStructured renders sections with requirement identifiers.
	FormatStructured Format = "structured"
	// FormatPlain renders the artifacts as running prose.
	FormatPlain Format = "plain"
)

// Output selects the encoding of the consolidated export.
type Output string

const (
	// OutputMarkdown is served by the server as text/plain.
	OutputMarkdown Output = "markdown"
	// OutputDocx is a word-processing document.
	OutputDocx Output = "docx"
	// OutputPDF is a PDF document.
	OutputPDF Output = "pdf"
)

// Polish selects the optional prose polish pass. The zero value is no polish.
type Polish string

const (
	// PolishNone disables the pass. It is never sent on the wire.
	PolishNone Polish = ""
	// PolishMarkdown is the default pass; legacy "true" maps here.
	PolishMarkdown Polish = "markdown"
	// PolishAI is the model-assisted pass.
	PolishAI Polish = "ai"
)

// IsSet reports whether a polish pass was requested.
func (p Polish) IsSet() bool {
	return p != PolishNone
}

// ExportSpec is one point of the format × output × polish matrix.
// Every combination is valid to request.
type ExportSpec struct {
	Format Format `json:"format" yaml:"format"`
	Output Output `json:"output" yaml:"output"`
	Polish Polish `json:"polish,omitempty" yaml:"polish,omitempty"`
}

// Bound is one side of a ConsolidatedFilters time range. It holds either a
// time value, serialized as an ISO-8601 UTC timestamp, or a caller-provided
// string passed through unchanged. The zero value is unbounded.
type Bound struct {
	t   time.Time
	raw string
	set bool
}

// TimeBound returns a bound from a time value.
func TimeBound(t time.Time) Bound {
	return Bound{t: t, set: true}
}

// RawBound returns a bound from a string sent verbatim.
// An empty string is unbounded.
func RawBound(s string) Bound {
	if s == "" {
		return Bound{}
	}
	return Bound{raw: s, set: true}
}

// IsSet reports whether the bound restricts the range.
func (b Bound) IsSet() bool {
	return b.set
}

// isoMillis matches the millisecond-precision form servers expect.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// String returns the wire form of the bound, or "" when unbounded.
func (b Bound) String() string {
	switch {
	case !b.set:
		return ""
	case b.raw != "":
		return b.raw
	default:
		return b.t.UTC().Format(isoMillis)
	}
}

// ConsolidatedFilters restricts which finalized artifacts feed the
// consolidated document. Absent fields are unbounded.
type ConsolidatedFilters struct {
	TopicKey string
	Since    Bound
	Until    Bound
}

// DeliveryMode names the strategy that delivered a payload.
type DeliveryMode string

const (
	// DeliveryInteractive saved the payload and returned only its name.
	DeliveryInteractive DeliveryMode = "interactive"
	// DeliveryBuffered returned the payload to the caller.
	DeliveryBuffered DeliveryMode = "buffered"
)

// DeliveryResult is what a transport mode hands back after delivering a
// payload. Interactive deliveries carry Filename and Location only; buffered
// deliveries carry Text for textual media types and Data for binary ones.
type DeliveryResult struct {
	Mode      DeliveryMode `json:"mode" yaml:"mode" msgpack:"mode"`
	Filename  string       `json:"filename" yaml:"filename" msgpack:"filename"`
	MediaType string       `json:"media_type" yaml:"media_type" msgpack:"media_type"`
	Location  string       `json:"location,omitempty" yaml:"location,omitempty" msgpack:"location,omitempty"`
	Text      string       `json:"text,omitempty" yaml:"text,omitempty" msgpack:"text,omitempty"`
	Data      []byte       `json:"-" yaml:"-" msgpack:"data,omitempty"`
}

// Bytes returns the buffered payload regardless of its text/binary form.
func (d *DeliveryResult) Bytes() []byte {
	if d.Data != nil {
		return d.Data
	}
	return []byte(d.Text)
}
