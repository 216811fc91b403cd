// Package transport delivers downloaded payloads to the caller.
//
// Two strategies exist and exactly one is chosen per process by Detect:
//   - Interactive saves the payload through a Saver and returns only the
//     filename and location; the bytes are not handed back.
//   - Buffered returns the payload: decoded UTF-8 text for text/plain,
//     raw bytes for binary documents.
//
// Both resolve the filename the same way, from Content-Disposition with the
// caller's hint as fallback. Negotiation code never branches on the mode.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pithecene-io/accord/filename"
	"github.com/pithecene-io/accord/metrics"
	"github.com/pithecene-io/accord/negotiate"
	"github.com/pithecene-io/accord/types"
)

// ErrNoSaver is returned when interactive delivery is requested without a
// save capability.
var ErrNoSaver = errors.New("interactive delivery requires a save destination")

// Payload is a downloaded response ready for delivery.
type Payload struct {
	// Body is the raw response body.
	Body []byte
	// Header is the response header; Content-Disposition names the file.
	Header http.Header
	// FilenameHint is used when the header names no file.
	FilenameHint string
	// MediaType is the negotiated media type, not the response Content-Type.
	MediaType string
}

// Mode is a delivery strategy.
type Mode interface {
	// Name identifies the strategy.
	Name() types.DeliveryMode
	// Deliver hands the payload to its destination.
	Deliver(ctx context.Context, p Payload) (*types.DeliveryResult, error)
}

// Saver persists a named file and returns where it landed. The saved name
// may differ from the requested one when the requested name is taken.
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Interactive saves payloads to disk.
type Interactive struct {
	saver   Saver
	metrics *metrics.Collector
}

// NewInteractive creates the interactive strategy. collector may be nil.
func NewInteractive(saver Saver, collector *metrics.Collector) (*Interactive, error) {
	if saver == nil {
		return nil, ErrNoSaver
	}
	return &Interactive{saver: saver, metrics: collector}, nil
}

// Name implements Mode.
func (m *Interactive) Name() types.DeliveryMode {
	return types.DeliveryInteractive
}

// Deliver saves the payload and returns its name and location only.
func (m *Interactive) Deliver(ctx context.Context, p Payload) (*types.DeliveryResult, error) {
	name := resolveName(p)

	loc, err := m.saver.Save(ctx, name, bytes.NewReader(p.Body))
	if err != nil {
		m.metrics.IncDeliveryFailure()
		return nil, fmt.Errorf("save %s: %w", name, err)
	}
	m.metrics.IncDeliverySaved()

	return &types.DeliveryResult{
		Mode:      types.DeliveryInteractive,
		Filename:  path.Base(filepath.ToSlash(loc)),
		MediaType: p.MediaType,
		Location:  loc,
	}, nil
}

// Buffered returns payloads to the caller.
type Buffered struct {
	metrics *metrics.Collector
}

// NewBuffered creates the buffered strategy. collector may be nil.
func NewBuffered(collector *metrics.Collector) *Buffered {
	return &Buffered{metrics: collector}
}

// Name implements Mode.
func (m *Buffered) Name() types.DeliveryMode {
	return types.DeliveryBuffered
}

// Deliver returns the payload as text or bytes depending on the negotiated
// media type.
func (m *Buffered) Deliver(_ context.Context, p Payload) (*types.DeliveryResult, error) {
	result := &types.DeliveryResult{
		Mode:      types.DeliveryBuffered,
		Filename:  resolveName(p),
		MediaType: p.MediaType,
	}

	if negotiate.IsText(p.MediaType) {
		result.Text = strings.ToValidUTF8(string(p.Body), "\uFFFD")
	} else {
		result.Data = append([]byte{}, p.Body...)
	}

	m.metrics.IncDeliveryBuffered()
	return result, nil
}

func resolveName(p Payload) string {
	var disposition string
	if p.Header != nil {
		disposition = p.Header.Get("Content-Disposition")
	}
	return filename.Resolve(disposition, p.FilenameHint)
}

// Mode names accepted by Detect.
const (
	ModeAuto        = "auto"
	ModeInteractive = "interactive"
	ModeBuffered    = "buffered"
)

// DetectConfig describes the execution environment.
type DetectConfig struct {
	// Mode is auto, interactive or buffered. Empty means auto.
	Mode string
	// Saver is the save capability, nil when none is configured.
	Saver Saver
	// IsTerminal reports whether a user is attached. Defaults to checking
	// whether stdout is a character device.
	IsTerminal func() bool
	// Metrics is shared by the chosen strategy. May be nil.
	Metrics *metrics.Collector
}

// Detect chooses the process's delivery strategy. In auto mode the
// interactive strategy is used only when a save destination exists and a
// user is at the terminal.
func Detect(cfg DetectConfig) (Mode, error) {
	switch strings.ToLower(cfg.Mode) {
	case ModeInteractive:
		return NewInteractive(cfg.Saver, cfg.Metrics)
	case ModeBuffered:
		return NewBuffered(cfg.Metrics), nil
	case ModeAuto, "":
		isTerminal := cfg.IsTerminal
		if isTerminal == nil {
			isTerminal = stdoutIsTerminal
		}
		if cfg.Saver != nil && isTerminal() {
			return NewInteractive(cfg.Saver, cfg.Metrics)
		}
		return NewBuffered(cfg.Metrics), nil
	default:
		return nil, fmt.Errorf("invalid delivery mode %q (must be auto, interactive, or buffered)", cfg.Mode)
	}
}

func stdoutIsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// Verify strategies implement Mode.
var (
	_ Mode = (*Interactive)(nil)
	_ Mode = (*Buffered)(nil)
)
