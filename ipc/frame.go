// Package ipc writes and reads the length-prefixed msgpack frames the CLI
// emits for a supervising process (`--emit frame`).
//
// Each frame is a 4-byte big-endian payload length followed by a msgpack
// map whose "type" field discriminates the frame:
//   - "delivery": one chunk of a buffered delivery; a delivery is one or
//     more frames with increasing seq, the last marked is_last
//   - "batch_result": the settled result of a batch finalize
//
// The CLI only writes frames. FrameDecoder is the consumer side of the same
// contract, for Go supervisors that read accord's output; the CLI tests
// decode through it.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/accord/types"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// MaxChunkSize is the maximum delivery chunk size (8 MiB raw bytes).
	MaxChunkSize = 8 * 1024 * 1024
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Frame type discriminants.
const (
	DeliveryType    = "delivery"
	BatchResultType = "batch_result"
)

// DeliveryFrame is one chunk of a delivered document.
type DeliveryFrame struct {
	Type      string             `msgpack:"type"`
	Mode      types.DeliveryMode `msgpack:"mode"`
	Filename  string             `msgpack:"filename"`
	MediaType string             `msgpack:"media_type"`
	Location  string             `msgpack:"location,omitempty"`
	Seq       int                `msgpack:"seq"`
	IsLast    bool               `msgpack:"is_last"`
	Data      []byte             `msgpack:"data"`
}

// BatchMemberFrame is one member of a BatchResultFrame.
type BatchMemberFrame struct {
	Index      int    `msgpack:"index"`
	ProposalID string `msgpack:"proposal_id"`
	Token      string `msgpack:"token"`
	OK         bool   `msgpack:"ok"`
	Message    string `msgpack:"message"`
}

// BatchResultFrame reports a settled batch.
type BatchResultFrame struct {
	Type      string             `msgpack:"type"`
	BaseToken string             `msgpack:"base_token"`
	OK        int                `msgpack:"ok"`
	Failed    int                `msgpack:"failed"`
	Members   []BatchMemberFrame `msgpack:"members"`
}

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
	// FrameErrorSequence indicates delivery chunks out of order.
	FrameErrorSequence
)

// FrameError represents a frame error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the stream cannot be read further.
// Partial and oversized frames are fatal.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// WriteFrame msgpack-encodes v and writes it as one frame.
func WriteFrame(w io.Writer, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// WriteDelivery writes a delivery as one or more chunk frames of at most
// MaxChunkSize bytes each. An empty delivery is a single empty last frame.
func WriteDelivery(w io.Writer, d *types.DeliveryResult) error {
	data := d.Bytes()
	seq := 0
	for {
		n := min(len(data), MaxChunkSize)
		frame := DeliveryFrame{
			Type:      DeliveryType,
			Mode:      d.Mode,
			Filename:  d.Filename,
			MediaType: d.MediaType,
			Location:  d.Location,
			Seq:       seq,
			IsLast:    n == len(data),
			Data:      data[:n],
		}
		if err := WriteFrame(w, &frame); err != nil {
			return err
		}
		if frame.IsLast {
			return nil
		}
		data = data[n:]
		seq++
	}
}

// WriteBatchResult writes a batch result frame.
func WriteBatchResult(w io.Writer, r types.BatchResult) error {
	frame := BatchResultFrame{
		Type:      BatchResultType,
		BaseToken: string(r.BaseToken),
		OK:        r.OK,
		Failed:    r.Failed,
		Members:   make([]BatchMemberFrame, 0, len(r.Members)),
	}
	for _, m := range r.Members {
		frame.Members = append(frame.Members, BatchMemberFrame{
			Index:      m.Index,
			ProposalID: m.ProposalID,
			Token:      string(m.Token),
			OK:         m.OK(),
			Message:    m.Message(),
		})
	}
	return WriteFrame(w, &frame)
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame and returns its msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// frameTypeProbe is used to peek at the type field without full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// DecodeFrame decodes a payload into a *DeliveryFrame or *BatchResultFrame
// according to its type field.
func DecodeFrame(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, decodeError("failed to decode frame type", err)
	}

	switch probe.Type {
	case DeliveryType:
		var frame DeliveryFrame
		if err := msgpack.Unmarshal(payload, &frame); err != nil {
			return nil, decodeError("failed to decode delivery frame", err)
		}
		return &frame, nil
	case BatchResultType:
		var frame BatchResultFrame
		if err := msgpack.Unmarshal(payload, &frame); err != nil {
			return nil, decodeError("failed to decode batch result frame", err)
		}
		return &frame, nil
	default:
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unknown frame type %q", probe.Type),
		}
	}
}

// ReadDelivery reads delivery chunk frames until the last one and
// reassembles the delivery. Binary media types come back in Data, text in
// Text.
func (d *FrameDecoder) ReadDelivery(isText func(mediaType string) bool) (*types.DeliveryResult, error) {
	var (
		result *types.DeliveryResult
		data   []byte
	)
	for seq := 0; ; seq++ {
		payload, err := d.ReadFrame()
		if err != nil {
			if err == io.EOF && result != nil {
				return nil, &FrameError{Kind: FrameErrorPartial, Msg: "delivery ended before last chunk"}
			}
			return nil, err
		}

		decoded, err := DecodeFrame(payload)
		if err != nil {
			return nil, err
		}
		frame, ok := decoded.(*DeliveryFrame)
		if !ok {
			return nil, &FrameError{Kind: FrameErrorSequence, Msg: "expected delivery frame"}
		}
		if frame.Seq != seq {
			return nil, &FrameError{
				Kind: FrameErrorSequence,
				Msg:  fmt.Sprintf("delivery chunk seq %d, want %d", frame.Seq, seq),
			}
		}

		if result == nil {
			result = &types.DeliveryResult{
				Mode:      frame.Mode,
				Filename:  frame.Filename,
				MediaType: frame.MediaType,
				Location:  frame.Location,
			}
		}
		data = append(data, frame.Data...)

		if frame.IsLast {
			break
		}
	}

	if isText != nil && isText(result.MediaType) {
		result.Text = string(data)
	} else if len(data) > 0 {
		result.Data = data
	}
	return result, nil
}

func decodeError(msg string, err error) *FrameError {
	return &FrameError{Kind: FrameErrorDecode, Msg: msg, Err: err}
}
