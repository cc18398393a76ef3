package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the maximum payload size (2^16 - 1 bytes).
	MaxPayloadSize = 65535
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameSnapshot  FrameType = 0x00 // Server → Viewer tree rebuild
	FrameEvent     FrameType = 0x01 // Viewer → Server events
	FrameMutations FrameType = 0x02 // Server → Viewer mutations
	FrameError     FrameType = 0x05 // Error message
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameSnapshot:
		return "Snapshot"
	case FrameEvent:
		return "Event"
	case FrameMutations:
		return "Mutations"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Valid reports whether ft is a known frame type.
func (ft FrameType) Valid() bool {
	switch ft {
	case FrameSnapshot, FrameEvent, FrameMutations, FrameError:
		return true
	}
	return false
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	FlagFinal FrameFlags = 0x04 // Last frame of a batch
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame represents a protocol frame with header and payload.
//
// Wire format (4 bytes header + variable payload):
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//	│  Payload (variable length)                                  │
//	└─────────────────────────────────────────────────────────────┘
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	e := NewEncoder()
	f.EncodeTo(e)
	return e.Bytes()
}

// EncodeTo encodes the frame using the provided encoder.
func (f *Frame) EncodeTo(e *Encoder) {
	e.WriteByte(byte(f.Type))
	e.WriteByte(byte(f.Flags))
	e.WriteUint16(uint16(len(f.Payload)))
	e.WriteBytes(f.Payload)
}

// DecodeFrame decodes one frame from data. data must hold the header and
// the full payload; anything after the payload is ignored.
func DecodeFrame(data []byte) (*Frame, error) {
	ft, flags, length, err := DecodeFrameHeader(data)
	if err != nil {
		return nil, err
	}
	if !ft.Valid() {
		return nil, ErrInvalidFrameType
	}
	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}

	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:FrameHeaderSize+length])

	return &Frame{
		Type:    ft,
		Flags:   flags,
		Payload: payload,
	}, nil
}

// DecodeFrameHeader decodes just the frame header, returning type, flags, and payload length.
func DecodeFrameHeader(data []byte) (FrameType, FrameFlags, int, error) {
	if len(data) < FrameHeaderSize {
		return 0, 0, 0, io.ErrUnexpectedEOF
	}

	ft := FrameType(data[0])
	flags := FrameFlags(data[1])
	length := int(data[2])<<8 | int(data[3])

	return ft, flags, length, nil
}

// ReadFrame reads a complete frame from an io.Reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	ft, flags, length, _ := DecodeFrameHeader(header)
	if !ft.Valid() {
		return nil, ErrInvalidFrameType
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	return &Frame{
		Type:    ft,
		Flags:   flags,
		Payload: payload,
	}, nil
}

// WriteFrame writes a complete frame to an io.Writer.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// NewFrame creates a final frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{
		Type:    ft,
		Flags:   FlagFinal,
		Payload: payload,
	}
}
