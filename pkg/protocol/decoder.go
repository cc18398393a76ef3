package protocol

import (
	"errors"
	"io"
)

// Common decoding errors.
var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
	ErrTrailingBytes      = errors.New("protocol: trailing bytes after payload")
)

// Decoder reads binary values from a byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF reports whether all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	var v uint64
	var shift uint

	for {
		if d.pos >= len(d.buf) {
			return 0, io.ErrUnexpectedEOF
		}
		b := d.buf[d.pos]
		d.pos++
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, ErrVarintOverflow
		}
	}
}

// ReadString reads a length-prefixed string. Strings longer than
// MaxStringLength fail with ErrAllocationTooLarge.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > uint64(d.Remaining()) {
		return "", io.ErrUnexpectedEOF
	}
	if length > MaxStringLength {
		return "", ErrAllocationTooLarge
	}
	n := int(length)
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

// ReadBool reads one byte; any non-zero value is true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0x00, nil
}

// ReadUint16 reads a uint16 in big-endian byte order.
func (d *Decoder) ReadUint16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(d.buf[d.pos])<<8 | uint16(d.buf[d.pos+1])
	d.pos += 2
	return v, nil
}

// ReadCount reads a varint collection count and validates it against max
// and the remaining input, assuming each item takes at least one byte.
func (d *Decoder) ReadCount(max int) (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > uint64(max) {
		return 0, ErrCollectionTooLarge
	}
	if count > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}

// finish returns ErrTrailingBytes when input is left over.
func (d *Decoder) finish() error {
	if !d.EOF() {
		return ErrTrailingBytes
	}
	return nil
}
