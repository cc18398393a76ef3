package protocol

// Encoder appends binary values to an internal buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with a default initial capacity.
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0, 256),
	}
}

// Reset empties the encoder, reusing the underlying buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the encoded bytes. The returned slice is valid until
// the next call to Reset or any Write method.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes currently encoded.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// WriteByte appends a single byte.
// The buffer is unbounded, so unlike io.ByteWriter there is no error.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteBytes appends raw bytes.
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteUvarint appends an unsigned varint.
func (e *Encoder) WriteUvarint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// WriteString appends a varint length followed by the string bytes.
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteBool appends 0x01 or 0x00.
func (e *Encoder) WriteBool(b bool) {
	if b {
		e.buf = append(e.buf, 0x01)
	} else {
		e.buf = append(e.buf, 0x00)
	}
}

// WriteUint16 appends a uint16 in big-endian byte order.
func (e *Encoder) WriteUint16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

// UvarintLen returns the number of bytes needed to encode v as a varint.
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		n++
		v >>= 7
	}
	return n
}
