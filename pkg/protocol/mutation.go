package protocol

import (
	"errors"
	"fmt"
)

// MutationOp is the type of a host tree mutation.
type MutationOp uint8

const (
	MutCreateElement MutationOp = 0x01 // Node, Value = tag
	MutCreateText    MutationOp = 0x02 // Node, Value = text
	MutSetText       MutationOp = 0x03 // Node, Value
	MutInsert        MutationOp = 0x04 // Node, Parent, Anchor (0 appends)
	MutRemove        MutationOp = 0x05 // Node, Parent
	MutSetAttr       MutationOp = 0x06 // Node, Name, Value
	MutRemoveAttr    MutationOp = 0x07 // Node, Name
	MutSetStyle      MutationOp = 0x08 // Node, Name, Value
	MutRemoveStyle   MutationOp = 0x09 // Node, Name
	MutAddClass      MutationOp = 0x0A // Node, Name
	MutRemoveClass   MutationOp = 0x0B // Node, Name
	MutSetProperty   MutationOp = 0x0C // Node, Name, Value
)

// String returns the string representation of the mutation op.
func (op MutationOp) String() string {
	switch op {
	case MutCreateElement:
		return "CreateElement"
	case MutCreateText:
		return "CreateText"
	case MutSetText:
		return "SetText"
	case MutInsert:
		return "Insert"
	case MutRemove:
		return "Remove"
	case MutSetAttr:
		return "SetAttr"
	case MutRemoveAttr:
		return "RemoveAttr"
	case MutSetStyle:
		return "SetStyle"
	case MutRemoveStyle:
		return "RemoveStyle"
	case MutAddClass:
		return "AddClass"
	case MutRemoveClass:
		return "RemoveClass"
	case MutSetProperty:
		return "SetProperty"
	default:
		return "Unknown"
	}
}

// ErrInvalidMutation is returned when decoding an unknown mutation op.
var ErrInvalidMutation = errors.New("protocol: invalid mutation op")

// Mutation is one change to the host tree. Nodes are identified by the IDs
// the host assigned them; 0 means no node.
type Mutation struct {
	Op     MutationOp
	Node   uint64
	Parent uint64
	Anchor uint64
	Name   string
	Value  string
}

// String renders the mutation for logs and test failures.
func (m Mutation) String() string {
	switch m.Op {
	case MutInsert:
		return fmt.Sprintf("%s(%d into %d before %d)", m.Op, m.Node, m.Parent, m.Anchor)
	case MutRemove:
		return fmt.Sprintf("%s(%d from %d)", m.Op, m.Node, m.Parent)
	case MutCreateElement, MutCreateText, MutSetText:
		return fmt.Sprintf("%s(%d %q)", m.Op, m.Node, m.Value)
	default:
		return fmt.Sprintf("%s(%d %s=%q)", m.Op, m.Node, m.Name, m.Value)
	}
}

// Batch is a sequence of mutations applied together. For snapshot batches
// Root is the node the rebuilt tree hangs from.
type Batch struct {
	Seq       uint64
	Root      uint64
	Mutations []Mutation
}

// batchOverhead is the most the batch header can take: seq, root, count.
const batchOverhead = 3 * 10

// EncodeBatch encodes b as a single payload, ignoring frame limits.
func EncodeBatch(b *Batch) []byte {
	e := NewEncoder()
	e.WriteUvarint(b.Seq)
	e.WriteUvarint(b.Root)
	e.WriteUvarint(uint64(len(b.Mutations)))
	for i := range b.Mutations {
		encodeMutation(e, &b.Mutations[i])
	}
	return e.Bytes()
}

// EncodeBatchFrames splits b into frames of type ft that each fit
// MaxPayloadSize. Every frame carries b's Seq and Root; only the last has
// FlagFinal. An empty batch yields one empty final frame.
func EncodeBatchFrames(ft FrameType, b *Batch) ([]*Frame, error) {
	var frames []*Frame
	body := NewEncoder()
	one := NewEncoder()
	count := 0

	emit := func(flags FrameFlags) {
		e := NewEncoder()
		e.WriteUvarint(b.Seq)
		e.WriteUvarint(b.Root)
		e.WriteUvarint(uint64(count))
		e.WriteBytes(body.Bytes())
		frames = append(frames, &Frame{Type: ft, Flags: flags, Payload: e.Bytes()})
		body.Reset()
		count = 0
	}

	for i := range b.Mutations {
		one.Reset()
		encodeMutation(one, &b.Mutations[i])
		if one.Len()+batchOverhead > MaxPayloadSize {
			return nil, fmt.Errorf("%w: mutation %s", ErrFrameTooLarge, b.Mutations[i].Op)
		}
		if body.Len()+one.Len()+batchOverhead > MaxPayloadSize {
			emit(0)
		}
		body.WriteBytes(one.Bytes())
		count++
	}
	emit(FlagFinal)
	return frames, nil
}

// DecodeBatch decodes one batch payload.
func DecodeBatch(data []byte) (*Batch, error) {
	d := NewDecoder(data)

	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	root, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCount(MaxMutationsPerFrame)
	if err != nil {
		return nil, err
	}

	b := &Batch{Seq: seq, Root: root, Mutations: make([]Mutation, 0, count)}
	for i := 0; i < count; i++ {
		m, err := decodeMutation(d)
		if err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
		b.Mutations = append(b.Mutations, m)
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return b, nil
}

func encodeMutation(e *Encoder, m *Mutation) {
	e.WriteByte(byte(m.Op))
	e.WriteUvarint(m.Node)
	switch m.Op {
	case MutCreateElement, MutCreateText, MutSetText:
		e.WriteString(m.Value)
	case MutInsert:
		e.WriteUvarint(m.Parent)
		e.WriteUvarint(m.Anchor)
	case MutRemove:
		e.WriteUvarint(m.Parent)
	case MutSetAttr, MutSetStyle, MutSetProperty:
		e.WriteString(m.Name)
		e.WriteString(m.Value)
	case MutRemoveAttr, MutRemoveStyle, MutAddClass, MutRemoveClass:
		e.WriteString(m.Name)
	}
}

func decodeMutation(d *Decoder) (Mutation, error) {
	var m Mutation
	op, err := d.ReadByte()
	if err != nil {
		return m, err
	}
	m.Op = MutationOp(op)
	if m.Node, err = d.ReadUvarint(); err != nil {
		return m, err
	}

	switch m.Op {
	case MutCreateElement, MutCreateText, MutSetText:
		m.Value, err = d.ReadString()
	case MutInsert:
		if m.Parent, err = d.ReadUvarint(); err == nil {
			m.Anchor, err = d.ReadUvarint()
		}
	case MutRemove:
		m.Parent, err = d.ReadUvarint()
	case MutSetAttr, MutSetStyle, MutSetProperty:
		if m.Name, err = d.ReadString(); err == nil {
			m.Value, err = d.ReadString()
		}
	case MutRemoveAttr, MutRemoveStyle, MutAddClass, MutRemoveClass:
		m.Name, err = d.ReadString()
	default:
		return m, fmt.Errorf("%w: 0x%02x", ErrInvalidMutation, op)
	}
	return m, err
}
