package protocol

import (
	"errors"
	"sort"
)

// EventType identifies the type of viewer event.
type EventType uint8

// Event type constants.
const (
	// Mouse events (0x01-0x08)
	EventClick     EventType = 0x01
	EventDblClick  EventType = 0x02
	EventMouseDown EventType = 0x03
	EventMouseUp   EventType = 0x04

	// Form events (0x10-0x14)
	EventInput  EventType = 0x10
	EventChange EventType = 0x11
	EventSubmit EventType = 0x12
	EventFocus  EventType = 0x13
	EventBlur   EventType = 0x14

	// Keyboard events (0x20-0x21)
	EventKeyDown EventType = 0x20
	EventKeyUp   EventType = 0x21

	// Any other event, named by Event.Name.
	EventCustom EventType = 0xFF
)

var eventNames = map[EventType]string{
	EventClick:     "click",
	EventDblClick:  "dblclick",
	EventMouseDown: "mousedown",
	EventMouseUp:   "mouseup",
	EventInput:     "input",
	EventChange:    "change",
	EventSubmit:    "submit",
	EventFocus:     "focus",
	EventBlur:      "blur",
	EventKeyDown:   "keydown",
	EventKeyUp:     "keyup",
}

// String returns the DOM event name of the type, or "custom".
func (et EventType) String() string {
	if n, ok := eventNames[et]; ok {
		return n
	}
	if et == EventCustom {
		return "custom"
	}
	return "unknown"
}

// EventTypeOf maps a DOM event name to its type; unknown names map to
// EventCustom.
func EventTypeOf(name string) EventType {
	for t, n := range eventNames {
		if n == name {
			return t
		}
	}
	return EventCustom
}

// Event encoding errors.
var (
	ErrInvalidEventType = errors.New("protocol: invalid event type")
)

// Event is a viewer interaction dispatched at a host node.
type Event struct {
	Seq   uint64
	Type  EventType
	Name  string            // Event name, for EventCustom
	Node  uint64            // Target node ID
	Value string            // Input value or key
	Data  map[string]string // Form fields or custom payload
}

// EventName returns the DOM event name the event dispatches as.
func (e *Event) EventName() string {
	if e.Type == EventCustom {
		return e.Name
	}
	return e.Type.String()
}

// EncodeEvent encodes an event to bytes.
//
//	[Seq: varint][Type: byte][Name: string, custom only][Node: varint]
//	[Value: string][Data: count + sorted key/value strings]
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	e.WriteUvarint(ev.Seq)
	e.WriteByte(byte(ev.Type))
	if ev.Type == EventCustom {
		e.WriteString(ev.Name)
	}
	e.WriteUvarint(ev.Node)
	e.WriteString(ev.Value)

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		e.WriteString(k)
		e.WriteString(ev.Data[k])
	}
	return e.Bytes()
}

// DecodeEvent decodes an event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	ev := &Event{}

	var err error
	if ev.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	ev.Type = EventType(t)
	switch {
	case ev.Type == EventCustom:
		if ev.Name, err = d.ReadString(); err != nil {
			return nil, err
		}
		if ev.Name == "" {
			return nil, ErrInvalidEventType
		}
	case eventNames[ev.Type] == "":
		return nil, ErrInvalidEventType
	}

	if ev.Node, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if ev.Value, err = d.ReadString(); err != nil {
		return nil, err
	}

	count, err := d.ReadCount(MaxEventData)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		ev.Data = make(map[string]string, count)
	}
	for i := 0; i < count; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		ev.Data[k] = v
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return ev, nil
}
