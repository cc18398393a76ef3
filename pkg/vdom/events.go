package vdom

import (
	"strings"
	"unicode"
)

// Event is dispatched to event handler props.
type Event struct {
	Type          string         // "click", "input", ...
	Target        Node           // Node the event was dispatched at
	CurrentTarget Node           // Node whose listener is running
	Value         string         // Input value, if any
	Data          map[string]any // Host-specific payload

	stopped bool
}

// StopPropagation stops the event from bubbling past the current node.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool {
	return e.stopped
}

// listener is a stable trampoline registered once per (node, event). A
// changed handler prop only swaps target, so the host never sees listener
// churn on re-render.
type listener struct {
	id     ListenerID
	target func(*Event)
}

func (l *listener) dispatch(e *Event) {
	if l.target != nil {
		l.target(e)
	}
}

// isEventProp reports whether a prop name is an event handler, such as
// onClick, onclick or on_click.
func isEventProp(name string) bool {
	return len(name) > 2 && strings.EqualFold(name[:2], "on")
}

// eventName maps onClick, onclick and on_click to "click".
func eventName(prop string) string {
	if strings.HasPrefix(prop, "on_") {
		return prop[3:]
	}
	return strings.ToLower(prop[2:])
}

// handlerFunc adapts a handler prop value. It returns nil for values that
// are not handlers.
func handlerFunc(v any) func(*Event) {
	switch h := v.(type) {
	case func(*Event):
		return h
	case func():
		return func(*Event) { h() }
	case func(string):
		return func(e *Event) { h(e.Value) }
	default:
		return nil
	}
}

// kebab converts camelCase style names to kebab-case.
func kebab(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
