package hosttree

import (
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Dispatch delivers ev at target and bubbles it through target's ancestors.
// Each node's listeners for ev.Type run in registration order; propagation
// stops after the node whose listener called StopPropagation. Dispatch
// reports whether any listener ran.
func (d *Document) Dispatch(target *Node, ev *vdom.Event) bool {
	if target == nil || ev == nil {
		return false
	}
	if ev.Target == nil {
		ev.Target = target
	}

	ran := false
	for n := target; n != nil; n = n.parent {
		// Snapshot: a listener may add or remove listeners on this node.
		regs := append([]registration(nil), d.listeners[n]...)
		for _, r := range regs {
			if r.event != ev.Type {
				continue
			}
			ev.CurrentTarget = n
			r.handler(ev)
			ran = true
		}
		if ev.Stopped() {
			break
		}
	}
	return ran
}

// DispatchByID dispatches an event of the given type at the attached node
// with the given ID.
func (d *Document) DispatchByID(id uint64, eventType, value string, data map[string]string) (bool, error) {
	n, ok := d.Lookup(id)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	ev := &vdom.Event{Type: eventType, Value: value}
	if len(data) > 0 {
		ev.Data = make(map[string]any, len(data))
		for k, v := range data {
			ev.Data[k] = v
		}
	}
	return d.Dispatch(n, ev), nil
}

// Click dispatches a click at n.
func (d *Document) Click(n *Node) bool {
	return d.Dispatch(n, &vdom.Event{Type: "click"})
}

// Input sets n's value property and dispatches an input event carrying it.
func (d *Document) Input(n *Node, value string) bool {
	if n.typ == ElementNode {
		if n.props == nil {
			n.props = make(map[string]any)
		}
		n.props["value"] = value
	}
	return d.Dispatch(n, &vdom.Event{Type: "input", Value: value})
}
