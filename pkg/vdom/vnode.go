package vdom

import "sort"

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement   Kind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindComponent             // Function or stateful component
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// Props holds attributes, event handlers and component inputs.
type Props map[string]any

// Get returns the value for key, or nil.
func (p Props) Get(key string) any {
	if p == nil {
		return nil
	}
	return p[key]
}

// sortedKeys returns the prop names in a stable order so host mutations are
// deterministic.
func (p Props) sortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// VNode is the virtual DOM node.
//
// The exported fields describe the node and are never modified by the
// Renderer except Children, which is normalized in place. The unexported
// fields are the binding filled in by mount and copied forward by patch.
type VNode struct {
	Kind     Kind          // Node type
	Tag      string        // Element tag name (e.g., "div")
	Text     string        // For KindText
	Comp     *ComponentRef // For KindComponent
	Props    Props         // Attributes, event handlers, component props
	Children []*VNode      // Element children
	Key      any           // Reconciliation key: string or int

	node      Node
	listeners map[string]*listener
	m         *mounted
}

// Handle returns the host node bound to v, or nil if v is not mounted.
// For a component it is the handle of its rendered subtree.
func (v *VNode) Handle() Node {
	if v == nil {
		return nil
	}
	if v.Kind == KindComponent {
		if v.m == nil {
			return nil
		}
		return v.m.subtree.Handle()
	}
	return v.node
}

// Subtree returns the tree last rendered by a mounted component.
func (v *VNode) Subtree() *VNode {
	if v == nil || v.m == nil {
		return nil
	}
	return v.m.subtree
}

// Instance returns the instance of a mounted stateful component.
func (v *VNode) Instance() Component {
	if v == nil || v.m == nil {
		return nil
	}
	return v.m.instance
}

// sameType reports whether b can be patched onto a without a remount.
func sameType(a, b *VNode) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindElement:
		return a.Tag == b.Tag
	case KindComponent:
		return a.Comp == b.Comp
	default:
		return true
	}
}

// normalizeChildren drops nil entries.
func normalizeChildren(children []*VNode) []*VNode {
	for _, c := range children {
		if c == nil {
			out := make([]*VNode, 0, len(children))
			for _, c := range children {
				if c != nil {
					out = append(out, c)
				}
			}
			return out
		}
	}
	return children
}
