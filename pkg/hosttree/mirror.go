package hosttree

import (
	"fmt"
	"slices"

	"github.com/vango-dev/vtree/pkg/protocol"
)

// Mirror rebuilds a tree from a stream of mutations, the way a remote
// viewer does. It is the receiving end of Document.Observe and Snapshot.
type Mirror struct {
	nodes map[uint64]*Node
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{nodes: make(map[uint64]*Node)}
}

// Node returns the mirrored node with the given ID.
func (m *Mirror) Node(id uint64) *Node {
	return m.nodes[id]
}

// Reset forgets every node, before applying a fresh snapshot.
func (m *Mirror) Reset() {
	clear(m.nodes)
}

// Apply applies mutations in order. It stops at the first mutation that
// names an unknown node.
func (m *Mirror) Apply(muts ...protocol.Mutation) error {
	for i, mu := range muts {
		if err := m.apply(mu); err != nil {
			return fmt.Errorf("mutation %d %s: %w", i, mu, err)
		}
	}
	return nil
}

func (m *Mirror) apply(mu protocol.Mutation) error {
	switch mu.Op {
	case protocol.MutCreateElement:
		m.nodes[mu.Node] = &Node{id: mu.Node, typ: ElementNode, tag: mu.Value}
		return nil
	case protocol.MutCreateText:
		m.nodes[mu.Node] = &Node{id: mu.Node, typ: TextNode, text: mu.Value}
		return nil
	}

	n, ok := m.nodes[mu.Node]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, mu.Node)
	}

	switch mu.Op {
	case protocol.MutSetText:
		n.text = mu.Value
	case protocol.MutInsert:
		p, ok := m.nodes[mu.Parent]
		if !ok {
			return fmt.Errorf("%w: parent %d", ErrNodeNotFound, mu.Parent)
		}
		p.insertBefore(n, m.nodes[mu.Anchor])
	case protocol.MutRemove:
		if n.parent != nil {
			n.parent.removeChild(n)
		}
	case protocol.MutSetAttr:
		if n.attrs == nil {
			n.attrs = make(map[string]string)
		}
		n.attrs[mu.Name] = mu.Value
	case protocol.MutRemoveAttr:
		delete(n.attrs, mu.Name)
	case protocol.MutSetStyle:
		if n.styles == nil {
			n.styles = make(map[string]string)
		}
		n.styles[mu.Name] = mu.Value
	case protocol.MutRemoveStyle:
		delete(n.styles, mu.Name)
	case protocol.MutAddClass:
		if n.classIndex(mu.Name) < 0 {
			n.classes = append(n.classes, mu.Name)
		}
	case protocol.MutRemoveClass:
		if i := n.classIndex(mu.Name); i >= 0 {
			n.classes = slices.Delete(n.classes, i, i+1)
		}
	case protocol.MutSetProperty:
		if n.props == nil {
			n.props = make(map[string]any)
		}
		n.props[mu.Name] = mu.Value
	default:
		return protocol.ErrInvalidMutation
	}
	return nil
}
