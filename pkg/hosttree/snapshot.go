package hosttree

import (
	"sort"

	"github.com/vango-dev/vtree/pkg/protocol"
)

// Snapshot returns the mutations that rebuild n's subtree from nothing:
// creation and state of every node in document order, each followed by its
// insertion into its parent. n itself is created but not inserted.
func Snapshot(n *Node) []protocol.Mutation {
	var out []protocol.Mutation
	snapshot(n, &out)
	return out
}

func snapshot(n *Node, out *[]protocol.Mutation) {
	if n.typ == TextNode {
		*out = append(*out, protocol.Mutation{Op: protocol.MutCreateText, Node: n.id, Value: n.text})
		return
	}

	*out = append(*out, protocol.Mutation{Op: protocol.MutCreateElement, Node: n.id, Value: n.tag})
	for _, k := range sortedKeys(n.attrs) {
		*out = append(*out, protocol.Mutation{Op: protocol.MutSetAttr, Node: n.id, Name: k, Value: n.attrs[k]})
	}
	for _, k := range sortedKeys(n.styles) {
		*out = append(*out, protocol.Mutation{Op: protocol.MutSetStyle, Node: n.id, Name: k, Value: n.styles[k]})
	}
	for _, c := range n.classes {
		*out = append(*out, protocol.Mutation{Op: protocol.MutAddClass, Node: n.id, Name: c})
	}
	props := make([]string, 0, len(n.props))
	for k := range n.props {
		props = append(props, k)
	}
	sort.Strings(props)
	for _, k := range props {
		*out = append(*out, protocol.Mutation{Op: protocol.MutSetProperty, Node: n.id, Name: k, Value: propString(n.props[k])})
	}

	for _, c := range n.children {
		snapshot(c, out)
		*out = append(*out, protocol.Mutation{Op: protocol.MutInsert, Node: c.id, Parent: n.id})
	}
}
