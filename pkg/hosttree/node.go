package hosttree

import (
	"slices"
	"sort"
	"strings"
)

// NodeType distinguishes element and text nodes.
type NodeType uint8

const (
	ElementNode NodeType = iota
	TextNode
)

// Node is an element or text node of a Document.
type Node struct {
	id   uint64
	typ  NodeType
	tag  string
	text string

	attrs   map[string]string
	styles  map[string]string
	classes []string
	props   map[string]any

	parent   *Node
	children []*Node
}

// ID returns the node's document-unique ID. IDs are never reused.
func (n *Node) ID() uint64 { return n.id }

// Type returns the node type.
func (n *Node) Type() NodeType { return n.typ }

// Tag returns the element tag, or "" for text nodes.
func (n *Node) Tag() string { return n.tag }

// Text returns a text node's content.
func (n *Node) Text() string { return n.text }

// Parent returns the parent node, or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Attr returns an attribute value.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Style returns a style property value.
func (n *Node) Style(name string) (string, bool) {
	v, ok := n.styles[name]
	return v, ok
}

// Classes returns the class list in insertion order.
func (n *Node) Classes() []string {
	out := make([]string, len(n.classes))
	copy(out, n.classes)
	return out
}

// HasClass reports whether the class list contains name.
func (n *Node) HasClass(name string) bool {
	return n.classIndex(name) >= 0
}

// Property returns a live property value set through SetProperty.
func (n *Node) Property(name string) any {
	return n.props[name]
}

// TextContent concatenates the text of all descendant text nodes.
func (n *Node) TextContent() string {
	if n.typ == TextNode {
		return n.text
	}
	var b strings.Builder
	var walk func(*Node)
	walk = func(c *Node) {
		if c.typ == TextNode {
			b.WriteString(c.text)
			return
		}
		for _, cc := range c.children {
			walk(cc)
		}
	}
	walk(n)
	return b.String()
}

// Find returns the first descendant element (depth first, n included) for
// which match returns true.
func (n *Node) Find(match func(*Node) bool) *Node {
	if n.typ == ElementNode && match(n) {
		return n
	}
	for _, c := range n.children {
		if f := c.Find(match); f != nil {
			return f
		}
	}
	return nil
}

// FindByAttr finds a descendant element with attribute name set to value.
func (n *Node) FindByAttr(name, value string) *Node {
	return n.Find(func(c *Node) bool {
		v, ok := c.attrs[name]
		return ok && v == value
	})
}

// FindByTag finds the first descendant element with the tag.
func (n *Node) FindByTag(tag string) *Node {
	return n.Find(func(c *Node) bool { return c.tag == tag })
}

// insertBefore moves c under n before a, appending when a is not a child
// of n. It returns the ID of the anchor used, or 0.
func (n *Node) insertBefore(c, a *Node) uint64 {
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	c.parent = n

	if a != nil && a.parent == n {
		if i := n.indexOf(a); i >= 0 {
			n.children = slices.Insert(n.children, i, c)
			return a.id
		}
	}
	n.children = append(n.children, c)
	return 0
}

func (n *Node) removeChild(c *Node) {
	if i := n.indexOf(c); i >= 0 {
		n.children = slices.Delete(n.children, i, i+1)
	}
	c.parent = nil
}

func (n *Node) contains(c *Node) bool {
	for x := c; x != nil; x = x.parent {
		if x == n {
			return true
		}
	}
	return false
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) classIndex(name string) int {
	for i, c := range n.classes {
		if c == name {
			return i
		}
	}
	return -1
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
