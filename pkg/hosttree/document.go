package hosttree

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Errors returned by Document.
var (
	ErrInvalidTag   = errors.New("hosttree: invalid tag")
	ErrNodeNotFound = errors.New("hosttree: node not found")
	ErrHierarchy    = errors.New("hosttree: node cannot be inserted into its own subtree")
)

// Stats counts work done on a Document.
type Stats struct {
	ElementsCreated int
	TextsCreated    int
	Inserts         int
	Removes         int
	ListenersAdded  int
}

// Document is an in-memory DOM-like tree implementing vdom.Host.
//
// A Document is not safe for concurrent use; drive it from the goroutine
// that owns the renderer.
type Document struct {
	body   *Node
	nextID uint64
	nodes  map[uint64]*Node

	nextListener vdom.ListenerID
	listeners    map[*Node][]registration

	observers []*observer
	stats     Stats
}

type registration struct {
	id      vdom.ListenerID
	event   string
	handler func(*vdom.Event)
}

type observer struct {
	fn func(protocol.Mutation)
}

var _ vdom.Host = (*Document)(nil)

// NewDocument creates a document with an empty <body> root, ID 1.
func NewDocument() *Document {
	d := &Document{
		nodes:     make(map[uint64]*Node),
		listeners: make(map[*Node][]registration),
	}
	d.body = d.newNode(ElementNode, "body", "")
	return d
}

// Body returns the root element.
func (d *Document) Body() *Node {
	return d.body
}

// Stats returns the counters accumulated so far.
func (d *Document) Stats() Stats {
	return d.stats
}

// Lookup returns the node with the given ID if it is attached to the body.
func (d *Document) Lookup(id uint64) (*Node, bool) {
	n, ok := d.nodes[id]
	if !ok || !d.connected(n) {
		return nil, false
	}
	return n, true
}

// CreateElementNode creates a detached element, outside of the vdom.Host
// interface.
func (d *Document) CreateElementNode(tag string) (*Node, error) {
	if !vdom.ValidTag(tag) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	n := d.newNode(ElementNode, tag, "")
	d.stats.ElementsCreated++
	d.emit(protocol.Mutation{Op: protocol.MutCreateElement, Node: n.id, Value: tag})
	return n, nil
}

// Observe registers fn to receive every mutation made from now on. The
// returned function unregisters it.
func (d *Document) Observe(fn func(protocol.Mutation)) (cancel func()) {
	o := &observer{fn: fn}
	d.observers = append(d.observers, o)
	return func() {
		d.observers = slices.DeleteFunc(d.observers, func(x *observer) bool { return x == o })
	}
}

// vdom.Host implementation.

func (d *Document) CreateElement(tag string) (vdom.Node, error) {
	n, err := d.CreateElementNode(tag)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (d *Document) CreateText(text string) vdom.Node {
	n := d.newNode(TextNode, "", text)
	d.stats.TextsCreated++
	d.emit(protocol.Mutation{Op: protocol.MutCreateText, Node: n.id, Value: text})
	return n
}

func (d *Document) SetText(node vdom.Node, text string) {
	n := asNode(node)
	if n == nil || n.typ != TextNode || n.text == text {
		return
	}
	n.text = text
	d.emit(protocol.Mutation{Op: protocol.MutSetText, Node: n.id, Value: text})
}

// InsertBefore inserts child into parent before anchor, moving it if it is
// already attached. A nil anchor, or one that is not a child of parent,
// appends. Inserting a node into its own subtree panics with ErrHierarchy.
func (d *Document) InsertBefore(parent, child, anchor vdom.Node) {
	p, c, a := asNode(parent), asNode(child), asNode(anchor)
	if p == nil || c == nil || c == a {
		return
	}
	if c.contains(p) {
		panic(ErrHierarchy)
	}

	anchorID := p.insertBefore(c, a)
	d.stats.Inserts++
	d.emit(protocol.Mutation{Op: protocol.MutInsert, Node: c.id, Parent: p.id, Anchor: anchorID})
}

func (d *Document) RemoveChild(parent, child vdom.Node) {
	p, c := asNode(parent), asNode(child)
	if p == nil || c == nil || c.parent != p {
		return
	}
	p.removeChild(c)
	d.forget(c)

	d.stats.Removes++
	d.emit(protocol.Mutation{Op: protocol.MutRemove, Node: c.id, Parent: p.id})
}

func (d *Document) Parent(node vdom.Node) vdom.Node {
	n := asNode(node)
	if n == nil || n.parent == nil {
		return nil
	}
	return n.parent
}

func (d *Document) NextSibling(node vdom.Node) vdom.Node {
	n := asNode(node)
	if n == nil || n.parent == nil {
		return nil
	}
	i := n.parent.indexOf(n)
	if i < 0 || i+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[i+1]
}

func (d *Document) SetAttribute(node vdom.Node, name, value string) {
	n := asElement(node)
	if n == nil {
		return
	}
	if old, ok := n.attrs[name]; ok && old == value {
		return
	}
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
	d.emit(protocol.Mutation{Op: protocol.MutSetAttr, Node: n.id, Name: name, Value: value})
}

func (d *Document) RemoveAttribute(node vdom.Node, name string) {
	n := asElement(node)
	if n == nil {
		return
	}
	if _, ok := n.attrs[name]; !ok {
		return
	}
	delete(n.attrs, name)
	d.emit(protocol.Mutation{Op: protocol.MutRemoveAttr, Node: n.id, Name: name})
}

func (d *Document) SetStyle(node vdom.Node, name, value string) {
	n := asElement(node)
	if n == nil {
		return
	}
	if old, ok := n.styles[name]; ok && old == value {
		return
	}
	if n.styles == nil {
		n.styles = make(map[string]string)
	}
	n.styles[name] = value
	d.emit(protocol.Mutation{Op: protocol.MutSetStyle, Node: n.id, Name: name, Value: value})
}

func (d *Document) RemoveStyle(node vdom.Node, name string) {
	n := asElement(node)
	if n == nil {
		return
	}
	if _, ok := n.styles[name]; !ok {
		return
	}
	delete(n.styles, name)
	d.emit(protocol.Mutation{Op: protocol.MutRemoveStyle, Node: n.id, Name: name})
}

func (d *Document) AddClass(node vdom.Node, name string) {
	n := asElement(node)
	if n == nil || name == "" || n.classIndex(name) >= 0 {
		return
	}
	n.classes = append(n.classes, name)
	d.emit(protocol.Mutation{Op: protocol.MutAddClass, Node: n.id, Name: name})
}

func (d *Document) RemoveClass(node vdom.Node, name string) {
	n := asElement(node)
	if n == nil {
		return
	}
	i := n.classIndex(name)
	if i < 0 {
		return
	}
	n.classes = slices.Delete(n.classes, i, i+1)
	d.emit(protocol.Mutation{Op: protocol.MutRemoveClass, Node: n.id, Name: name})
}

func (d *Document) SetProperty(node vdom.Node, name string, value any) {
	n := asElement(node)
	if n == nil {
		return
	}
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value
	d.emit(protocol.Mutation{Op: protocol.MutSetProperty, Node: n.id, Name: name, Value: propString(value)})
}

func (d *Document) Listen(node vdom.Node, event string, handler func(*vdom.Event)) vdom.ListenerID {
	n := asNode(node)
	if n == nil || handler == nil {
		return 0
	}
	d.nextListener++
	id := d.nextListener
	d.listeners[n] = append(d.listeners[n], registration{id: id, event: event, handler: handler})
	d.stats.ListenersAdded++
	return id
}

func (d *Document) Unlisten(node vdom.Node, id vdom.ListenerID) {
	n := asNode(node)
	if n == nil {
		return
	}
	regs := slices.DeleteFunc(d.listeners[n], func(r registration) bool { return r.id == id })
	if len(regs) == 0 {
		delete(d.listeners, n)
		return
	}
	d.listeners[n] = regs
}

func (d *Document) UnlistenAll(node vdom.Node) {
	if n := asNode(node); n != nil {
		delete(d.listeners, n)
	}
}

// ListenerCount returns the number of listeners registered on n.
func (d *Document) ListenerCount(n *Node) int {
	return len(d.listeners[n])
}

func (d *Document) newNode(typ NodeType, tag, text string) *Node {
	d.nextID++
	n := &Node{id: d.nextID, typ: typ, tag: tag, text: text}
	d.nodes[n.id] = n
	return n
}

// forget drops a removed subtree from the ID index and the listener
// registry.
func (d *Document) forget(n *Node) {
	delete(d.nodes, n.id)
	delete(d.listeners, n)
	for _, c := range n.children {
		d.forget(c)
	}
}

func (d *Document) connected(n *Node) bool {
	for x := n; x != nil; x = x.parent {
		if x == d.body {
			return true
		}
	}
	return false
}

func (d *Document) emit(m protocol.Mutation) {
	for _, o := range d.observers {
		o.fn(m)
	}
}

func asNode(n vdom.Node) *Node {
	x, _ := n.(*Node)
	return x
}

func asElement(n vdom.Node) *Node {
	x := asNode(n)
	if x == nil || x.typ != ElementNode {
		return nil
	}
	return x
}

func propString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}
