package vdom

// Node is an opaque host tree node. Implementations must use comparable
// values (typically pointers) and return an untyped nil for "no node".
type Node any

// ListenerID identifies one registered listener on one node.
type ListenerID uint64

// Host is the tree-mutation capability a Renderer drives.
//
// All methods are called from the goroutine that owns the reactive
// scheduler. InsertBefore with a nil anchor appends; inserting a node that
// already has a parent moves it.
type Host interface {
	CreateElement(tag string) (Node, error)
	CreateText(text string) Node
	SetText(n Node, text string)

	InsertBefore(parent, child, anchor Node)
	RemoveChild(parent, child Node)
	Parent(n Node) Node
	NextSibling(n Node) Node

	SetAttribute(n Node, name, value string)
	RemoveAttribute(n Node, name string)
	SetStyle(n Node, name, value string)
	RemoveStyle(n Node, name string)
	AddClass(n Node, name string)
	RemoveClass(n Node, name string)

	// SetProperty writes a live property such as an input's value or
	// checked state, as opposed to its attribute.
	SetProperty(n Node, name string, value any)

	Listen(n Node, event string, handler func(*Event)) ListenerID
	Unlisten(n Node, id ListenerID)
	UnlistenAll(n Node)
}
