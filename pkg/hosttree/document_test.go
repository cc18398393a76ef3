package hosttree

import (
	"errors"
	"testing"

	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func mustElement(t *testing.T, d *Document, tag string) *Node {
	t.Helper()
	n, err := d.CreateElementNode(tag)
	if err != nil {
		t.Fatalf("CreateElementNode(%q) error = %v", tag, err)
	}
	return n
}

func TestInsertBeforeAndMove(t *testing.T) {
	d := NewDocument()
	ul := mustElement(t, d, "ul")
	d.InsertBefore(d.Body(), ul, nil)

	a := d.CreateText("a").(*Node)
	b := d.CreateText("b").(*Node)
	c := d.CreateText("c").(*Node)
	d.InsertBefore(ul, a, nil)
	d.InsertBefore(ul, c, nil)
	d.InsertBefore(ul, b, c)

	if got := ul.TextContent(); got != "abc" {
		t.Fatalf("TextContent() = %q, want abc", got)
	}

	// Moving an attached node keeps identity.
	d.InsertBefore(ul, c, a)
	if got := ul.TextContent(); got != "cab" {
		t.Errorf("after move TextContent() = %q, want cab", got)
	}
	if d.NextSibling(c) != vdom.Node(a) {
		t.Errorf("NextSibling(c) = %v, want a", d.NextSibling(c))
	}
	if d.NextSibling(b) != nil {
		t.Errorf("NextSibling(last) = %v, want untyped nil", d.NextSibling(b))
	}
	if d.Parent(a) != vdom.Node(ul) {
		t.Errorf("Parent(a) = %v, want ul", d.Parent(a))
	}

	d.RemoveChild(ul, a)
	if d.Parent(a) != nil {
		t.Errorf("Parent(removed) = %v, want untyped nil", d.Parent(a))
	}
	if got := ul.TextContent(); got != "cb" {
		t.Errorf("after remove TextContent() = %q, want cb", got)
	}
	if s := d.Stats(); s.TextsCreated != 3 || s.ElementsCreated != 1 || s.Removes != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestInsertIntoOwnSubtreePanics(t *testing.T) {
	d := NewDocument()
	outer := mustElement(t, d, "div")
	inner := mustElement(t, d, "div")
	d.InsertBefore(outer, inner, nil)

	defer func() {
		if r := recover(); r != ErrHierarchy {
			t.Errorf("recover() = %v, want ErrHierarchy", r)
		}
	}()
	d.InsertBefore(inner, outer, nil)
}

func TestCreateElementRejectsInvalidTag(t *testing.T) {
	d := NewDocument()
	if _, err := d.CreateElement("bad tag"); !errors.Is(err, ErrInvalidTag) {
		t.Errorf("CreateElement(bad tag) error = %v, want ErrInvalidTag", err)
	}
}

func TestLookupOnlyFindsAttachedNodes(t *testing.T) {
	d := NewDocument()
	div := mustElement(t, d, "div")
	if _, ok := d.Lookup(div.ID()); ok {
		t.Error("Lookup(detached) found node")
	}
	d.InsertBefore(d.Body(), div, nil)
	if n, ok := d.Lookup(div.ID()); !ok || n != div {
		t.Errorf("Lookup(attached) = %v, %v", n, ok)
	}
	d.RemoveChild(d.Body(), div)
	if _, ok := d.Lookup(div.ID()); ok {
		t.Error("Lookup(removed) found node")
	}
}

func TestAttributeStyleClassNoops(t *testing.T) {
	d := NewDocument()
	div := mustElement(t, d, "div")

	var muts []protocol.Mutation
	cancel := d.Observe(func(m protocol.Mutation) { muts = append(muts, m) })

	d.SetAttribute(div, "id", "x")
	d.SetAttribute(div, "id", "x")
	d.RemoveAttribute(div, "missing")
	d.AddClass(div, "a")
	d.AddClass(div, "a")
	d.RemoveClass(div, "b")
	d.SetStyle(div, "color", "red")
	d.SetStyle(div, "color", "red")
	d.RemoveStyle(div, "margin")

	if len(muts) != 3 {
		t.Errorf("observed %d mutations, want 3: %v", len(muts), muts)
	}

	cancel()
	d.SetAttribute(div, "id", "y")
	if len(muts) != 3 {
		t.Errorf("observer called after cancel")
	}
	if v, _ := div.Attr("id"); v != "y" {
		t.Errorf("Attr(id) = %q, want y", v)
	}
	if !div.HasClass("a") {
		t.Error("HasClass(a) = false")
	}
	if v, _ := div.Style("color"); v != "red" {
		t.Errorf("Style(color) = %q, want red", v)
	}
}

func TestTextNodesIgnoreElementMutations(t *testing.T) {
	d := NewDocument()
	txt := d.CreateText("x")
	d.SetAttribute(txt, "id", "y")
	d.AddClass(txt, "a")
	if n := txt.(*Node); n.attrs != nil || n.classes != nil {
		t.Errorf("text node got element state: %+v", n)
	}
}

func TestDispatchBubblesAndStops(t *testing.T) {
	d := NewDocument()
	outer := mustElement(t, d, "div")
	inner := mustElement(t, d, "button")
	d.InsertBefore(d.Body(), outer, nil)
	d.InsertBefore(outer, inner, nil)

	var log []string
	d.Listen(inner, "click", func(e *vdom.Event) {
		log = append(log, "inner")
		if e.Target != vdom.Node(inner) || e.CurrentTarget != vdom.Node(inner) {
			t.Errorf("inner: target = %v, current = %v", e.Target, e.CurrentTarget)
		}
	})
	outerID := d.Listen(outer, "click", func(e *vdom.Event) {
		log = append(log, "outer")
		if e.Target != vdom.Node(inner) || e.CurrentTarget != vdom.Node(outer) {
			t.Errorf("outer: target = %v, current = %v", e.Target, e.CurrentTarget)
		}
	})
	d.Listen(outer, "input", func(*vdom.Event) { log = append(log, "input") })

	if !d.Click(inner) {
		t.Error("Click() = false, want true")
	}
	if got := join(log); got != "inner,outer" {
		t.Errorf("bubble order = %s, want inner,outer", got)
	}

	log = nil
	stopID := d.Listen(inner, "click", func(e *vdom.Event) { e.StopPropagation() })
	d.Click(inner)
	if got := join(log); got != "inner" {
		t.Errorf("after StopPropagation = %s, want inner", got)
	}

	log = nil
	d.Unlisten(inner, stopID)
	d.Unlisten(outer, outerID)
	d.Click(inner)
	if got := join(log); got != "inner" {
		t.Errorf("after Unlisten = %s, want inner", got)
	}
	if d.ListenerCount(outer) != 1 {
		t.Errorf("ListenerCount(outer) = %d, want 1", d.ListenerCount(outer))
	}

	d.UnlistenAll(inner)
	if d.Click(inner) {
		t.Error("Click() with no click listeners = true")
	}
}

func TestDispatchByID(t *testing.T) {
	d := NewDocument()
	input := mustElement(t, d, "input")
	d.InsertBefore(d.Body(), input, nil)

	var got string
	d.Listen(input, "input", func(e *vdom.Event) { got = e.Value + "/" + e.Data["k"].(string) })

	ran, err := d.DispatchByID(input.ID(), "input", "hi", map[string]string{"k": "v"})
	if err != nil || !ran {
		t.Fatalf("DispatchByID() = %v, %v", ran, err)
	}
	if got != "hi/v" {
		t.Errorf("handler saw %q, want hi/v", got)
	}

	if _, err := d.DispatchByID(999, "click", "", nil); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("DispatchByID(unknown) error = %v, want ErrNodeNotFound", err)
	}
}

func join(s []string) string {
	out := ""
	for i, x := range s {
		if i > 0 {
			out += ","
		}
		out += x
	}
	return out
}
