// Package vdom reconciles virtual trees against a mutable host tree.
//
// A VNode describes one tree position: an element, a text node or a
// component. User code builds unbound VNodes with H. A Renderer mounts them
// into a container of a Host, binding each VNode to the host node it
// created, and later patches a new VNode tree against the bound one,
// emitting the smallest set of host mutations it can.
//
// # Components
//
// Function components are created with Func and re-run whenever their parent
// patches them. Stateful components are created with Stateful; each mounted
// instance owns a reactive.Computation running its Render method, so a
// signal written by the component re-renders only that component.
//
//	counter := vdom.Stateful("Counter", func(p vdom.Props, s *reactive.Scheduler) vdom.Component {
//	    return &Counter{count: reactive.NewSignal(s, 0)}
//	})
//
//	func (c *Counter) Render() any {
//	    return vdom.H("button", vdom.Props{"onClick": func() { c.count.Update(inc) }},
//	        fmt.Sprint(c.count.Get()))
//	}
//
// # Children diffing
//
// Children are matched by key first and then, for unkeyed children, to the
// earliest unused unkeyed old child of the same type. Matched host nodes are
// reused; only the nodes outside the longest increasing subsequence of
// matched old positions are moved.
//
// # Errors
//
// Panics and returned errors from Render become *RenderError values that
// unwind the mount/patch call chain to the nearest ErrorBoundary, which
// replaces its subtree with a fallback. Without a boundary the error is
// returned from Render, or from the scheduler flush that re-rendered the
// component.
package vdom
