package vdom

import (
	"github.com/vango-dev/vtree/pkg/reactive"
)

// ComponentKind distinguishes function components from stateful ones.
type ComponentKind uint8

const (
	FuncKind     ComponentKind = iota // Called on every mount and patch
	StatefulKind                      // Instance with its own render computation
)

// ComponentRef identifies a component type. Two component VNodes have the
// same type exactly when they hold the same *ComponentRef.
type ComponentRef struct {
	Name string
	Kind ComponentKind

	fn      func(Props) any
	factory func(Props, *reactive.Scheduler) Component
}

// Func defines a function component. fn receives the node's props and
// returns a *VNode or any value rendered as text.
func Func(name string, fn func(Props) any) *ComponentRef {
	return &ComponentRef{Name: name, Kind: FuncKind, fn: fn}
}

// Stateful defines a stateful component. factory builds one instance per
// mount; the instance must embed Base.
func Stateful(name string, factory func(Props, *reactive.Scheduler) Component) *ComponentRef {
	return &ComponentRef{Name: name, Kind: StatefulKind, factory: factory}
}

// Component is a stateful component instance. Implementations embed Base
// and implement Render, which returns a *VNode, a value rendered as text,
// or an error.
type Component interface {
	Render() any
	base() *Base
}

// Mounter is implemented by components that want a callback after their
// first render is mounted.
type Mounter interface {
	OnMount()
}

// Updater is implemented by components that want a callback after a parent
// patch re-rendered them with new props.
type Updater interface {
	OnUpdate(prev Props)
}

// Unmounter is implemented by components that want a callback on unmount.
type Unmounter interface {
	OnUnmount()
}

// Base carries the renderer-managed state of a stateful component.
type Base struct {
	props    Props
	sched    *reactive.Scheduler
	scope    *scope
	cleanups []func()
	cleaned  bool
}

func (b *Base) base() *Base { return b }

// Props returns the component's current props.
func (b *Base) Props() Props {
	return b.props
}

// Children returns props["children"].
func (b *Base) Children() []*VNode {
	c, _ := b.props.Get("children").([]*VNode)
	return c
}

// Scheduler returns the scheduler the component renders on.
func (b *Base) Scheduler() *reactive.Scheduler {
	return b.sched
}

// OnCleanup registers fn to run once on unmount. Cleanups run in reverse
// registration order, before OnUnmount.
func (b *Base) OnCleanup(fn func()) {
	if fn == nil {
		return
	}
	b.cleanups = append(b.cleanups, fn)
}

// UseContext returns the value of the nearest enclosing Provider for ctx,
// or the context's default.
func (b *Base) UseContext(ctx *Context) any {
	if v, ok := b.scope.lookup(ctx); ok {
		return v
	}
	return ctx.Default()
}

// runCleanups runs registered cleanups once, LIFO. onPanic receives each
// recovered panic.
func (b *Base) runCleanups(onPanic func(any)) {
	if b.cleaned {
		return
	}
	b.cleaned = true
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if r := recover(); r != nil {
					onPanic(r)
				}
			}()
			b.cleanups[i]()
		}()
	}
	b.cleanups = nil
}

// mounted is the binding shared by every VNode version of one mounted
// component. Scheduled re-renders write through it, so they always patch
// the latest subtree.
type mounted struct {
	ref      *ComponentRef
	instance Component
	subtree  *VNode
	render   *reactive.Computation

	container Node
	anchor    Node
	scope     *scope

	// syncRun is set while a render runs inside mount or patch, where errors
	// unwind to the caller instead of being routed to a boundary.
	syncRun  bool
	released bool
}

// scope is the chain of enclosing error boundaries and provider values,
// threaded through mount and patch.
type scope struct {
	parent   *scope
	boundary *errorBoundary
	ctx      *Context
	value    any
}

func (s *scope) withBoundary(b *errorBoundary) *scope {
	return &scope{parent: s, boundary: b}
}

func (s *scope) withValue(ctx *Context, value any) *scope {
	return &scope{parent: s, ctx: ctx, value: value}
}

func (s *scope) nearestBoundary() *errorBoundary {
	for c := s; c != nil; c = c.parent {
		if c.boundary != nil {
			return c.boundary
		}
	}
	return nil
}

func (s *scope) lookup(ctx *Context) (any, bool) {
	for c := s; c != nil; c = c.parent {
		if c.ctx != nil && c.ctx == ctx {
			return c.value, true
		}
	}
	return nil, false
}
