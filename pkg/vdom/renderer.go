package vdom

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/pkg/metrics"
	"github.com/vango-dev/vtree/pkg/reactive"
)

const defaultTracerName = "github.com/vango-dev/vtree/pkg/vdom"

// Renderer mounts and patches VNode trees into containers of a Host.
//
// A Renderer is single-threaded: call it, and run the scheduler it renders
// with, from one goroutine.
type Renderer struct {
	host    Host
	sched   *reactive.Scheduler
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	roots map[Node]*VNode
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithMetrics sets the collectors mutations are recorded to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

// WithTracer sets the tracer used for render spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Renderer) {
		r.tracer = tracer
	}
}

// NewRenderer creates a renderer. Stateful components render on sched.
func NewRenderer(host Host, sched *reactive.Scheduler, opts ...Option) *Renderer {
	r := &Renderer{
		host:  host,
		sched: sched,
		roots: make(map[Node]*VNode),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = sched.Logger()
	}
	if r.metrics == nil {
		r.metrics = sched.Metrics()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(defaultTracerName)
	}
	return r
}

// Scheduler returns the scheduler components render on.
func (r *Renderer) Scheduler() *reactive.Scheduler {
	return r.sched
}

// Host returns the host tree the renderer mutates.
func (r *Renderer) Host() Host {
	return r.host
}

// Root returns the tree last rendered into container.
func (r *Renderer) Root(container Node) *VNode {
	return r.roots[container]
}

// Render mounts v into container, or patches it against the tree last
// rendered into the same container. A render error not caught by an
// ErrorBoundary is returned.
func (r *Renderer) Render(ctx context.Context, v *VNode, container Node) error {
	if container == nil {
		return ErrNilContainer
	}
	if v == nil {
		return r.Unmount(container)
	}

	prev := r.roots[container]
	_, span := r.tracer.Start(ctx, "vdom.render",
		trace.WithAttributes(
			attribute.Bool("vdom.initial", prev == nil),
			attribute.String("vdom.kind", v.Kind.String()),
		),
	)
	defer span.End()

	err := r.patch(prev, v, container, nil)
	if err == nil || prev != nil {
		// A failed patch has already moved the live bindings onto v.
		r.roots[container] = v
	}
	if err != nil {
		r.metrics.RenderError(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Unmount releases the tree rendered into container and removes it from
// the host tree.
func (r *Renderer) Unmount(container Node) error {
	if container == nil {
		return ErrNilContainer
	}
	if v, ok := r.roots[container]; ok {
		delete(r.roots, container)
		r.unmount(v, true)
	}
	return nil
}

// mount creates host nodes for v and inserts them into container before
// anchor (appending when anchor is nil). On failure nothing mounted for v is
// left in the host tree.
func (r *Renderer) mount(v *VNode, container, anchor Node, sc *scope) error {
	switch v.Kind {
	case KindText:
		n := r.host.CreateText(v.Text)
		r.metrics.NodeMounted()
		r.host.InsertBefore(container, n, anchor)
		v.node = n
		return nil

	case KindElement:
		return r.mountElement(v, container, anchor, sc)

	case KindComponent:
		if v.Comp == nil {
			return fmt.Errorf("%w: nil component", ErrUnknownTag)
		}
		if v.Comp.Kind == StatefulKind {
			return r.mountStateful(v, container, anchor, sc)
		}
		return r.mountFunc(v, container, anchor, sc)

	default:
		return fmt.Errorf("%w: kind %d", ErrUnknownTag, v.Kind)
	}
}

func (r *Renderer) mountElement(v *VNode, container, anchor Node, sc *scope) error {
	if !ValidTag(v.Tag) {
		return fmt.Errorf("%w: %q", ErrUnknownTag, v.Tag)
	}
	n, err := r.host.CreateElement(v.Tag)
	if err != nil {
		return err
	}
	r.metrics.NodeMounted()
	v.node = n
	v.listeners = nil
	r.applyProps(v, nil, v.Props)

	v.Children = normalizeChildren(v.Children)
	for i, c := range v.Children {
		if err := r.mount(c, n, nil, sc); err != nil {
			for _, done := range v.Children[:i] {
				r.unmount(done, false)
			}
			r.host.UnlistenAll(n)
			return err
		}
	}

	r.host.InsertBefore(container, n, anchor)
	return nil
}

func (r *Renderer) mountFunc(v *VNode, container, anchor Node, sc *scope) error {
	sub, err := r.callFunc(v.Comp, v.Props)
	if err != nil {
		return err
	}
	v.m = &mounted{ref: v.Comp, subtree: sub, container: container, scope: sc}
	return r.mount(sub, container, anchor, sc)
}

func (r *Renderer) mountStateful(v *VNode, container, anchor Node, sc *scope) error {
	inst, err := r.construct(v.Comp, v.Props)
	if err != nil {
		return err
	}
	b := inst.base()
	b.props = v.Props
	b.sched = r.sched
	b.scope = sc

	m := &mounted{
		ref:       v.Comp,
		instance:  inst,
		container: container,
		anchor:    anchor,
		scope:     sc,
	}
	m.render = reactive.NewComputation(r.sched, func() error {
		return r.renderStateful(m)
	})
	v.m = m

	m.syncRun = true
	err = m.render.Run()
	m.syncRun = false
	m.anchor = nil
	if err != nil {
		r.release(m, true)
		return err
	}

	if h, ok := inst.(Mounter); ok {
		r.hook(m, "OnMount", h.OnMount)
	}
	return nil
}

// renderStateful is the body of a stateful component's render computation.
func (r *Renderer) renderStateful(m *mounted) error {
	if m.released {
		return nil
	}

	prev := m.subtree
	anchor := m.anchor
	if prev != nil {
		anchor = r.nextSibling(prev)
	}

	next, err := r.callRender(m)
	if err == nil {
		m.subtree = next
		if prev == nil {
			err = r.mount(next, m.container, anchor, r.childScope(m))
		} else {
			err = r.patch(prev, next, m.container, r.childScope(m))
		}
	}
	if err == nil {
		return nil
	}
	return r.renderFailed(m, prev, next, anchor, err)
}

// renderFailed decides where a render error goes: an ErrorBoundary recovers
// its own subtree; a scheduled re-render hands the error to the nearest
// boundary; anything else unwinds to the caller.
func (r *Renderer) renderFailed(m *mounted, prev, next *VNode, anchor Node, err error) error {
	if b, ok := m.instance.(*errorBoundary); ok {
		return r.recoverBoundary(m, b, prev, next, anchor, err)
	}

	if !m.syncRun {
		if b := m.scope.nearestBoundary(); b != nil {
			r.metrics.RenderError(true)
			r.logger.Debug("render error routed to boundary",
				"component", m.ref.Name, "error", err)
			r.discard(prev, next)
			m.subtree = nil
			m.render.Dispose()
			b.capture(err)
			return nil
		}
	}
	return err
}

// recoverBoundary replaces a failed boundary subtree with the fallback,
// mounted where the subtree was. A failure while the fallback is shown, or
// while mounting it, cannot be recovered here and escalates.
func (r *Renderer) recoverBoundary(m *mounted, b *errorBoundary, prev, next *VNode, anchor Node, err error) error {
	r.discard(prev, next)
	m.subtree = nil
	if b.showingFallback {
		return r.escalate(m, err)
	}

	r.metrics.RenderError(true)
	r.logger.Debug("error boundary caught render error", "error", err)
	b.capture(err)

	fb := b.fallback(err)
	if ferr := r.mount(fb, m.container, anchor, m.scope); ferr != nil {
		return r.escalate(m, ferr)
	}
	m.subtree = fb
	b.showingFallback = true
	return nil
}

// escalate stops a boundary whose fallback failed and hands err to the
// enclosing boundary. Inside mount or patch the error unwinds to the caller
// instead; a scheduled run with no enclosing boundary reports it once.
func (r *Renderer) escalate(m *mounted, err error) error {
	m.render.Dispose()
	if m.syncRun {
		return err
	}
	if outer := m.scope.nearestBoundary(); outer != nil {
		r.metrics.RenderError(true)
		r.logger.Debug("fallback error routed to enclosing boundary",
			"component", m.ref.Name, "error", err)
		outer.capture(err)
		return nil
	}
	return err
}

// discard unmounts a partially patched tree and the tree it was patched
// from. Nodes shared between them are released once.
func (r *Renderer) discard(trees ...*VNode) {
	for _, t := range trees {
		if t != nil {
			r.unmount(t, true)
		}
	}
}

func (r *Renderer) childScope(m *mounted) *scope {
	switch inst := m.instance.(type) {
	case *errorBoundary:
		// The fallback belongs to the enclosing boundary.
		if inst.showingFallback {
			return m.scope
		}
		return m.scope.withBoundary(inst)
	case *provider:
		if ctx, value := inst.binding(); ctx != nil {
			return m.scope.withValue(ctx, value)
		}
	}
	return m.scope
}

// patch updates the host tree from old to v and moves old's binding onto v.
func (r *Renderer) patch(old, v *VNode, container Node, sc *scope) error {
	if old == nil {
		return r.mount(v, container, nil, sc)
	}

	if !sameType(old, v) {
		anchor := r.nextSibling(old)
		r.unmount(old, true)
		return r.mount(v, container, anchor, sc)
	}

	switch v.Kind {
	case KindText:
		v.node = old.node
		if old.Text != v.Text {
			r.host.SetText(v.node, v.Text)
			r.metrics.TextUpdated()
		}
		return nil

	case KindComponent:
		if v.Comp.Kind == StatefulKind {
			return r.patchStateful(old, v, container, sc)
		}
		return r.patchFunc(old, v, container, sc)

	default:
		v.node = old.node
		v.listeners = old.listeners
		r.applyProps(v, old.Props, v.Props)
		return r.patchChildren(v.node, old, v, sc)
	}
}

func (r *Renderer) patchFunc(old, v *VNode, container Node, sc *scope) error {
	m := old.m
	if m == nil {
		return r.mount(v, container, r.nextSibling(old), sc)
	}
	v.m = m
	m.container = container
	m.scope = sc

	sub, err := r.callFunc(v.Comp, v.Props)
	if err != nil {
		return err
	}
	prev := m.subtree
	m.subtree = sub
	return r.patch(prev, sub, container, sc)
}

func (r *Renderer) patchStateful(old, v *VNode, container Node, sc *scope) error {
	m := old.m
	if m == nil || m.released {
		return r.mount(v, container, r.nextSibling(old), sc)
	}
	v.m = m

	b := m.instance.base()
	prevProps := b.props
	b.props = v.Props
	b.scope = sc
	m.scope = sc
	m.container = container

	m.syncRun = true
	err := m.render.Run()
	m.syncRun = false
	if err != nil {
		return err
	}

	if h, ok := m.instance.(Updater); ok {
		r.hook(m, "OnUpdate", func() { h.OnUpdate(prevProps) })
	}
	return nil
}

// unmount releases v depth first: listeners, component cleanups, the
// unmount hook and the render computation, then descendants. When detach is
// set the node is removed from its parent last; descendants of a detached
// node go with it.
func (r *Renderer) unmount(v *VNode, detach bool) {
	if v == nil {
		return
	}
	switch v.Kind {
	case KindComponent:
		m := v.m
		if m == nil {
			return
		}
		v.m = nil
		r.release(m, detach)

	case KindElement:
		n := v.node
		if n == nil {
			return
		}
		v.node = nil
		v.listeners = nil
		r.host.UnlistenAll(n)
		for _, c := range v.Children {
			r.unmount(c, false)
		}
		r.metrics.NodeUnmounted()
		if detach {
			r.remove(n)
		}

	case KindText:
		n := v.node
		if n == nil {
			return
		}
		v.node = nil
		r.metrics.NodeUnmounted()
		if detach {
			r.remove(n)
		}
	}
}

// release tears down a mounted component once, then unmounts its subtree.
func (r *Renderer) release(m *mounted, detach bool) {
	if !m.released {
		m.released = true
		if m.instance != nil {
			m.instance.base().runCleanups(func(p any) {
				r.logger.Debug("component cleanup panicked", "component", m.ref.Name, "panic", p)
			})
			if h, ok := m.instance.(Unmounter); ok {
				r.hook(m, "OnUnmount", h.OnUnmount)
			}
		}
		if m.render != nil {
			m.render.Dispose()
		}
	}
	r.unmount(m.subtree, detach)
}

func (r *Renderer) remove(n Node) {
	if p := r.host.Parent(n); p != nil {
		r.host.RemoveChild(p, n)
	}
}

func (r *Renderer) nextSibling(v *VNode) Node {
	if h := v.Handle(); h != nil {
		return r.host.NextSibling(h)
	}
	return nil
}

// callRender runs the instance's Render, converting panics and returned
// errors into *RenderError.
func (r *Renderer) callRender(m *mounted) (v *VNode, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(m.ref.Name, p, debug.Stack())
		}
	}()
	out := m.instance.Render()
	if e, ok := out.(error); ok {
		return nil, asRenderError(m.ref.Name, e)
	}
	return toVNode(out), nil
}

func (r *Renderer) callFunc(ref *ComponentRef, props Props) (v *VNode, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(ref.Name, p, debug.Stack())
		}
	}()
	if ref.fn == nil {
		return nil, &RenderError{Component: ref.Name, Err: ErrUnknownTag}
	}
	out := ref.fn(props)
	if e, ok := out.(error); ok {
		return nil, asRenderError(ref.Name, e)
	}
	return toVNode(out), nil
}

func (r *Renderer) construct(ref *ComponentRef, props Props) (c Component, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError(ref.Name, p, debug.Stack())
		}
	}()
	if ref.factory == nil {
		return nil, &RenderError{Component: ref.Name, Err: ErrUnknownTag}
	}
	c = ref.factory(props, r.sched)
	if c == nil {
		return nil, &RenderError{Component: ref.Name, Err: fmt.Errorf("factory returned nil")}
	}
	return c, nil
}

// hook runs a lifecycle hook; panics are logged and discarded.
func (r *Renderer) hook(m *mounted, name string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Debug("lifecycle hook panicked", "component", m.ref.Name, "hook", name, "panic", p)
		}
	}()
	fn()
}
