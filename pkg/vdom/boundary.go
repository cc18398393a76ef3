package vdom

import (
	"fmt"

	"github.com/vango-dev/vtree/pkg/reactive"
)

const (
	defaultFallbackText = "Something went wrong."
	brokenFallbackText  = "Error rendering fallback"
)

// ErrorBoundary catches render errors from its descendants and renders a
// fallback instead of its children.
//
// Props:
//   - fallback: func(err error, reset func()) any, func(error) any, *VNode
//     or string
//   - onError: func(error), called once per captured error
//   - resetKey or resetKeys: when the value changes while an error is shown,
//     the error is cleared and the children are rendered again
//   - children
var ErrorBoundary = Stateful("ErrorBoundary", func(_ Props, s *reactive.Scheduler) Component {
	return &errorBoundary{err: reactive.NewSignal[error](s, nil)}
})

// Boundary is implemented by mounted ErrorBoundary instances.
type Boundary interface {
	Component
	Err() error
	Reset()
}

type errorBoundary struct {
	Base

	err       *reactive.Signal[error]
	lastToken string

	// showingFallback is set while the mounted subtree is the fallback.
	showingFallback bool
}

func (b *errorBoundary) Render() any {
	token := b.resetToken()
	err := b.err.Get()
	if err != nil && token != b.lastToken {
		b.err.Set(nil)
		err = nil
	}
	b.lastToken = token

	b.showingFallback = err != nil
	if err != nil {
		return b.fallback(err)
	}
	return H("div", nil, b.Children())
}

// Err returns the captured error without subscribing.
func (b *errorBoundary) Err() error {
	return b.err.Peek()
}

// Reset clears the captured error; the children render again on the next
// flush.
func (b *errorBoundary) Reset() {
	b.err.Set(nil)
}

// capture records err and notifies the onError prop.
func (b *errorBoundary) capture(err error) {
	b.err.Set(err)
	if fn, ok := b.props.Get("onError").(func(error)); ok {
		func() {
			defer func() { _ = recover() }()
			fn(err)
		}()
	}
}

// fallback renders the fallback prop. A panicking fallback renders a fixed
// message instead.
func (b *errorBoundary) fallback(err error) (v *VNode) {
	defer func() {
		if recover() != nil {
			v = Text(brokenFallbackText)
		}
	}()

	switch fb := b.props.Get("fallback").(type) {
	case func(error, func()) any:
		return toVNode(fb(err, b.Reset))
	case func(error) any:
		return toVNode(fb(err))
	case func(error, func()) *VNode:
		return toVNode(fb(err, b.Reset))
	case func(error) *VNode:
		return toVNode(fb(err))
	case *VNode:
		if fb == nil {
			return Text(defaultFallbackText)
		}
		return fb
	case nil:
		return Text(defaultFallbackText)
	default:
		return toVNode(fb)
	}
}

func (b *errorBoundary) resetToken() string {
	if keys, ok := b.props["resetKeys"]; ok {
		return fmt.Sprintf("%#v", keys)
	}
	return fmt.Sprintf("%#v", b.props.Get("resetKey"))
}
