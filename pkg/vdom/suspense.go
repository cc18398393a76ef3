package vdom

import "github.com/vango-dev/vtree/pkg/reactive"

const defaultLoadingText = "Loading..."

// Suspense renders a fallback while any of its resources is loading.
//
// Props:
//   - resource: a reactive.Loader, or resources: []reactive.Loader / []any
//   - fallback: *VNode, string, or func() any
//   - keepPrevious: after the first completed load, keep the children
//     visible during later reloads instead of showing the fallback
//   - children
var Suspense = Stateful("Suspense", func(Props, *reactive.Scheduler) Component {
	return &suspense{}
})

type suspense struct {
	Base

	completedOnce bool
}

func (s *suspense) Render() any {
	loaders := s.loaders()
	if len(loaders) == 0 {
		return s.children()
	}

	// Read every loader, not just up to the first loading one, so each
	// subscribes the render.
	loading := false
	for _, l := range loaders {
		if l.Loading() {
			loading = true
		}
	}

	if loading {
		if keep, _ := s.props.Get("keepPrevious").(bool); keep && s.completedOnce {
			return s.children()
		}
		return s.fallback()
	}
	s.completedOnce = true
	return s.children()
}

func (s *suspense) children() *VNode {
	return H("div", nil, s.Children())
}

func (s *suspense) fallback() (v *VNode) {
	switch fb := s.props.Get("fallback").(type) {
	case func() any:
		defer func() {
			if recover() != nil {
				v = Text(defaultLoadingText)
			}
		}()
		return toVNode(fb())
	case func() *VNode:
		defer func() {
			if recover() != nil {
				v = Text(defaultLoadingText)
			}
		}()
		return toVNode(fb())
	case nil:
		return Text("")
	default:
		return toVNode(fb)
	}
}

func (s *suspense) loaders() []reactive.Loader {
	var out []reactive.Loader
	add := func(v any) {
		if l, ok := v.(reactive.Loader); ok && l != nil {
			out = append(out, l)
		}
	}

	switch rs := s.props.Get("resources").(type) {
	case []reactive.Loader:
		for _, l := range rs {
			add(l)
		}
	case []any:
		for _, l := range rs {
			add(l)
		}
	case nil:
		add(s.props.Get("resource"))
	default:
		add(rs)
	}
	return out
}
