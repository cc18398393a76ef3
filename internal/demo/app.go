package demo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/vango-dev/vtree/pkg/reactive"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// ThemeContext carries the current theme name to the sections.
var ThemeContext = vdom.NewContext("theme", "light")

// App is the root component.
//
// Props:
//   - fetch: reactive.Fetcher[string] used by the fetch section
//   - theme: initial theme, "light" or "dark"
//   - onResource: func(reactive.Loader), told about every resource created
var App = vdom.Stateful("App", func(p vdom.Props, s *reactive.Scheduler) vdom.Component {
	theme, _ := p.Get("theme").(string)
	if theme == "" {
		theme = "light"
	}
	return &app{theme: reactive.NewSignal(s, theme)}
})

type app struct {
	vdom.Base
	theme *reactive.Signal[string]
}

func (a *app) Render() any {
	theme := a.theme.Get()
	next := "dark"
	if theme == "dark" {
		next = "light"
	}

	return vdom.H("main", vdom.Props{"class": []string{"app", "theme-" + theme}},
		vdom.H("header", nil,
			vdom.H("h1", nil, "vtree demo"),
			vdom.H("button", vdom.Props{"onClick": func() { a.theme.Set(next) }}, "Theme: "+theme),
		),
		vdom.H(vdom.Provider, vdom.Props{"context": ThemeContext, "value": theme},
			section("counter", vdom.H(Counter, nil)),
			section("names", vdom.H(NamesList, nil)),
			section("fetch", vdom.H(FetchPage, vdom.Props{
				"fetch":      a.Props().Get("fetch"),
				"onResource": a.Props().Get("onResource"),
			})),
			section("errors", vdom.H(ErrorsPage, nil)),
		),
	)
}

func section(id string, content *vdom.VNode) *vdom.VNode {
	return vdom.H("section", vdom.Props{"id": id, "key": id}, content)
}

// ThemeBadge shows the theme from the nearest provider.
var ThemeBadge = vdom.Stateful("ThemeBadge", func(vdom.Props, *reactive.Scheduler) vdom.Component {
	return &themeBadge{}
})

type themeBadge struct {
	vdom.Base
}

func (b *themeBadge) Render() any {
	theme, _ := b.UseContext(ThemeContext).(string)
	return vdom.H("span", vdom.Props{"class": map[string]bool{"badge": true, "badge-dark": theme == "dark"}}, theme)
}

// Counter is a click counter.
var Counter = vdom.Stateful("Counter", func(_ vdom.Props, s *reactive.Scheduler) vdom.Component {
	return &counter{count: reactive.NewSignal(s, 0)}
})

type counter struct {
	vdom.Base
	count *reactive.Signal[int]
}

func (c *counter) Render() any {
	return vdom.H("div", vdom.Props{"class": "counter"},
		vdom.H("p", nil, fmt.Sprintf("Count: %d", c.count.Get())),
		vdom.H("button", vdom.Props{"on_click": func() { c.count.Update(func(n int) int { return n + 1 }) }}, "Increment"),
		vdom.H(ThemeBadge, nil),
	)
}

type name struct {
	id    int
	label string
}

// NamesList is a keyed list of names with a computed count of names
// starting with A.
var NamesList = vdom.Stateful("NamesList", func(_ vdom.Props, s *reactive.Scheduler) vdom.Component {
	l := &namesList{names: reactive.NewSignal[[]name](s, nil)}
	l.startsWithA = reactive.NewComputed(s, func() int {
		n := 0
		for _, e := range l.names.Get() {
			if len(e.label) > 0 && (e.label[0] == 'A' || e.label[0] == 'a') {
				n++
			}
		}
		return n
	})
	l.OnCleanup(l.startsWithA.Dispose)
	return l
})

type namesList struct {
	vdom.Base
	names       *reactive.Signal[[]name]
	startsWithA *reactive.Computed[int]
	nextID      int
}

func (l *namesList) add(label string) func() {
	return func() {
		l.nextID++
		id := l.nextID
		l.names.Update(func(names []name) []name {
			return append(slices.Clone(names), name{id: id, label: label})
		})
	}
}

func (l *namesList) reverse() {
	l.names.Update(func(names []name) []name {
		out := slices.Clone(names)
		slices.Reverse(out)
		return out
	})
}

func (l *namesList) Render() any {
	names := l.names.Get()
	return vdom.H("div", nil,
		vdom.H("p", nil, fmt.Sprintf("Total: %d | Starts with A: %d", len(names), l.startsWithA.Get())),
		vdom.H("div", vdom.Props{"class": "buttons"},
			vdom.H("button", vdom.Props{"onClick": l.add("Ada")}, "+ Ada"),
			vdom.H("button", vdom.Props{"onClick": l.add("Alan")}, "+ Alan"),
			vdom.H("button", vdom.Props{"onClick": l.add("Grace")}, "+ Grace"),
			vdom.H("button", vdom.Props{"onClick": l.reverse}, "Reverse"),
			vdom.H("button", vdom.Props{"onClick": func() { l.names.Set(nil) }}, "Clear"),
		),
		vdom.H("ul", nil, vdom.Range(names, func(n name, _ int) *vdom.VNode {
			return vdom.H("li", vdom.Props{"key": n.id, "data-id": n.id}, n.label)
		})),
	)
}

// FetchPage loads a value through a Resource and shows it under Suspense
// with keepPrevious, so reloads keep the last value on screen.
var FetchPage = vdom.Stateful("FetchPage", func(p vdom.Props, s *reactive.Scheduler) vdom.Component {
	fetch, _ := p.Get("fetch").(reactive.Fetcher[string])
	if fetch == nil {
		fetch = NewFetcher(50 * time.Millisecond)
	}
	res := reactive.NewResource(s, fetch)
	if fn, ok := p.Get("onResource").(func(reactive.Loader)); ok {
		fn(res)
	}
	return &fetchPage{res: res}
})

type fetchPage struct {
	vdom.Base
	res *reactive.Resource[string]
}

func (f *fetchPage) OnUnmount() {
	f.res.Cancel()
}

func (f *fetchPage) Render() any {
	var content any = "No data"
	if err := f.res.Error(); err != nil {
		content = vdom.H("p", vdom.Props{"class": "error"}, err.Error())
	} else if data := f.res.Data(); data != "" {
		content = vdom.H("p", nil, data)
	}

	return vdom.H("div", nil,
		vdom.H("h3", nil, "Async Fetch Demo"),
		vdom.H(vdom.Suspense, vdom.Props{
			"resource":     f.res,
			"fallback":     vdom.H("p", nil, "Loading..."),
			"keepPrevious": true,
		}, content),
		vdom.H("button", vdom.Props{"onClick": f.res.Reload}, "Reload"),
		vdom.H("button", vdom.Props{"onClick": f.res.Cancel}, "Cancel"),
	)
}

// NewFetcher returns a fetcher that answers after latency with a numbered
// todo title.
func NewFetcher(latency time.Duration) reactive.Fetcher[string] {
	var calls atomic.Int64
	return func(ctx context.Context) (string, error) {
		n := calls.Add(1)
		select {
		case <-time.After(latency):
			return fmt.Sprintf("Todo #%d: delectus aut autem", n), nil
		case <-ctx.Done():
			return "", context.Cause(ctx)
		}
	}
}

// ErrBoom is the error Bug renders when broken.
var ErrBoom = errors.New("Boom")

// Bug renders a paragraph, or ErrBoom when props["broken"] is true.
var Bug = vdom.Func("Bug", func(p vdom.Props) any {
	if broken, _ := p.Get("broken").(bool); broken {
		return ErrBoom
	}
	return vdom.H("p", nil, "Bug is behaving.")
})

// ErrorsPage wraps Bug in an ErrorBoundary keyed on the broken flag.
var ErrorsPage = vdom.Stateful("ErrorsPage", func(_ vdom.Props, s *reactive.Scheduler) vdom.Component {
	return &errorsPage{broken: reactive.NewSignal(s, false), caught: reactive.NewSignal(s, 0)}
})

type errorsPage struct {
	vdom.Base
	broken *reactive.Signal[bool]
	caught *reactive.Signal[int]
}

func (e *errorsPage) Render() any {
	broken := e.broken.Get()
	return vdom.H("div", nil,
		vdom.H("p", nil, fmt.Sprintf("Errors caught: %d", e.caught.Get())),
		vdom.H("button", vdom.Props{"onClick": func() { e.broken.Set(true) }}, "Break"),
		vdom.H("button", vdom.Props{"onClick": func() { e.broken.Set(false) }}, "Fix"),
		vdom.H(vdom.ErrorBoundary, vdom.Props{
			"resetKey": broken,
			"onError":  func(error) { e.caught.Update(func(n int) int { return n + 1 }) },
			"fallback": func(err error, reset func()) any {
				return vdom.H("div", vdom.Props{"style": map[string]string{"color": "crimson"}},
					"Caught error: "+err.Error(),
					vdom.H("button", vdom.Props{"onClick": reset}, "Retry"),
				)
			},
		}, vdom.H(Bug, vdom.Props{"broken": broken})),
	)
}
