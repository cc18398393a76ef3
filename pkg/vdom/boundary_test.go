package vdom_test

import (
	"errors"
	"testing"

	"github.com/vango-dev/vtree/pkg/reactive"
	. "github.com/vango-dev/vtree/pkg/vdom"
)

func failedFallback(err error) any {
	return H("p", nil, "failed")
}

func TestErrorBoundaryCatchesMountError(t *testing.T) {
	f := newFixture(t)
	var caught []error
	boom := Func("Boom", func(Props) any { panic("kaboom") })

	f.render(H("section", nil,
		H(ErrorBoundary, Props{
			"fallback": failedFallback,
			"onError":  func(err error) { caught = append(caught, err) },
		}, H(boom, nil)),
	))
	f.flush()

	if got, want := f.html(), "<section><p>failed</p></section>"; got != want {
		t.Errorf("html = %s, want %s", got, want)
	}
	if len(caught) != 1 {
		t.Fatalf("onError calls = %d, want 1", len(caught))
	}
	var re *RenderError
	if !errors.As(caught[0], &re) || re.Component != "Boom" {
		t.Errorf("caught = %v, want RenderError from Boom", caught[0])
	}
	if len(f.errs) != 0 {
		t.Errorf("scheduler errors = %v, want none", f.errs)
	}
	// section, the discarded div, and the fallback p mounted once.
	if s := f.doc.Stats(); s.ElementsCreated != 3 {
		t.Errorf("ElementsCreated = %d, want 3", s.ElementsCreated)
	}
}

func TestErrorBoundaryCatchesScheduledError(t *testing.T) {
	f := newFixture(t)
	var caught []error
	var fail *reactive.Signal[bool]
	flakyRef := Stateful("Flaky", func(_ Props, s *reactive.Scheduler) Component {
		fail = reactive.NewSignal(s, false)
		return &flaky{fail: fail}
	})

	f.render(H(ErrorBoundary, Props{
		"fallback": failedFallback,
		"onError":  func(err error) { caught = append(caught, err) },
	}, H(flakyRef, nil)))
	if got, want := f.html(), "<div><span>ok</span></div>"; got != want {
		t.Fatalf("html = %s, want %s", got, want)
	}

	fail.Set(true)
	f.flush()

	if got, want := f.html(), "<p>failed</p>"; got != want {
		t.Errorf("html = %s, want %s", got, want)
	}
	if len(caught) != 1 {
		t.Errorf("onError calls = %d, want 1", len(caught))
	}
	if len(f.errs) != 0 {
		t.Errorf("scheduler errors = %v, want none", f.errs)
	}
}

func TestErrorBoundaryResetKey(t *testing.T) {
	f := newFixture(t)
	failing := true
	maybe := Func("Maybe", func(Props) any {
		if failing {
			return errors.New("not yet")
		}
		return H("span", nil, "ok")
	})
	tree := func(key int) *VNode {
		return H(ErrorBoundary, Props{"fallback": failedFallback, "resetKey": key}, H(maybe, nil))
	}

	f.render(tree(0))
	f.flush()
	if got := f.html(); got != "<p>failed</p>" {
		t.Fatalf("html = %s, want fallback", got)
	}

	// Same key: the error stays.
	failing = false
	f.render(tree(0))
	if got := f.html(); got != "<p>failed</p>" {
		t.Errorf("html with unchanged key = %s, want fallback", got)
	}

	f.render(tree(1))
	f.flush()
	if got, want := f.html(), "<div><span>ok</span></div>"; got != want {
		t.Errorf("html after key change = %s, want %s", got, want)
	}
	b, ok := f.r.Root(f.doc.Body()).Instance().(Boundary)
	if !ok {
		t.Fatal("root instance is not a Boundary")
	}
	if b.Err() != nil {
		t.Errorf("Err() = %v, want nil", b.Err())
	}
}

func TestErrorBoundaryResetFunc(t *testing.T) {
	f := newFixture(t)
	failing := true
	maybe := Func("Maybe", func(Props) any {
		if failing {
			panic(errors.New("boom"))
		}
		return H("span", nil, "ok")
	})
	var reset func()

	f.render(H(ErrorBoundary, Props{
		"fallback": func(err error, r func()) any {
			reset = r
			return H("button", nil, "retry: ", err.Error())
		},
	}, H(maybe, nil)))
	f.flush()

	if got, want := f.html(), "<button>retry: vdom: render Maybe: boom</button>"; got != want {
		t.Fatalf("html = %s, want %s", got, want)
	}

	failing = false
	reset()
	f.flush()
	if got, want := f.html(), "<div><span>ok</span></div>"; got != want {
		t.Errorf("html after reset = %s, want %s", got, want)
	}
}

func TestErrorBoundaryDefaultAndBrokenFallback(t *testing.T) {
	f := newFixture(t)
	boom := Func("Boom", func(Props) any { panic("x") })

	f.render(H(ErrorBoundary, nil, H(boom, nil)))
	if got := f.html(); got != "Something went wrong." {
		t.Errorf("default fallback = %q", got)
	}

	g := newFixture(t)
	g.render(H(ErrorBoundary, Props{
		"fallback": func(error) any { panic("fallback broke") },
	}, H(boom, nil)))
	if got := g.html(); got != "Error rendering fallback" {
		t.Errorf("broken fallback = %q", got)
	}
}

func TestNestedBoundaryCatchesFirst(t *testing.T) {
	f := newFixture(t)
	var outer, inner int
	boom := Func("Boom", func(Props) any { panic("x") })

	f.render(H(ErrorBoundary, Props{
		"fallback": "outer",
		"onError":  func(error) { outer++ },
	},
		H("span", nil, "sibling"),
		H(ErrorBoundary, Props{
			"fallback": "inner",
			"onError":  func(error) { inner++ },
		}, H(boom, nil)),
	))
	f.flush()

	if got, want := f.html(), "<div><span>sibling</span>inner</div>"; got != want {
		t.Errorf("html = %s, want %s", got, want)
	}
	if outer != 0 || inner != 1 {
		t.Errorf("outer = %d, inner = %d, want 0, 1", outer, inner)
	}
}

func TestFailingFallbackEscalatesToOuterBoundary(t *testing.T) {
	f := newFixture(t)
	var outer, inner []error
	boom := Func("Boom", func(Props) any { panic("fallback broke") })
	var fail *reactive.Signal[bool]
	flakyRef := Stateful("Flaky", func(_ Props, s *reactive.Scheduler) Component {
		fail = reactive.NewSignal(s, false)
		return &flaky{fail: fail}
	})

	f.render(H(ErrorBoundary, Props{
		"fallback": "outer",
		"onError":  func(err error) { outer = append(outer, err) },
	},
		H(ErrorBoundary, Props{
			"fallback": func(error) any { return H(boom, nil) },
			"onError":  func(err error) { inner = append(inner, err) },
		}, H(flakyRef, nil)),
	))
	if got, want := f.html(), "<div><div><span>ok</span></div></div>"; got != want {
		t.Fatalf("html = %s, want %s", got, want)
	}

	fail.Set(true)
	f.flush()

	if got := f.html(); got != "outer" {
		t.Errorf("html = %q, want outer fallback", got)
	}
	if len(inner) != 1 || len(outer) != 1 {
		t.Fatalf("onError calls: inner = %d, outer = %d, want 1, 1", len(inner), len(outer))
	}
	var re *RenderError
	if !errors.As(outer[0], &re) || re.Component != "Boom" {
		t.Errorf("outer caught %v, want RenderError from Boom", outer[0])
	}
	if n := f.sched.Pending(); n != 0 {
		t.Errorf("Pending() = %d, want 0", n)
	}
	if len(f.errs) != 0 {
		t.Errorf("scheduler errors = %v, want none", f.errs)
	}
}

func TestFailingFallbackOnMountEscalates(t *testing.T) {
	f := newFixture(t)
	var outer, inner int
	boom := Func("Boom", func(Props) any { panic("x") })

	f.render(H(ErrorBoundary, Props{
		"fallback": "outer",
		"onError":  func(error) { outer++ },
	},
		H(ErrorBoundary, Props{
			"fallback": func(error) any { return H(boom, nil) },
			"onError":  func(error) { inner++ },
		}, H(boom, nil)),
	))
	f.flush()

	if got := f.html(); got != "outer" {
		t.Errorf("html = %q, want outer fallback", got)
	}
	if outer != 1 || inner != 1 {
		t.Errorf("outer = %d, inner = %d, want 1, 1", outer, inner)
	}
	if n := f.sched.Pending(); n != 0 {
		t.Errorf("Pending() = %d, want 0", n)
	}
}

func TestFailingFallbackWithoutOuterBoundaryReportsOnce(t *testing.T) {
	f := newFixture(t)
	var caught int
	boom := Func("Boom", func(Props) any { panic("x") })
	var fail *reactive.Signal[bool]
	flakyRef := Stateful("Flaky", func(_ Props, s *reactive.Scheduler) Component {
		fail = reactive.NewSignal(s, false)
		return &flaky{fail: fail}
	})

	f.render(H("main", nil, H(ErrorBoundary, Props{
		"fallback": func(error) any { return H(boom, nil) },
		"onError":  func(error) { caught++ },
	}, H(flakyRef, nil))))

	fail.Set(true)
	f.flush()

	if caught != 1 {
		t.Errorf("onError calls = %d, want 1", caught)
	}
	if len(f.errs) != 1 {
		t.Fatalf("scheduler errors = %d, want 1", len(f.errs))
	}
	if got := f.html(); got != "<main></main>" {
		t.Errorf("html = %s, want the boundary's nodes removed", got)
	}
	if n := f.sched.Pending(); n != 0 {
		t.Errorf("Pending() = %d, want 0", n)
	}
}

func TestFallbackErrorsGoToOuterBoundary(t *testing.T) {
	f := newFixture(t)
	var outer, inner int
	boom := Func("Boom", func(Props) any { panic("x") })
	var fail *reactive.Signal[bool]
	flakyRef := Stateful("Flaky", func(_ Props, s *reactive.Scheduler) Component {
		fail = reactive.NewSignal(s, false)
		return &flaky{fail: fail}
	})

	f.render(H(ErrorBoundary, Props{
		"fallback": "outer",
		"onError":  func(error) { outer++ },
	},
		H(ErrorBoundary, Props{
			"fallback": func(error) any { return H(flakyRef, nil) },
			"onError":  func(error) { inner++ },
		}, H(boom, nil)),
	))
	// The inner boundary re-renders after capturing and patches its
	// fallback in place.
	f.flush()
	if got, want := f.html(), "<div><span>ok</span></div>"; got != want {
		t.Fatalf("html = %s, want %s", got, want)
	}

	fail.Set(true)
	f.flush()

	if got := f.html(); got != "outer" {
		t.Errorf("html = %q, want outer fallback", got)
	}
	if outer != 1 || inner != 1 {
		t.Errorf("outer = %d, inner = %d, want 1, 1", outer, inner)
	}
}
