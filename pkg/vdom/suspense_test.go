package vdom_test

import (
	"context"
	"testing"
	"time"

	"github.com/vango-dev/vtree/pkg/reactive"
	. "github.com/vango-dev/vtree/pkg/vdom"
)

// settle waits for a resource completion to be posted to the loop and runs
// it along with the flushes it triggers.
func (f *fixture) settle() {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.loop.Wait(ctx); err != nil {
		f.t.Fatalf("Wait() error = %v", err)
	}
	f.flush()
}

// feed returns a resource whose fetches each take the next value sent on the
// returned channel.
func feed(t *testing.T, s *reactive.Scheduler) (*reactive.Resource[string], chan<- string) {
	t.Helper()
	values := make(chan string, 4)
	res := reactive.NewResource(s, func(ctx context.Context) (string, error) {
		select {
		case v := <-values:
			return v, nil
		case <-ctx.Done():
			return "", context.Cause(ctx)
		}
	})
	t.Cleanup(res.Cancel)
	return res, values
}

func TestSuspenseShowsFallbackWhileLoading(t *testing.T) {
	f := newFixture(t)
	res, values := feed(t, f.sched)
	show := Func("Show", func(Props) any { return H("p", nil, res.Data()) })
	tree := func(keep bool) *VNode {
		return H(Suspense, Props{"resource": res, "fallback": "loading", "keepPrevious": keep}, H(show, nil))
	}

	f.render(tree(false))
	if got := f.html(); got != "loading" {
		t.Fatalf("html = %q, want loading", got)
	}

	values <- "first"
	f.settle()
	if got, want := f.html(), "<div><p>first</p></div>"; got != want {
		t.Fatalf("html = %s, want %s", got, want)
	}

	res.Reload()
	f.flush()
	if got := f.html(); got != "loading" {
		t.Errorf("html during reload = %q, want loading", got)
	}

	values <- "second"
	f.settle()
	if got, want := f.html(), "<div><p>second</p></div>"; got != want {
		t.Errorf("html = %s, want %s", got, want)
	}
}

func TestSuspenseKeepPrevious(t *testing.T) {
	f := newFixture(t)
	res, values := feed(t, f.sched)
	show := Func("Show", func(Props) any { return H("p", nil, res.Data()) })

	f.render(H(Suspense, Props{
		"resource":     res,
		"fallback":     func() any { return H("i", nil, "wait") },
		"keepPrevious": true,
	}, H(show, nil)))
	if got := f.html(); got != "<i>wait</i>" {
		t.Fatalf("html = %s, want fallback before first load", got)
	}

	values <- "one"
	f.settle()
	p := f.root().Children()[0]

	res.Reload()
	f.flush()
	if got, want := f.html(), "<div><p>one</p></div>"; got != want {
		t.Errorf("html during reload = %s, want %s", got, want)
	}

	values <- "two"
	f.settle()
	if got, want := f.html(), "<div><p>two</p></div>"; got != want {
		t.Errorf("html = %s, want %s", got, want)
	}
	if f.root().Children()[0] != p {
		t.Error("children were remounted across the reload")
	}
}

func TestSuspenseWaitsForEveryResource(t *testing.T) {
	f := newFixture(t)
	a, av := feed(t, f.sched)
	b, bv := feed(t, f.sched)

	f.render(H(Suspense, Props{
		"resources": []reactive.Loader{a, b},
		"fallback":  "loading",
	}, H("p", nil, "ready")))

	bv <- "b"
	f.settle()
	if got := f.html(); got != "loading" {
		t.Errorf("html with one resource pending = %q, want loading", got)
	}

	av <- "a"
	f.settle()
	if got, want := f.html(), "<div><p>ready</p></div>"; got != want {
		t.Errorf("html = %s, want %s", got, want)
	}
}

func TestSuspenseWithoutResources(t *testing.T) {
	f := newFixture(t)
	f.render(H(Suspense, Props{"fallback": "loading"}, H("p", nil, "x")))
	if got, want := f.html(), "<div><p>x</p></div>"; got != want {
		t.Errorf("html = %s, want %s", got, want)
	}
}
