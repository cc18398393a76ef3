package vdom_test

import (
	"fmt"
	"testing"

	"github.com/vango-dev/vtree/pkg/reactive"
	. "github.com/vango-dev/vtree/pkg/vdom"
)

var theme = NewContext("theme", "light")

type themed struct {
	Base
}

func (c *themed) Render() any {
	return H("span", nil, c.UseContext(theme))
}

var themedRef = Stateful("Themed", func(Props, *reactive.Scheduler) Component {
	return &themed{}
})

func TestContextDefaultAndProvider(t *testing.T) {
	f := newFixture(t)
	f.render(H("main", nil,
		H(themedRef, nil),
		H(Provider, Props{"context": theme, "value": "dark"},
			H(themedRef, nil),
			H(Provider, Props{"context": theme, "value": "blue"}, H(themedRef, nil)),
		),
	))

	want := "<main><span>light</span><div><span>dark</span><div><span>blue</span></div></div></main>"
	if got := f.html(); got != want {
		t.Errorf("html = %s, want %s", got, want)
	}
}

func TestProviderValueChangeReachesPatchedChildren(t *testing.T) {
	f := newFixture(t)
	tree := func(v string) *VNode {
		return H(Provider, Props{"context": theme, "value": v}, H(themedRef, nil))
	}
	f.render(tree("dark"))
	f.render(tree("dim"))

	if got, want := f.html(), "<div><span>dim</span></div>"; got != want {
		t.Errorf("html = %s, want %s", got, want)
	}
}

type lifecycle struct {
	Base
	log *[]string
}

func (c *lifecycle) Render() any { return H("i", nil) }
func (c *lifecycle) OnMount()    { *c.log = append(*c.log, "mount") }
func (c *lifecycle) OnUnmount()  { *c.log = append(*c.log, "unmount") }

func TestCleanupOrder(t *testing.T) {
	f := newFixture(t)
	var log []string
	ref := Stateful("Lifecycle", func(_ Props, s *reactive.Scheduler) Component {
		c := &lifecycle{log: &log}
		c.OnCleanup(func() { log = append(log, "cleanup 1") })
		c.OnCleanup(func() { panic("ignored") })
		c.OnCleanup(func() { log = append(log, "cleanup 3") })
		return c
	})

	f.render(H("div", nil, H(ref, nil)))
	f.render(H("div", nil))
	f.render(H("div", nil))

	if got, want := fmt.Sprint(log), "[mount cleanup 3 cleanup 1 unmount]"; got != want {
		t.Errorf("log = %s, want %s", got, want)
	}
}
