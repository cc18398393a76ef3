package vdom

import "github.com/vango-dev/vtree/pkg/reactive"

// Context carries a value down the component tree without threading it
// through props. Values are set by Provider and read with Base.UseContext.
type Context struct {
	name string
	def  any
}

// NewContext creates a context with a default value used when no Provider
// encloses the reader.
func NewContext(name string, def any) *Context {
	return &Context{name: name, def: def}
}

// Name returns the context name.
func (c *Context) Name() string {
	return c.name
}

// Default returns the default value.
func (c *Context) Default() any {
	return c.def
}

// Provider makes props["value"] the value of props["context"] for its
// children. Children are wrapped in a div.
var Provider = Stateful("Provider", func(Props, *reactive.Scheduler) Component {
	return &provider{}
})

type provider struct {
	Base
}

func (p *provider) Render() any {
	return H("div", nil, p.Children())
}

// binding returns the context and value the provider installs.
func (p *provider) binding() (*Context, any) {
	ctx, _ := p.props.Get("context").(*Context)
	return ctx, p.props.Get("value")
}
