package demo

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/pkg/hosttree"
	"github.com/vango-dev/vtree/pkg/loop"
	"github.com/vango-dev/vtree/pkg/metrics"
	"github.com/vango-dev/vtree/pkg/reactive"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Options configures a Harness.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer

	// Fetch replaces the fetch section's fetcher.
	Fetch reactive.Fetcher[string]

	// Theme is the initial theme.
	Theme string

	// FlushLimit bounds Scheduler.Drain; 0 keeps the default.
	FlushLimit int
}

// Harness owns a document, loop, scheduler and renderer with the App
// mounted in the document body. It is not safe for concurrent use; every
// method must be called from the goroutine that created it.
type Harness struct {
	Doc      *hosttree.Document
	Loop     *loop.Loop
	Sched    *reactive.Scheduler
	Renderer *vdom.Renderer

	loaders []reactive.Loader
	errs    []error
}

// NewHarness builds the stack and renders the App.
func NewHarness(ctx context.Context, opts Options) (*Harness, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Harness{Doc: hosttree.NewDocument()}
	h.Loop = loop.New(loop.WithLogger(logger))

	sopts := []reactive.Option{
		reactive.WithExecutor(h.Loop),
		reactive.WithLogger(logger),
		reactive.WithMetrics(opts.Metrics),
		reactive.WithErrorHandler(func(err error) { h.errs = append(h.errs, err) }),
	}
	ropts := []vdom.Option{vdom.WithLogger(logger), vdom.WithMetrics(opts.Metrics)}
	if opts.Tracer != nil {
		sopts = append(sopts, reactive.WithTracer(opts.Tracer))
		ropts = append(ropts, vdom.WithTracer(opts.Tracer))
	}
	if opts.FlushLimit > 0 {
		sopts = append(sopts, reactive.WithFlushLimit(opts.FlushLimit))
	}
	h.Sched = reactive.NewScheduler(sopts...)
	h.Renderer = vdom.NewRenderer(h.Doc, h.Sched, ropts...)

	root := vdom.H(App, vdom.Props{
		"fetch":      opts.Fetch,
		"theme":      opts.Theme,
		"onResource": func(l reactive.Loader) { h.loaders = append(h.loaders, l) },
	})
	if err := h.Renderer.Render(ctx, root, h.Doc.Body()); err != nil {
		return nil, err
	}
	return h, nil
}

// Errors returns the errors reported by scheduled renders since the last
// call.
func (h *Harness) Errors() []error {
	errs := h.errs
	h.errs = nil
	return errs
}

// Settle runs the loop until it is idle and no resource is loading.
func (h *Harness) Settle(ctx context.Context) error {
	for {
		h.Loop.RunUntilIdle()
		if !h.loading() {
			return nil
		}
		if err := h.Loop.Wait(ctx); err != nil {
			return fmt.Errorf("demo: waiting for resources: %w", err)
		}
	}
}

func (h *Harness) loading() bool {
	for _, l := range h.loaders {
		if l.Loading() {
			return true
		}
	}
	return false
}

// Click dispatches a click on the first button in section whose text is
// label, then runs the loop until idle.
func (h *Harness) Click(section, label string) error {
	b := h.Button(section, label)
	if b == nil {
		return fmt.Errorf("demo: no button %q in section %q", label, section)
	}
	h.Doc.Click(b)
	h.Loop.RunUntilIdle()
	return nil
}

// Button finds a button by section id ("" for the whole document) and
// label.
func (h *Harness) Button(section, label string) *hosttree.Node {
	root := h.Doc.Body()
	if section != "" {
		root = root.FindByAttr("id", section)
		if root == nil {
			return nil
		}
	}
	return root.Find(func(n *hosttree.Node) bool {
		return n.Tag() == "button" && strings.TrimSpace(n.TextContent()) == label
	})
}

// Section returns the section element with the given id.
func (h *Harness) Section(id string) *hosttree.Node {
	return h.Doc.Body().FindByAttr("id", id)
}

// HTML returns the pretty-printed body contents.
func (h *Harness) HTML() string {
	var buf bytes.Buffer
	for _, c := range h.Doc.Body().Children() {
		_ = hosttree.WriteHTML(&buf, c, hosttree.HTMLOptions{Pretty: true, Indent: "  "})
		buf.WriteByte('\n')
	}
	return buf.String()
}

// Close unmounts the App and closes the loop.
func (h *Harness) Close() error {
	err := h.Renderer.Unmount(h.Doc.Body())
	h.Loop.RunUntilIdle()
	h.Loop.Close()
	return err
}
