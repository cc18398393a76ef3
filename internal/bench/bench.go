package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/vango-dev/vtree/pkg/hosttree"
	"github.com/vango-dev/vtree/pkg/loop"
	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/reactive"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// ErrOrderMismatch is returned when a round leaves the list in the wrong
// order.
var ErrOrderMismatch = errors.New("bench: list order does not match keys")

// Options configures a run.
type Options struct {
	// Items is the list length.
	Items int
	// Rounds is the number of measured renders per case.
	Rounds int
	// Seed seeds the shuffle case.
	Seed uint64

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Items <= 0 {
		o.Items = 1000
	}
	if o.Rounds <= 0 {
		o.Rounds = 100
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Case names.
const (
	CaseReverse = "reverse"
	CaseShuffle = "shuffle"
)

// Run executes the reverse and shuffle cases.
func Run(ctx context.Context, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	report := newReport(opts)

	for _, name := range []string{CaseReverse, CaseShuffle} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := runCase(ctx, name, opts)
		if err != nil {
			return nil, fmt.Errorf("bench: %s: %w", name, err)
		}
		opts.Logger.Info("bench case finished",
			"case", name,
			"items", opts.Items,
			"rounds", opts.Rounds,
			"p50_ms", res.LatencyMS.P50,
			"mutations_per_round", res.MutationsPerRound,
		)
		report.Cases = append(report.Cases, res)
	}
	return report, nil
}

// fixture is one document with a keyed list mounted in it.
type fixture struct {
	doc      *hosttree.Document
	loop     *loop.Loop
	renderer *vdom.Renderer

	counting bool
	counts   mutationCounts
}

type mutationCounts struct {
	total   int
	inserts int
	removes int
}

func newFixture(logger *slog.Logger) *fixture {
	f := &fixture{doc: hosttree.NewDocument()}
	f.loop = loop.New(loop.WithLogger(logger))
	sched := reactive.NewScheduler(reactive.WithExecutor(f.loop), reactive.WithLogger(logger))
	f.renderer = vdom.NewRenderer(f.doc, sched, vdom.WithLogger(logger))
	f.doc.Observe(func(m protocol.Mutation) {
		if !f.counting {
			return
		}
		f.counts.total++
		switch m.Op {
		case protocol.MutInsert:
			f.counts.inserts++
		case protocol.MutRemove:
			f.counts.removes++
		}
	})
	return f
}

func (f *fixture) close() {
	_ = f.renderer.Unmount(f.doc.Body())
	f.loop.Close()
}

func view(keys []string) *vdom.VNode {
	return vdom.H("ul", nil, vdom.Range(keys, func(k string, _ int) *vdom.VNode {
		return vdom.H("li", vdom.Props{"key": k}, k)
	}))
}

func (f *fixture) render(ctx context.Context, keys []string) error {
	return f.renderer.Render(ctx, view(keys), f.doc.Body())
}

// measure renders keys with mutation counting on and returns the elapsed
// time.
func (f *fixture) measure(ctx context.Context, keys []string) (time.Duration, error) {
	f.counting = true
	start := time.Now()
	err := f.render(ctx, keys)
	elapsed := time.Since(start)
	f.counting = false
	if err != nil {
		return 0, err
	}
	return elapsed, f.verify(keys)
}

func (f *fixture) verify(keys []string) error {
	ul := f.doc.Body().FindByTag("ul")
	if ul == nil {
		return fmt.Errorf("%w: no list", ErrOrderMismatch)
	}
	items := ul.Children()
	if len(items) != len(keys) {
		return fmt.Errorf("%w: %d items, want %d", ErrOrderMismatch, len(items), len(keys))
	}
	for i, li := range items {
		if got := li.TextContent(); got != keys[i] {
			return fmt.Errorf("%w: item %d is %q, want %q", ErrOrderMismatch, i, got, keys[i])
		}
	}
	return nil
}

func runCase(ctx context.Context, name string, opts Options) (CaseResult, error) {
	f := newFixture(opts.Logger)
	defer f.close()

	base := make([]string, opts.Items)
	for i := range base {
		base[i] = "k" + strconv.Itoa(i)
	}
	if err := f.render(ctx, base); err != nil {
		return CaseResult{}, err
	}

	var next func() []string
	switch name {
	case CaseReverse:
		reversed := slices.Clone(base)
		slices.Reverse(reversed)

		// Warm up, then measure reverse and restore outside the timer.
		if err := f.render(ctx, reversed); err != nil {
			return CaseResult{}, err
		}
		next = func() []string { return reversed }
	case CaseShuffle:
		rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
		next = func() []string {
			order := slices.Clone(base)
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
			return order
		}
	default:
		return CaseResult{}, fmt.Errorf("unknown case %q", name)
	}

	latencies := make([]time.Duration, 0, opts.Rounds)
	for range opts.Rounds {
		if err := f.render(ctx, base); err != nil {
			return CaseResult{}, err
		}
		d, err := f.measure(ctx, next())
		if err != nil {
			return CaseResult{}, err
		}
		latencies = append(latencies, d)
	}

	return newCaseResult(name, latencies, f.counts), nil
}
