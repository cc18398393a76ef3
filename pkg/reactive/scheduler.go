package reactive

import (
	"context"
	"log/slog"
	"time"

	"github.com/petermattis/goid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/pkg/loop"
	"github.com/vango-dev/vtree/pkg/metrics"
)

const (
	defaultTracerName = "github.com/vango-dev/vtree/pkg/reactive"

	// DefaultFlushLimit bounds the number of flushes a single Drain may run.
	DefaultFlushLimit = 10000
)

// Executor runs deferred work. Post must be safe to call from any goroutine;
// posted tasks must run one at a time, in order, on the goroutine that owns
// the Scheduler.
type Executor interface {
	Post(task func())
}

// Scheduler owns one reactive graph: the FIFO pending queue and its
// membership set, the batch depth and the current-reader slot.
type Scheduler struct {
	exec Executor

	queue   []*Computation
	pending map[*Computation]struct{}

	batchDepth     int
	current        *Computation
	flushRequested bool
	flushing       bool

	nextID uint64

	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	onError    func(error)
	flushLimit int
	owner      int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithExecutor sets the executor that flushes and resource completions are
// posted to. The default is a fresh loop.Loop, reachable through Executor.
func WithExecutor(exec Executor) Option {
	return func(s *Scheduler) {
		s.exec = exec
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics sets the collectors flushes are recorded to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for flush spans.
// The default resolves a tracer from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

// WithErrorHandler sets the function that receives errors returned by
// computations during a posted flush. The default logs them at Error level.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

// WithFlushLimit sets the maximum number of flushes one Drain may run.
func WithFlushLimit(n int) Option {
	return func(s *Scheduler) {
		s.flushLimit = n
	}
}

// WithAffinityCheck pins the scheduler to the goroutine that creates it.
// Running a computation or writing a signal from any other goroutine panics
// with ErrWrongGoroutine.
func WithAffinityCheck() Option {
	return func(s *Scheduler) {
		s.owner = goid.Get()
	}
}

// NewScheduler creates an empty reactive graph.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		pending:    make(map[*Computation]struct{}),
		flushLimit: DefaultFlushLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.exec == nil {
		s.exec = loop.New(loop.WithLogger(s.logger))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(defaultTracerName)
	}
	if s.onError == nil {
		s.onError = func(err error) {
			s.logger.Error("flush failed", "error", err)
		}
	}
	if s.flushLimit <= 0 {
		s.flushLimit = DefaultFlushLimit
	}
	return s
}

// Executor returns the executor flushes are posted to.
func (s *Scheduler) Executor() Executor {
	return s.exec
}

// Logger returns the scheduler's logger.
func (s *Scheduler) Logger() *slog.Logger {
	return s.logger
}

// Metrics returns the scheduler's collectors, possibly nil.
func (s *Scheduler) Metrics() *metrics.Metrics {
	return s.metrics
}

// Pending returns the number of computations waiting for a flush.
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Current returns the computation currently running, or nil.
func (s *Scheduler) Current() *Computation {
	return s.current
}

// Flush runs every computation that was pending when it started, in
// first-scheduled order. Computations scheduled while it runs are left for
// the next flush.
//
// If a computation returns an error, Flush stops and returns it. The
// computations it did not reach stay pending and another flush is requested.
func (s *Scheduler) Flush() error {
	return s.flush(context.Background())
}

// Drain flushes until no computation is pending. It returns ErrFlushLimit if
// the graph has not settled after the configured number of flushes.
func (s *Scheduler) Drain() error {
	if s.flushing {
		return nil
	}
	for i := 0; len(s.queue) > 0; i++ {
		if i >= s.flushLimit {
			return ErrFlushLimit
		}
		if err := s.flush(context.Background()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) flush(ctx context.Context) error {
	s.flushRequested = false
	if s.flushing || len(s.queue) == 0 {
		return nil
	}

	_, span := s.tracer.Start(ctx, "reactive.flush",
		trace.WithAttributes(attribute.Int("reactive.pending", len(s.queue))),
	)
	defer span.End()

	start := time.Now()
	snapshot := s.queue
	s.queue = nil
	s.flushing = true

	ran, err := s.runSnapshot(snapshot)

	s.metrics.ObserveFlush(time.Since(start), ran)
	span.SetAttributes(attribute.Int("reactive.ran", ran))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

// runSnapshot runs the pending members of snapshot. On an error or a panic
// the members it did not reach are requeued.
func (s *Scheduler) runSnapshot(snapshot []*Computation) (ran int, err error) {
	i := 0
	defer func() {
		s.flushing = false
		if err != nil || i < len(snapshot) {
			s.requeue(snapshot[i:])
		}
		if len(s.queue) > 0 && s.batchDepth == 0 {
			s.requestFlush()
		}
	}()
	for ; i < len(snapshot); i++ {
		c := snapshot[i]
		if _, ok := s.pending[c]; !ok {
			continue
		}
		delete(s.pending, c)
		if c.disposed {
			continue
		}
		ran++
		if err = c.Run(); err != nil {
			i++
			return ran, err
		}
	}
	return ran, nil
}

// requeue puts the unreached part of a failed flush back at the head of the
// queue, ahead of anything scheduled during the flush.
func (s *Scheduler) requeue(rest []*Computation) {
	head := make([]*Computation, 0, len(rest)+len(s.queue))
	for _, c := range rest {
		if _, ok := s.pending[c]; ok {
			head = append(head, c)
		}
	}
	seen := make(map[*Computation]struct{}, len(head))
	for _, c := range head {
		seen[c] = struct{}{}
	}
	for _, c := range s.queue {
		if _, dup := seen[c]; !dup {
			head = append(head, c)
		}
	}
	s.queue = head
}

func (s *Scheduler) enqueue(c *Computation) {
	if _, ok := s.pending[c]; ok {
		return
	}
	s.pending[c] = struct{}{}
	s.queue = append(s.queue, c)
	if s.batchDepth == 0 {
		s.requestFlush()
	}
}

func (s *Scheduler) dequeue(c *Computation) {
	delete(s.pending, c)
}

// requestFlush posts one flush task per burst.
func (s *Scheduler) requestFlush() {
	if s.flushRequested {
		return
	}
	s.flushRequested = true
	s.exec.Post(func() {
		if err := s.Flush(); err != nil {
			s.onError(err)
		}
	})
}

// Post runs task on the scheduler's executor.
func (s *Scheduler) Post(task func()) {
	s.exec.Post(task)
}

func (s *Scheduler) checkAffinity() {
	if s.owner != 0 && goid.Get() != s.owner {
		panic(ErrWrongGoroutine)
	}
}

func (s *Scheduler) newID() uint64 {
	s.nextID++
	return s.nextID
}
