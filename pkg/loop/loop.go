// Package loop provides a single-goroutine task loop.
//
// The reactive scheduler is single-threaded: computations never run
// concurrently and the current-reader slot is a plain field. A Loop is the
// place where that thread lives. Any goroutine may Post a task; tasks only
// ever run on the goroutine that is draining the loop, in FIFO order.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

var (
	// ErrLoopRunning is returned when Run is called while the loop is already
	// being drained by another goroutine.
	ErrLoopRunning = errors.New("loop: already running")

	// ErrLoopClosed is returned by Run after Close.
	ErrLoopClosed = errors.New("loop: closed")
)

// PanicError wraps a panic recovered from a task.
type PanicError struct {
	Value any
	Stack []byte
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("loop: task panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Loop is a FIFO task queue drained by one goroutine at a time.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool

	// owner is the goroutine id currently draining the loop, 0 when idle.
	owner atomic.Int64

	idle    []func()
	onPanic func(*PanicError)
	logger  *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithPanicHandler sets the function called with panics recovered from tasks.
// The default handler logs the panic and its stack at Error level.
func WithPanicHandler(fn func(*PanicError)) Option {
	return func(l *Loop) {
		l.onPanic = fn
	}
}

// New creates an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.onPanic == nil {
		l.onPanic = func(p *PanicError) {
			l.logger.Error("task panic", "panic", p.Value, "stack", string(p.Stack))
		}
	}
	return l
}

// Post enqueues a task. It is safe to call from any goroutine, including
// from inside a running task. Posting to a closed loop drops the task.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// OnIdle registers fn to run every time the loop drains its queue.
// Idle hooks run on the loop goroutine and may Post more work.
func (l *Loop) OnIdle(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.idle = append(l.idle, fn)
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// OnLoop reports whether the caller is the goroutine draining the loop.
func (l *Loop) OnLoop() bool {
	return l.owner.Load() == goid.Get()
}

// RunUntilIdle runs queued tasks, including tasks they post, until the queue
// is empty. It returns the number of tasks run. Reentrant calls from inside a
// task run nothing and return 0.
func (l *Loop) RunUntilIdle() int {
	gid := goid.Get()
	if l.owner.Load() == gid {
		return 0
	}
	if !l.owner.CompareAndSwap(0, gid) {
		return 0
	}
	defer l.owner.Store(0)

	return l.drain()
}

// Wait blocks until at least one task is queued or ctx is done.
func (l *Loop) Wait(ctx context.Context) error {
	for {
		if l.Len() > 0 {
			return nil
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run drains the loop on the calling goroutine until ctx is done or the loop
// is closed.
func (l *Loop) Run(ctx context.Context) error {
	gid := goid.Get()
	if !l.owner.CompareAndSwap(0, gid) {
		return ErrLoopRunning
	}
	defer l.owner.Store(0)

	for {
		l.drain()

		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return ErrLoopClosed
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting tasks and wakes a running loop. Queued tasks are
// discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.tasks = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) drain() int {
	ran := 0
	for {
		task, ok := l.next()
		if !ok {
			if !l.runIdle() {
				return ran
			}
			continue
		}
		l.safeRun(task)
		ran++
	}
}

// runIdle runs the idle hooks and reports whether they posted more work.
func (l *Loop) runIdle() bool {
	l.mu.Lock()
	hooks := append([]func(){}, l.idle...)
	l.mu.Unlock()

	for _, fn := range hooks {
		l.safeRun(fn)
	}
	return l.Len() > 0
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, false
	}
	task := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return task, true
}

func (l *Loop) safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.onPanic(&PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	task()
}
