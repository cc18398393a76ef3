package reactive

import (
	"context"
	"fmt"

	"github.com/vango-dev/vtree/pkg/metrics"
)

// Fetcher loads a Resource value. ctx is canceled, with ErrCanceled as its
// cause, when the fetch is canceled or superseded by a reload.
type Fetcher[T any] func(ctx context.Context) (T, error)

// FetchFunc adapts a fetch function that takes no context.
func FetchFunc[T any](fn func() (T, error)) Fetcher[T] {
	return func(context.Context) (T, error) {
		return fn()
	}
}

// Loader is implemented by values that expose a reactive loading state.
type Loader interface {
	// Loading reports whether a load is in flight and subscribes the
	// current reader.
	Loading() bool
}

// Resource wraps an asynchronous fetch in three signals: data, error and
// loading. Every fetch captures a version; its outcome is committed only if
// the version is unchanged when it completes. Reload and Cancel both bump the
// version, so late completions are dropped before any signal is written.
type Resource[T any] struct {
	s       *Scheduler
	fetcher Fetcher[T]

	data    *Signal[T]
	err     *Signal[error]
	loading *Signal[bool]

	version uint64
	cancel  context.CancelCauseFunc
	parent  context.Context
}

// ResourceOption configures a Resource.
type ResourceOption func(*resourceConfig)

type resourceConfig struct {
	ctx  context.Context
	lazy bool
}

// WithContext sets the parent context of every fetch.
func WithContext(ctx context.Context) ResourceOption {
	return func(c *resourceConfig) {
		c.ctx = ctx
	}
}

// Lazy creates the resource without starting the first fetch.
func Lazy() ResourceOption {
	return func(c *resourceConfig) {
		c.lazy = true
	}
}

// NewResource creates a resource and starts its first fetch.
func NewResource[T any](s *Scheduler, fetcher Fetcher[T], opts ...ResourceOption) *Resource[T] {
	config := resourceConfig{ctx: context.Background()}
	for _, opt := range opts {
		opt(&config)
	}

	var zero T
	r := &Resource[T]{
		s:       s,
		fetcher: fetcher,
		data:    NewSignal(s, zero),
		err:     NewSignal[error](s, nil),
		loading: NewSignal(s, false),
		parent:  config.ctx,
	}
	if !config.lazy {
		r.Reload()
	}
	return r
}

// Data returns the last successfully fetched value and subscribes the
// current reader. It is the zero value until a fetch succeeds.
func (r *Resource[T]) Data() T {
	return r.data.Get()
}

// Error returns the error of the last completed fetch, or nil.
func (r *Resource[T]) Error() error {
	return r.err.Get()
}

// Loading reports whether a fetch is in flight.
func (r *Resource[T]) Loading() bool {
	return r.loading.Get()
}

// DataSignal returns the data signal.
func (r *Resource[T]) DataSignal() *Signal[T] { return r.data }

// ErrorSignal returns the error signal.
func (r *Resource[T]) ErrorSignal() *Signal[error] { return r.err }

// LoadingSignal returns the loading signal.
func (r *Resource[T]) LoadingSignal() *Signal[bool] { return r.loading }

// Version returns the current fetch version.
func (r *Resource[T]) Version() uint64 {
	return r.version
}

// Reload cancels any in-flight fetch and starts a new one. The last good
// data is kept; the error is cleared.
func (r *Resource[T]) Reload() {
	r.s.Batch(func() {
		r.Cancel()
		r.version++
		r.loading.Set(true)
		r.err.Set(nil)
	})

	ctx, cancel := context.WithCancelCause(r.parent)
	r.cancel = cancel
	version := r.version
	go r.run(ctx, version)
}

// Cancel invalidates the in-flight fetch, cancels its context and sets
// loading to false. Data and error are left as they are.
func (r *Resource[T]) Cancel() {
	r.version++
	if r.cancel != nil {
		r.cancel(ErrCanceled)
		r.cancel = nil
	}
	r.loading.Set(false)
}

func (r *Resource[T]) run(ctx context.Context, version uint64) {
	value, err := r.fetch(ctx)
	r.s.Post(func() {
		r.commit(version, value, err)
	})
}

func (r *Resource[T]) fetch(ctx context.Context) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reactive: resource fetch panic: %v", p)
		}
	}()
	return r.fetcher(ctx)
}

func (r *Resource[T]) commit(version uint64, value T, err error) {
	if version != r.version {
		r.s.metrics.ResourceFetch(metrics.OutcomeDiscarded)
		return
	}
	if r.cancel != nil {
		r.cancel(nil)
		r.cancel = nil
	}

	r.s.Batch(func() {
		if err != nil {
			r.s.metrics.ResourceFetch(metrics.OutcomeError)
			r.err.Set(err)
		} else {
			r.s.metrics.ResourceFetch(metrics.OutcomeSuccess)
			r.err.Set(nil)
			r.data.Set(value)
		}
		r.loading.Set(false)
	})
}
