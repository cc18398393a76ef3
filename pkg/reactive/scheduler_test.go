package reactive

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/vtree/pkg/metrics"
)

func TestFlushOrder(t *testing.T) {
	t.Run("subscribers run first-scheduled first", func(t *testing.T) {
		s, l := newTestScheduler(t)
		log := []string{}
		count := NewSignal(s, 0)

		for _, name := range []string{"a", "b", "c"} {
			name := name
			_, _ = Effect(s, func() error {
				count.Get()
				log = append(log, name)
				return nil
			})
		}
		log = log[:0]

		count.Set(1)
		l.RunUntilIdle()
		assert.Equal(t, []string{"a", "b", "c"}, log)
	})

	t.Run("one flush per burst", func(t *testing.T) {
		s, l := newTestScheduler(t)
		a := NewSignal(s, 0)
		b := NewSignal(s, 0)
		_, _ = Effect(s, func() error { a.Get(); return nil })
		_, _ = Effect(s, func() error { b.Get(); return nil })

		a.Set(1)
		b.Set(1)
		assert.Equal(t, 1, l.Len(), "a single flush task is posted")
		assert.Equal(t, 2, s.Pending())
	})

	t.Run("work scheduled during a flush runs in the next flush", func(t *testing.T) {
		s, _ := newTestScheduler(t)
		log := []string{}
		src := NewSignal(s, 0)
		mid := NewSignal(s, 0)

		_, _ = Effect(s, func() error {
			v := src.Get()
			log = append(log, fmt.Sprintf("first %d", v))
			mid.Set(v)
			return nil
		})
		_, _ = Effect(s, func() error {
			log = append(log, fmt.Sprintf("second %d", mid.Get()))
			return nil
		})
		log = log[:0]

		src.Set(5)
		require.NoError(t, s.Flush())
		assert.Equal(t, []string{"first 5"}, log)
		assert.Equal(t, 1, s.Pending())

		require.NoError(t, s.Flush())
		assert.Equal(t, []string{"first 5", "second 5"}, log)
	})

	t.Run("pending computation rescheduled before its turn runs once", func(t *testing.T) {
		s, _ := newTestScheduler(t)
		a := NewSignal(s, 0)
		b := NewSignal(s, 0)
		runs := 0

		_, _ = Effect(s, func() error {
			if a.Get() == 1 {
				b.Set(1)
			}
			return nil
		})
		_, _ = Effect(s, func() error {
			a.Get()
			b.Get()
			runs++
			return nil
		})
		runs = 0

		a.Set(1)
		require.NoError(t, s.Drain())
		assert.Equal(t, 1, runs)
	})
}

func TestBatch(t *testing.T) {
	t.Run("subscribers see only the final value once", func(t *testing.T) {
		s, l := newTestScheduler(t)
		log := []string{}
		count := NewSignal(s, 0)
		_, _ = Effect(s, func() error {
			log = append(log, fmt.Sprintf("count %d", count.Get()))
			return nil
		})

		s.Batch(func() {
			count.Set(10)
			count.Set(20)
			assert.Equal(t, 0, l.Len(), "no flush inside a batch")
			log = append(log, "updated")
		})
		l.RunUntilIdle()

		assert.Equal(t, []string{"count 0", "updated", "count 20"}, log)
	})

	t.Run("nested batches flush once after the outermost", func(t *testing.T) {
		s, l := newTestScheduler(t)
		runs := 0
		a := NewSignal(s, 0)
		b := NewSignal(s, 0)
		_, _ = Effect(s, func() error {
			a.Get()
			b.Get()
			runs++
			return nil
		})

		s.Batch(func() {
			a.Set(1)
			s.Batch(func() {
				b.Set(1)
			})
			assert.True(t, s.Batching())
			assert.Equal(t, 0, l.Len())
		})
		assert.False(t, s.Batching())
		assert.Equal(t, 1, l.Len())

		l.RunUntilIdle()
		assert.Equal(t, 2, runs)
	})

	t.Run("begin batch end is idempotent", func(t *testing.T) {
		s, _ := newTestScheduler(t)
		end := s.BeginBatch()
		end()
		end()
		assert.False(t, s.Batching())
	})

	t.Run("batch ends when fn panics", func(t *testing.T) {
		s, _ := newTestScheduler(t)
		assert.Panics(t, func() {
			s.Batch(func() { panic("boom") })
		})
		assert.False(t, s.Batching())
	})
}

func TestFlushErrors(t *testing.T) {
	boom := errors.New("boom")
	s, _ := newTestScheduler(t)
	fail := NewSignal(s, false)
	log := []string{}

	_, _ = Effect(s, func() error {
		if fail.Get() {
			log = append(log, "fail")
			return boom
		}
		return nil
	})
	_, _ = Effect(s, func() error {
		fail.Get()
		log = append(log, "after")
		return nil
	})
	log = log[:0]

	fail.Set(true)
	err := s.Flush()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"fail"}, log)
	assert.Equal(t, 1, s.Pending(), "unreached computation stays pending")

	require.NoError(t, s.Flush())
	assert.Equal(t, []string{"fail", "after"}, log)
}

func TestPostedFlushErrorsReachHandler(t *testing.T) {
	boom := errors.New("boom")
	var got []error
	s, l := newTestScheduler(t, WithErrorHandler(func(err error) { got = append(got, err) }))

	sig := NewSignal(s, 0)
	_, _ = Effect(s, func() error {
		if sig.Get() > 0 {
			return boom
		}
		return nil
	})

	sig.Set(1)
	l.RunUntilIdle()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], boom)
}

func TestFlushPanicKeepsSchedulerUsable(t *testing.T) {
	s, _ := newTestScheduler(t)
	sig := NewSignal(s, 0)
	runs := 0
	_, _ = Effect(s, func() error {
		if sig.Get() == 1 {
			panic("boom")
		}
		return nil
	})
	_, _ = Effect(s, func() error {
		sig.Get()
		runs++
		return nil
	})
	runs = 0

	sig.Set(1)
	assert.Panics(t, func() { _ = s.Flush() })
	assert.Nil(t, s.Current(), "reader restored after panic")

	require.NoError(t, s.Flush())
	assert.Equal(t, 1, runs)
}

func TestDrainLimit(t *testing.T) {
	s, _ := newTestScheduler(t, WithFlushLimit(5))
	sig := NewSignal(s, 0)
	_, _ = Effect(s, func() error {
		sig.Set(sig.Get() + 1)
		return nil
	})

	assert.ErrorIs(t, s.Drain(), ErrFlushLimit)
}

func TestDispose(t *testing.T) {
	t.Run("disposed computation never reruns", func(t *testing.T) {
		s, l := newTestScheduler(t)
		sig := NewSignal(s, 0)
		runs := 0
		c, _ := Effect(s, func() error {
			sig.Get()
			runs++
			return nil
		})

		sig.Set(1)
		c.Dispose()
		assert.Equal(t, 0, s.Pending(), "pruned from the queue")
		assert.Equal(t, 0, sig.Subscribers())

		sig.Set(2)
		l.RunUntilIdle()
		assert.Equal(t, 1, runs)
		assert.True(t, c.Disposed())
		assert.NoError(t, c.Run())
	})

	t.Run("callbacks run in reverse order and panics are swallowed", func(t *testing.T) {
		s, _ := newTestScheduler(t)
		log := []string{}
		c, _ := Effect(s, func() error {
			OnEffectCleanup(s, func() { log = append(log, "first") })
			OnEffectCleanup(s, func() { panic("bad cleanup") })
			OnEffectCleanup(s, func() { log = append(log, "third") })
			return nil
		})

		assert.NotPanics(t, c.Dispose)
		c.Dispose()
		assert.Equal(t, []string{"third", "first"}, log)
	})

	t.Run("cleanup outside a computation is rejected", func(t *testing.T) {
		s, _ := newTestScheduler(t)
		assert.False(t, OnEffectCleanup(s, func() {}))
	})
}

func TestComputed(t *testing.T) {
	t.Run("derives and settles within one drain", func(t *testing.T) {
		s, l := newTestScheduler(t)
		count := NewSignal(s, 2)
		double := NewComputed(s, func() int { return count.Get() * 2 })
		quad := NewComputed(s, func() int { return double.Get() * 2 })
		log := []int{}
		_, _ = Effect(s, func() error {
			log = append(log, quad.Get())
			return nil
		})

		count.Set(3)
		l.RunUntilIdle()
		assert.Equal(t, []int{8, 12}, log)
		assert.Equal(t, 6, double.Peek())
	})

	t.Run("unchanged derived value does not notify", func(t *testing.T) {
		s, l := newTestScheduler(t)
		n := NewSignal(s, 2)
		even := NewComputed(s, func() bool { return n.Get()%2 == 0 })
		runs := 0
		_, _ = Effect(s, func() error {
			even.Get()
			runs++
			return nil
		})

		n.Set(4)
		l.RunUntilIdle()
		assert.Equal(t, 1, runs)
	})

	t.Run("disposed computed keeps its last value", func(t *testing.T) {
		s, l := newTestScheduler(t)
		n := NewSignal(s, 1)
		c := NewComputed(s, func() int { return n.Get() + 1 })
		c.Dispose()
		n.Set(5)
		l.RunUntilIdle()
		assert.Equal(t, 2, c.Get())
	})
}

func TestFlushMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("rx"))
	s, l := newTestScheduler(t, WithMetrics(m))

	sig := NewSignal(s, 0)
	_, _ = Effect(s, func() error { sig.Get(); return nil })
	sig.Set(1)
	l.RunUntilIdle()

	n, err := testutil.GatherAndCount(reg, "rx_flushes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
