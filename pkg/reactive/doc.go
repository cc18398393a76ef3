// Package reactive implements a dependency-tracking reactive graph.
//
// The graph has three kinds of nodes:
//
//   - Signal: a mutable cell. Reading it inside a running Computation
//     subscribes that Computation.
//   - Computation: a re-runnable function. Its dependency set is rebuilt on
//     every run, so dependencies may change from run to run.
//   - Computed: a Computation that writes a private Signal, read like any
//     other Signal.
//
// All nodes belong to a Scheduler. The Scheduler owns the pending queue, the
// batch depth and the current-reader slot; there is no package-level state,
// so independent graphs (one per test, one per document) never interfere.
//
// A write marks subscribers pending. Pending computations run in a flush,
// in the order they were first scheduled. A flush is requested once per
// burst of writes by posting a task to the Scheduler's Executor, and runs
// only the computations pending when it starts; anything scheduled during a
// flush runs in the next one.
//
// # Threading
//
// A Scheduler is single-threaded. Computations never run concurrently and
// Signals are not locked. Work from other goroutines (for example Resource
// fetch completions) is marshalled onto the Executor before it touches any
// Signal.
//
// # Example
//
//	l := loop.New()
//	s := reactive.NewScheduler(reactive.WithExecutor(l))
//
//	count := reactive.NewSignal(s, 0)
//	double := reactive.NewComputed(s, func() int { return count.Get() * 2 })
//	reactive.Effect(s, func() error {
//	    fmt.Println("double =", double.Get())
//	    return nil
//	})
//
//	count.Set(2)
//	l.RunUntilIdle() // prints "double = 4"
package reactive
