package reactive

// source is the type-erased side of a Signal that a Computation depends on.
type source interface {
	unsubscribe(c *Computation)
}

// Computation is a tracked, re-runnable function. While it runs it is the
// scheduler's current reader, and every Signal it reads becomes a
// dependency. Dependencies are dropped and rebuilt on each run.
type Computation struct {
	s  *Scheduler
	id uint64
	fn func() error

	deps   []source
	depSet map[source]struct{}

	disposed  bool
	onDispose []func()
}

// NewComputation creates a computation without running it.
func NewComputation(s *Scheduler, fn func() error) *Computation {
	return &Computation{
		s:      s,
		id:     s.newID(),
		fn:     fn,
		depSet: make(map[source]struct{}),
	}
}

// ID returns the computation's identifier, unique within its scheduler.
func (c *Computation) ID() uint64 {
	return c.id
}

// Scheduler returns the scheduler that owns c.
func (c *Computation) Scheduler() *Scheduler {
	return c.s
}

// Disposed reports whether c has been disposed.
func (c *Computation) Disposed() bool {
	return c.disposed
}

// Deps returns the number of signals c read during its last run.
func (c *Computation) Deps() int {
	return len(c.deps)
}

// Run runs the body with c as the current reader. A disposed computation
// does nothing. The previous reader is restored even if the body panics.
func (c *Computation) Run() error {
	if c.disposed {
		return nil
	}
	c.s.checkAffinity()
	c.clearDeps()

	prev := c.s.current
	c.s.current = c
	defer func() { c.s.current = prev }()

	return c.fn()
}

// Schedule marks c pending. It is a no-op for a disposed or already pending
// computation. Outside a batch the scheduler requests a flush.
func (c *Computation) Schedule() {
	if c.disposed {
		return
	}
	c.s.enqueue(c)
}

// OnDispose registers fn to run when c is disposed.
// Callbacks run in reverse registration order.
func (c *Computation) OnDispose(fn func()) {
	if fn == nil {
		return
	}
	if c.disposed {
		c.runCleanup(fn)
		return
	}
	c.onDispose = append(c.onDispose, fn)
}

// Dispose unsubscribes c from its dependencies, removes it from the pending
// queue and runs its dispose callbacks. Panicking callbacks are logged and
// skipped. Dispose is idempotent.
func (c *Computation) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.clearDeps()
	c.s.dequeue(c)

	for len(c.onDispose) > 0 {
		last := len(c.onDispose) - 1
		fn := c.onDispose[last]
		c.onDispose = c.onDispose[:last]
		c.runCleanup(fn)
	}
}

func (c *Computation) runCleanup(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.s.logger.Debug("cleanup panicked", "computation", c.id, "panic", r)
		}
	}()
	fn()
}

func (c *Computation) track(src source) {
	if c.disposed {
		return
	}
	if _, ok := c.depSet[src]; ok {
		return
	}
	c.depSet[src] = struct{}{}
	c.deps = append(c.deps, src)
}

func (c *Computation) clearDeps() {
	for _, src := range c.deps {
		src.unsubscribe(c)
	}
	c.deps = c.deps[:0]
	clear(c.depSet)
}
