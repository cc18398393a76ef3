package reactive

// Computed is a derived value: a Computation that writes a private Signal.
// Get reads that Signal, so a Computed settles in the same flush as the
// values it derives from and its readers are scheduled only when the derived
// value changes.
type Computed[T any] struct {
	comp *Computation
	sig  *Signal[T]
}

// NewComputed creates a derived value and computes it immediately.
func NewComputed[T any](s *Scheduler, fn func() T) *Computed[T] {
	var zero T
	c := &Computed[T]{sig: NewSignal(s, zero)}
	c.comp = NewComputation(s, func() error {
		c.sig.Set(fn())
		return nil
	})
	_ = c.comp.Run()
	return c
}

// WithEquals sets the equality used to decide whether a recomputed value
// changed.
func (c *Computed[T]) WithEquals(fn func(T, T) bool) *Computed[T] {
	c.sig.WithEquals(fn)
	return c
}

// Get returns the derived value and subscribes the current reader.
func (c *Computed[T]) Get() T {
	return c.sig.Get()
}

// Peek returns the derived value without subscribing.
func (c *Computed[T]) Peek() T {
	return c.sig.Peek()
}

// Computation returns the computation that derives the value.
func (c *Computed[T]) Computation() *Computation {
	return c.comp
}

// Dispose stops recomputing. The last value stays readable.
func (c *Computed[T]) Dispose() {
	c.comp.Dispose()
}
