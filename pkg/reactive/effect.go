package reactive

// Effect creates a computation running fn and runs it once immediately.
// It re-runs whenever a signal it read changes. The error from the first run
// is returned; errors from later runs surface from the flush that ran them.
func Effect(s *Scheduler, fn func() error) (*Computation, error) {
	c := NewComputation(s, fn)
	return c, c.Run()
}

// OnEffectCleanup registers fn to run when the current computation is
// disposed. It reports false when called outside a computation.
func OnEffectCleanup(s *Scheduler, fn func()) bool {
	c := s.current
	if c == nil {
		return false
	}
	c.OnDispose(fn)
	return true
}

// Untracked runs fn without a current reader, so signals read inside fn do
// not become dependencies of the surrounding computation.
func Untracked[T any](s *Scheduler, fn func() T) T {
	prev := s.current
	s.current = nil
	defer func() { s.current = prev }()
	return fn()
}
