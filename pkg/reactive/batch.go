package reactive

// Batch runs fn with scheduling deferred: writes inside fn mark subscribers
// pending but the flush is requested only once the outermost batch ends.
// Subscribers therefore run once and see only the final values.
func (s *Scheduler) Batch(fn func()) {
	end := s.BeginBatch()
	defer end()
	fn()
}

// BeginBatch enters a batch and returns the function that leaves it.
// The returned function is idempotent.
func (s *Scheduler) BeginBatch() (end func()) {
	s.batchDepth++
	done := false
	return func() {
		if done {
			return
		}
		done = true
		s.batchDepth--
		if s.batchDepth == 0 && len(s.queue) > 0 {
			s.requestFlush()
		}
	}
}

// Batching reports whether a batch is open.
func (s *Scheduler) Batching() bool {
	return s.batchDepth > 0
}
