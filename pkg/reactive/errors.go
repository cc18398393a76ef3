package reactive

import "errors"

// ErrFlushLimit is returned by Drain when computations keep rescheduling
// each other past the configured flush limit.
var ErrFlushLimit = errors.New("reactive: flush limit exceeded")

// ErrWrongGoroutine is the panic value used when affinity checking is on and
// the graph is touched from a goroutine other than its owner.
var ErrWrongGoroutine = errors.New("reactive: scheduler used from wrong goroutine")

// ErrCanceled is the cancellation cause of a Resource fetch context when the
// fetch is canceled or superseded by a reload. See context.Cause.
var ErrCanceled = errors.New("reactive: resource fetch canceled")
