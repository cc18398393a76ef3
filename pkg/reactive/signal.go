package reactive

import "reflect"

// Signal is a reactive value container.
// Reading a Signal with Get inside a running Computation subscribes that
// Computation; the next write that changes the value schedules it.
type Signal[T any] struct {
	s     *Scheduler
	value T

	// subs keeps insertion order; subSet deduplicates.
	subs   []*Computation
	subSet map[*Computation]struct{}

	equal func(T, T) bool
}

// NewSignal creates a signal owned by s.
func NewSignal[T any](s *Scheduler, initial T) *Signal[T] {
	return &Signal[T]{
		s:      s,
		value:  initial,
		subSet: make(map[*Computation]struct{}),
	}
}

// Get returns the current value and subscribes the current reader, if any.
func (sig *Signal[T]) Get() T {
	if c := sig.s.current; c != nil && !c.disposed {
		if _, ok := sig.subSet[c]; !ok {
			sig.subSet[c] = struct{}{}
			sig.subs = append(sig.subs, c)
		}
		c.track(sig)
	}
	return sig.value
}

// Peek returns the current value without subscribing.
func (sig *Signal[T]) Peek() T {
	return sig.value
}

// Set stores value and schedules every subscriber, unless value equals the
// current value, in which case nothing happens.
func (sig *Signal[T]) Set(value T) {
	sig.s.checkAffinity()
	if sig.equals(sig.value, value) {
		return
	}
	sig.value = value
	sig.notify()
}

// Update sets the value to fn applied to the current value.
func (sig *Signal[T]) Update(fn func(T) T) {
	sig.Set(fn(sig.value))
}

// WithEquals returns the signal configured with a custom equality function.
func (sig *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	sig.equal = fn
	return sig
}

// Subscribers returns the number of computations subscribed to sig.
func (sig *Signal[T]) Subscribers() int {
	return len(sig.subs)
}

// notify schedules a snapshot of the subscribers, so computations that
// unsubscribe or subscribe while being scheduled do not disturb the walk.
func (sig *Signal[T]) notify() {
	subs := make([]*Computation, len(sig.subs))
	copy(subs, sig.subs)
	for _, c := range subs {
		c.Schedule()
	}
}

func (sig *Signal[T]) unsubscribe(c *Computation) {
	if _, ok := sig.subSet[c]; !ok {
		return
	}
	delete(sig.subSet, c)
	for i, existing := range sig.subs {
		if existing == c {
			sig.subs = append(sig.subs[:i], sig.subs[i+1:]...)
			return
		}
	}
}

func (sig *Signal[T]) equals(a, b T) bool {
	if sig.equal != nil {
		return sig.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals compares scalars with ==, other comparable values (pointers,
// channels, interfaces such as error) by identity, and everything else with
// reflect.DeepEqual.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	}
	return identityEquals(any(a), any(b))
}

func identityEquals(a, b any) (eq bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	// Comparable structs and arrays may still hold uncomparable values behind
	// interface fields.
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}
