package app

import (
	"sync"
	"sync/atomic"
)

// lazy builds a component on first use and memoizes both the value and the error,
// so a failed initialization is reported to every later caller.
type lazy[T any] struct {
	once  sync.Once
	built atomic.Bool
	value T
	err   error
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.value, l.err = build()
		l.built.Store(true)
	})
	return l.value, l.err
}

// peek returns the value only if it was already built without error. It never builds.
func (l *lazy[T]) peek() (T, bool) {
	if !l.built.Load() || l.err != nil {
		var zero T
		return zero, false
	}
	return l.value, true
}

// infallible adapts a constructor that cannot fail.
func infallible[T any](build func() T) func() (T, error) {
	return func() (T, error) { return build(), nil }
}
