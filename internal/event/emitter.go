// Package event provides a small typed publish/subscribe primitive.
package event

import "sync"

// Emitter delivers values of type T to its subscribers. The zero value is
// ready to use.
type Emitter[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(T)
	order  []uint64
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once has no further effect.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs == nil {
		e.subs = make(map[uint64]func(T))
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.order = append(e.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

// Emit calls every current subscriber with v, in subscription order, on the
// calling goroutine.
func (e *Emitter[T]) Emit(v T) {
	for _, fn := range e.snapshot() {
		fn(v)
	}
}

// Len returns the number of subscribers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (e *Emitter[T]) snapshot() []func(T) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fns := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.subs[id])
	}
	return fns
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subs, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}
