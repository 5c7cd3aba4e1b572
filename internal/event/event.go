// Package event is a small typed multicast used at the simulation boundary.
// Listeners run synchronously, in subscription order, on the emitting goroutine.
package event

// Event fans one value out to every listener.
type Event[T any] struct {
	listeners []func(T)
}

// AddListener registers a callback; nil callbacks are ignored.
func (e *Event[T]) AddListener(callback func(T)) {
	if callback == nil {
		return
	}
	e.listeners = append(e.listeners, callback)
}

// RemoveAllListeners clears all listeners
func (e *Event[T]) RemoveAllListeners() {
	e.listeners = nil
}

// Invoke calls all registered listeners with arg.
func (e *Event[T]) Invoke(arg T) {
	for _, listener := range e.listeners {
		listener(arg)
	}
}

// ListenerCount returns the number of registered listeners (for debugging)
func (e *Event[T]) ListenerCount() int {
	return len(e.listeners)
}

// Queue buffers values until drained. The simulation pushes into it during a
// tick and the integration layer drains it between ticks.
type Queue[T any] struct {
	items []T
}

func (q *Queue[T]) Push(v T) {
	q.items = append(q.items, v)
}

// Drain returns the buffered values in push order and empties the queue.
func (q *Queue[T]) Drain() []T {
	items := q.items
	q.items = nil
	return items
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}
