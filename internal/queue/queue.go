package queue

import (
	"container/list"
	"sync"
)

// KeyedQueue is a thread-safe FIFO that coalesces entries by key. Pushing a
// key that is already queued is a no-op: the earliest entry keeps its slot,
// so per-key ordering is total by first enqueue time.
type KeyedQueue[T any] struct {
	order *list.List
	items map[string]*list.Element
	mu    sync.Mutex
}

type entry[T any] struct {
	key   string
	value T
}

// NewKeyedQueue creates an empty coalescing queue.
func NewKeyedQueue[T any]() *KeyedQueue[T] {
	return &KeyedQueue[T]{
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

// Len returns the number of queued entries.
func (q *KeyedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.order.Len()
}

// Push enqueues value under key. Returns false if the key was already
// queued, in which case the queue is unchanged.
func (q *KeyedQueue[T]) Push(key string, value T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.items[key]; ok {
		return false
	}
	q.items[key] = q.order.PushBack(&entry[T]{key: key, value: value})
	return true
}

// Update replaces the value for a queued key without changing its slot.
// Returns false if the key is not queued.
func (q *KeyedQueue[T]) Update(key string, value T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	el, ok := q.items[key]
	if !ok {
		return false
	}
	el.Value.(*entry[T]).value = value
	return true
}

// Get returns the queued value for key, if present.
func (q *KeyedQueue[T]) Get(key string) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	el, ok := q.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	return el.Value.(*entry[T]).value, true
}

// Pop dequeues the oldest entry.
func (q *KeyedQueue[T]) Pop() (string, T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.order.Front()
	if front == nil {
		var zero T
		return "", zero, false
	}

	e := front.Value.(*entry[T])
	q.order.Remove(front)
	delete(q.items, e.key)
	return e.key, e.value, true
}

// Remove drops a queued key. Returns false if the key is not queued.
func (q *KeyedQueue[T]) Remove(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	el, ok := q.items[key]
	if !ok {
		return false
	}
	q.order.Remove(el)
	delete(q.items, key)
	return true
}

// Clear forgets all queued entries.
func (q *KeyedQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order.Init()
	q.items = make(map[string]*list.Element)
}
