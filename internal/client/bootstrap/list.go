package bootstrap

import (
	"slices"
	"sync"

	"github.com/vibecoders/vibecoders/internal/client/api"
)

// List is the local copy of a server collection. It changes only after the
// server has accepted a change.
type List[T any] struct {
	mu    sync.Mutex
	items []T
	id    func(T) string
}

func newList[T any](id func(T) string) *List[T] {
	return &List[T]{id: id}
}

func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *List[T]) Find(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range l.items {
		if l.id(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (l *List[T]) replace(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(items)
}

// prepend adds item first, matching the server's newest-first order.
func (l *List[T]) prepend(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]T{item}, l.items...)
}

func (l *List[T]) put(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, it := range l.items {
		if l.id(it) == l.id(item) {
			l.items[i] = item
			return
		}
	}
}

func (l *List[T]) remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.DeleteFunc(l.items, func(it T) bool { return l.id(it) == id })
}

func taskID(t api.Task) string     { return t.ID }
func promptID(p api.Prompt) string { return p.ID }
