package rangecache

import (
	"sync"

	"github.com/dailyyoga/gridcache/logger"
	"github.com/dailyyoga/gridcache/routine"
)

// Listener receives the range a notification refers to
type Listener func(item WorkItem)

type subscription struct {
	id uint64
	fn Listener
}

// Event is a notification channel with any number of listeners.
// Listeners run synchronously in registration order on the goroutine that
// emitted the notification, never while the cache holds its lock. A listener
// that panics is logged and skipped; the others still run.
type Event struct {
	log  logger.Logger
	name string

	mu        sync.Mutex
	nextID    uint64
	listeners []subscription
}

func newEvent(log logger.Logger, name string) *Event {
	return &Event{log: log, name: name}
}

// Subscribe registers fn and returns a function that removes it again.
// A nil fn is ignored.
func (e *Event) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

// Len returns the number of registered listeners
func (e *Event) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

func (e *Event) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.listeners {
		if s.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *Event) notify(item WorkItem) {
	e.mu.Lock()
	snapshot := e.listeners
	e.mu.Unlock()
	for _, s := range snapshot {
		e.deliver(s.fn, item)
	}
}

func (e *Event) deliver(fn Listener, item WorkItem) {
	log := e.log
	if log == nil {
		log = logger.NewNop()
	}
	defer routine.Recover(log, e.name)
	fn(item)
}

// effects collects notifications and goroutine launches produced while the
// cache lock is held, to be run in order once it is released.
type effects []func()

func (fx *effects) notify(e *Event, item WorkItem) {
	*fx = append(*fx, func() { e.notify(item) })
}

func (fx *effects) then(fn func()) {
	*fx = append(*fx, fn)
}

func (fx effects) run() {
	for _, fn := range fx {
		fn()
	}
}
