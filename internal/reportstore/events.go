package reportstore

import "sync"

// EventType names a store mutation.
type EventType string

const (
	// EventReportsUpdated is published after a category was replaced.
	EventReportsUpdated EventType = "reports_updated"

	// EventReportsCleared is published after the whole store was cleared.
	EventReportsCleared EventType = "reports_cleared"

	// EventCategoryCleared is published after one category was removed.
	EventCategoryCleared EventType = "category_cleared"
)

// Event describes a completed mutation. Count is the number of reports the
// category now holds (0 for clears).
type Event struct {
	Type     EventType `json:"type"`
	Category string    `json:"category,omitempty"`
	Count    int       `json:"count"`
}

// Handler receives store events. Handlers run synchronously on the goroutine
// that performed the mutation and must not call back into the store's
// mutating methods.
type Handler func(Event)

type bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
	order    []int
}

func newBus() *bus {
	return &bus{handlers: make(map[int]Handler)}
}

func (b *bus) subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *bus) publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
