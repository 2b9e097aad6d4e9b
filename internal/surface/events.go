// Package surface provides drawing surfaces for the chart renderer: a PNG
// raster, an SVG vector canvas and an in-memory recorder.
package surface

import (
	"sort"
	"sync"

	"chartlab/internal/chart/render"
)

// Events is a pointer-event source. Surfaces embed it so that gestures can be
// replayed against them with Dispatch.
type Events struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(render.Event)
}

// Subscribe registers handler and returns a function that removes it.
func (e *Events) Subscribe(handler func(render.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[int]func(render.Event))
	}
	id := e.nextID
	e.nextID++
	e.handlers[id] = handler

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}
}

// Dispatch delivers ev to every handler in subscription order. Handlers run
// on the caller's goroutine.
func (e *Events) Dispatch(ev render.Event) {
	e.mu.Lock()
	ids := make([]int, 0, len(e.handlers))
	for id := range e.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(render.Event), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, e.handlers[id])
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Subscribers returns the number of registered handlers.
func (e *Events) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}
