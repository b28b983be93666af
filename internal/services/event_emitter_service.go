package services

import (
	"context"
	"sync"

	"chatvault/internal/events"
)

// EventEmitterService forwards committed store events to a subscriber, such
// as the desktop shell's event bus, while a stream is running.
type EventEmitterService struct {
	mu      sync.Mutex
	running bool
	sink    func(ctx context.Context, evt events.StoreEvent)
}

func NewEventEmitterService() *EventEmitterService {
	return &EventEmitterService{}
}

// StartStream installs sink as the store's event emitter. It returns false
// when a stream is already running.
func (e *EventEmitterService) StartStream(sink func(ctx context.Context, evt events.StoreEvent)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running || sink == nil {
		return false
	}
	e.sink = sink
	e.running = true
	events.SetCustomEmitter(e.forward)
	return true
}

func (e *EventEmitterService) forward(ctx context.Context, evt events.StoreEvent) {
	e.mu.Lock()
	sink, running := e.sink, e.running
	e.mu.Unlock()
	if running && sink != nil {
		sink(ctx, evt)
	}
}

func (e *EventEmitterService) StopStream() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	e.sink = nil
	events.SetCustomEmitter(nil)
}
