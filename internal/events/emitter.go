package events

import (
	"context"
	"sync"
)

var (
	emitterMu sync.RWMutex
	custom    func(ctx context.Context, evt StoreEvent)
)

// Emit publishes a store event. The default only logs; the desktop shell
// installs its own with SetCustomEmitter.
func Emit(ctx context.Context, evt StoreEvent) {
	emitterMu.RLock()
	f := custom
	emitterMu.RUnlock()

	evt = withSession(ctx, evt)
	logStoreEvent(ctx, evt)
	if f != nil {
		f(ctx, evt)
	}
}

func withSession(ctx context.Context, evt StoreEvent) StoreEvent {
	if evt.SessionKey == "" {
		if session := SessionFromContext(ctx); session != "" {
			evt.SessionKey = session
		}
	}
	return evt
}

// SetCustomEmitter installs f as the subscriber; nil restores log-only
// emission. It is safe to call while other goroutines emit.
func SetCustomEmitter(f func(ctx context.Context, evt StoreEvent)) {
	emitterMu.Lock()
	custom = f
	emitterMu.Unlock()
}
