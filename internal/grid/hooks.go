// filepath: internal/grid/hooks.go
package grid

import (
	"context"
	"fmt"
	"sync"
)

// HookFunc is a lifecycle callback. Before-hooks may mutate the row values;
// returning an error aborts the operation.
type HookFunc func(ctx context.Context, row map[string]interface{}) error

// HookRegistry maps hook names to functions. The serialized grid config only
// carries names, so rehydrated configs can never inject code — they can only
// reference hooks the host process registered up front.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[string]HookFunc
}

// NewHookRegistry returns an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[string]HookFunc)}
}

// Register binds a name to a hook function. Re-registering a name replaces
// the previous function.
func (r *HookRegistry) Register(name string, fn HookFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = fn
}

// Run executes the named hook. An empty name is a no-op; an unknown name is
// an error so that typos in configs fail loudly instead of silently skipping
// a callback.
func (r *HookRegistry) Run(ctx context.Context, name string, row map[string]interface{}) error {
	if name == "" {
		return nil
	}
	r.mu.RLock()
	fn, ok := r.hooks[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHook, name)
	}
	return fn(ctx, row)
}
