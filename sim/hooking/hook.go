// Package hooking defines the observer mechanism of the engine. Trace sinks,
// recorders, and metrics attach to a Hookable as Hooks.
package hooking

import "sync"

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx HookCtx)

// Func calls f(ctx).
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface. It is safe to invoke hooks from multiple goroutines
// while hooks are being registered.
type HookableBase struct {
	lock     sync.RWMutex
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	h.lock.RLock()
	defer h.lock.RUnlock()

	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	h.lock.RLock()
	defer h.lock.RUnlock()

	hooks := make([]Hook, len(h.hookList))
	copy(hooks, h.hookList)

	return hooks
}

// AcceptHook register a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.mustNotHaveDuplicatedHook(hook)
	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	if _, isFunc := hook.(HookFunc); isFunc {
		return
	}

	for _, h := range h.hookList {
		if h == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook triggers the register Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	h.lock.RLock()
	hooks := h.hookList
	h.lock.RUnlock()

	for _, hook := range hooks {
		hook.Func(ctx)
	}
}
