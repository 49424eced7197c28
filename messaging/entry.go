package messaging

import "weak"

// callbackRef is the unit of handler liveness. It carries the type-erased
// invoke closure and the owner identity used for duplicate detection. The
// Registration handle is its only strong holder; the table reaches it only
// through a weak pointer, so dropping the handle makes the entry collectible
// even though the closure may reference the owner (the cycle has no external
// root).
type callbackRef struct {
	owner  any
	invoke func(msg any)
}

// handlerEntry is one slot in a registration bucket. It holds no strong
// references: liveness is decided entirely by whether the weak pointer still
// resolves.
type handlerEntry struct {
	ref weak.Pointer[callbackRef]
}

// resolve returns the callback cell, or nil once the owning Registration has
// been collected.
func (e handlerEntry) resolve() *callbackRef {
	return e.ref.Value()
}
