package messaging

import (
	"reflect"
	"sync"
)

// Registration is the handle returned from a successful register call. It is
// the sole strong holder of the underlying callback: as long as the handle is
// reachable the dispatcher's weak reference keeps resolving, and once the
// handle is dropped the registration decays on its own without an explicit
// Unregister.
type Registration struct {
	id         string
	key        registrationKey
	dispatcher *Dispatcher

	// mu guards callback for the at-most-once unregister. It is always
	// acquired before the dispatcher's table lock, never inside it.
	mu       sync.Mutex
	callback *callbackRef
}

// ID returns the registration's correlation id.
func (r *Registration) ID() string {
	return r.id
}

// MessageType returns the registered message type.
func (r *Registration) MessageType() reflect.Type {
	return r.key.messageType
}

// Token returns the routing token, nil for untokened registrations.
func (r *Registration) Token() any {
	return r.key.token
}

// Active reports whether the registration has not been unregistered yet. It
// says nothing about weak-reference liveness as observed by the dispatcher.
func (r *Registration) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callback != nil
}

// Unregister removes the registration from the dispatcher and releases the
// strong hold on the callback. The first call runs the removal; every later
// call is a silent no-op. ErrInconsistentState is returned only when the
// entry for a never-unregistered handle is missing from the table, which
// indicates an invariant violation rather than a recoverable condition.
func (r *Registration) Unregister() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.callback == nil {
		return nil
	}

	if err := r.dispatcher.remove(r.key, r.callback); err != nil {
		return &RegistrationError{Op: "unregister", MessageType: r.key.messageType, Token: r.key.token, Err: err}
	}

	r.callback = nil

	r.dispatcher.logger.Info("unregistered handler",
		"messageType", r.key.messageType.String(),
		"token", r.key.token,
		"registrationId", r.id,
	)
	return nil
}
