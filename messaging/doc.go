// Package messaging implements the in-process weak-reference message
// dispatcher at the core of messenger-go.
//
// The central type is the Dispatcher, which routes messages to handlers
// registered by message type and optional routing token:
//   - Register / RegisterWithToken: subscribe a handler on behalf of an
//     owner object and receive a Registration handle
//   - Send / SendWithToken: deliver a message synchronously to every live
//     handler registered under the matching (type, token) key
//   - Registration.Unregister: explicit, idempotent unsubscription
//
// The dispatcher never keeps a subscriber alive. Table entries hold the
// callback through a weak pointer; the Registration handle returned from
// Register is the only strong holder. When the subscriber and its handle are
// dropped, the entry goes dead on the next garbage collection and is skipped
// by Send until a periodic purge (or an explicit Cleanup call) removes it.
//
// Key properties:
//   - Thread-safe: a single mutex guards the registration table
//   - Re-entrant: the lock is never held while a handler runs, so handlers
//     may register, unregister, and send from inside a dispatch
//   - Ordered: one Send invokes handlers in registration order, on the
//     calling goroutine
//   - Interceptor chain for cross-cutting concerns around delivery
//
// Example usage:
//
//	d := messaging.NewDispatcher()
//
//	type Ping struct{ Seq int }
//
//	sub := &MyViewModel{}
//	reg, err := messaging.Register(d, sub, func(p Ping) {
//		sub.OnPing(p)
//	})
//	if err != nil {
//		// nil handler, nil owner, or duplicate registration
//	}
//	defer reg.Unregister()
//
//	messaging.Send(d, Ping{Seq: 1})
//
// Most applications use the process-wide default dispatcher exposed by the
// root messenger package instead of constructing their own.
package messaging
