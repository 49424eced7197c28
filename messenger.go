// Package messenger provides an in-process publish/subscribe dispatcher that
// holds its handlers through weak references, so subscribing never keeps a
// subscriber alive.
//
// The package-level functions operate on a lazily-initialized process-wide
// dispatcher, mirroring how application components usually share one
// messenger. Components that prefer explicit wiring construct their own
// instance with messaging.NewDispatcher and pass it around.
//
//	type Ping struct{ Seq int }
//
//	reg, err := messenger.Register(vm, func(p Ping) { vm.OnPing(p) })
//	...
//	messenger.Send(Ping{Seq: 1})
package messenger

import (
	"sync"

	"github.com/glimte/messenger-go/messaging"
)

var defaultDispatcher = sync.OnceValue(func() *messaging.Dispatcher {
	return messaging.NewDispatcher()
})

// Default returns the process-wide dispatcher, creating it on first use.
// Initialization is thread-safe and happens at most once.
func Default() *messaging.Dispatcher {
	return defaultDispatcher()
}

// Register subscribes handler on the default dispatcher for messages of type
// T with no routing token. See messaging.Register.
func Register[T any](owner any, handler func(T)) (*messaging.Registration, error) {
	return messaging.Register(Default(), owner, handler)
}

// RegisterWithToken subscribes handler on the default dispatcher for messages
// of type T sent under an equal token. See messaging.RegisterWithToken.
func RegisterWithToken[T any](owner any, token any, handler func(T)) (*messaging.Registration, error) {
	return messaging.RegisterWithToken(Default(), owner, token, handler)
}

// Send delivers msg through the default dispatcher with no token. See
// messaging.Send.
func Send[T any](msg T) {
	messaging.Send(Default(), msg)
}

// SendWithToken delivers msg through the default dispatcher under token. See
// messaging.SendWithToken.
func SendWithToken[T any](msg T, token any) {
	messaging.SendWithToken(Default(), msg, token)
}
