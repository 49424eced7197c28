package messaging

import "reflect"

// registrationKey identifies one subscription channel: a concrete message
// type plus an optional routing token. Message types compare by reflect.Type
// identity; tokens compare by Go interface equality, so two registrations
// with equal token values share a channel.
type registrationKey struct {
	messageType reflect.Type
	token       any
}

// typeOf resolves the compile-time message type, so interface and pointer
// message types key correctly even when the zero value carries no dynamic
// type.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func keyFor[T any](token any) registrationKey {
	return registrationKey{messageType: typeOf[T](), token: token}
}

// isComparable reports whether v can be used in an interface equality check
// and as part of a map key without panicking. nil is comparable.
func isComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}
