package messaging

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// Invalid argument errors
	ErrNilHandler    = errors.New("messenger: handler cannot be nil")
	ErrNilOwner      = errors.New("messenger: owner cannot be nil")
	ErrNotComparable = errors.New("messenger: value is not comparable")

	// Registration errors
	ErrDuplicateRegistration = errors.New("messenger: handler already registered for this message type and token")
	ErrInconsistentState     = errors.New("messenger: registration entry missing from table")
)

// RegistrationError wraps a registration failure with the key it concerns.
type RegistrationError struct {
	Op          string
	MessageType reflect.Type
	Token       any
	Err         error
}

func (e *RegistrationError) Error() string {
	if e.Token != nil {
		return fmt.Sprintf("%s %s (token=%v): %v", e.Op, e.MessageType, e.Token, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.MessageType, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// IsInvalidArgument reports whether err is a bad-input failure, as opposed to
// a duplicate registration or an internal invariant violation.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrNilHandler) ||
		errors.Is(err, ErrNilOwner) ||
		errors.Is(err, ErrNotComparable)
}
