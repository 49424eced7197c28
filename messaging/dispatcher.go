package messaging

import (
	"log/slog"
	"sync"
	"time"
	"weak"

	"github.com/google/uuid"
)

// DefaultPurgeInterval is the minimum wall-clock time between opportunistic
// sweeps of dead registrations.
const DefaultPurgeInterval = time.Minute

// Dispatcher routes messages to handlers registered by message type and
// optional routing token. Handlers are held through weak references: the
// Registration handle returned by Register is the only strong holder, so the
// dispatcher never extends a subscriber's lifetime.
type Dispatcher struct {
	mu        sync.Mutex
	table     map[registrationKey][]handlerEntry
	lastPurge time.Time

	purgeInterval time.Duration
	interceptors  []Interceptor
	logger        *slog.Logger
	now           func() time.Time
}

// DispatcherOption configures the Dispatcher
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithPurgeInterval sets the minimum time between opportunistic purge sweeps
func WithPurgeInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.purgeInterval = interval
	}
}

// WithInterceptors adds interceptors around message delivery
func WithInterceptors(interceptors ...Interceptor) DispatcherOption {
	return func(d *Dispatcher) {
		d.interceptors = append(d.interceptors, interceptors...)
	}
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		table:         make(map[registrationKey][]handlerEntry),
		purgeInterval: DefaultPurgeInterval,
		logger:        slog.Default(),
		now:           time.Now,
	}

	for _, opt := range options {
		opt(d)
	}

	d.lastPurge = d.now()
	return d
}

// Register subscribes handler to messages of type T with no routing token.
// owner identifies the subscriber for duplicate detection; a given owner may
// hold at most one live registration per (type, token) key. The returned
// Registration is the only strong reference to the handler: drop it and the
// subscription dies with it.
func Register[T any](d *Dispatcher, owner any, handler func(T)) (*Registration, error) {
	return RegisterWithToken(d, owner, nil, handler)
}

// RegisterWithToken subscribes handler to messages of type T sent under an
// equal token. Fails with ErrNilHandler, ErrNilOwner, ErrNotComparable
// (owner or token unusable in an equality check), or
// ErrDuplicateRegistration.
func RegisterWithToken[T any](d *Dispatcher, owner any, token any, handler func(T)) (*Registration, error) {
	key := keyFor[T](token)
	if handler == nil {
		return nil, &RegistrationError{Op: "register", MessageType: key.messageType, Token: token, Err: ErrNilHandler}
	}
	return d.register(key, owner, func(msg any) {
		handler(msg.(T))
	})
}

func (d *Dispatcher) register(key registrationKey, owner any, invoke func(msg any)) (*Registration, error) {
	fail := func(err error) (*Registration, error) {
		return nil, &RegistrationError{Op: "register", MessageType: key.messageType, Token: key.token, Err: err}
	}
	if owner == nil {
		return fail(ErrNilOwner)
	}
	if !isComparable(owner) || !isComparable(key.token) {
		return fail(ErrNotComparable)
	}

	cb := &callbackRef{owner: owner, invoke: invoke}

	d.mu.Lock()
	d.purgeLocked()
	for _, e := range d.table[key] {
		if live := e.resolve(); live != nil && live.owner == owner {
			d.mu.Unlock()
			return fail(ErrDuplicateRegistration)
		}
	}
	d.table[key] = append(d.table[key], handlerEntry{ref: weak.Make(cb)})
	d.mu.Unlock()

	r := &Registration{
		id:         uuid.NewString(),
		key:        key,
		dispatcher: d,
		callback:   cb,
	}

	d.logger.Info("registered handler",
		"messageType", key.messageType.String(),
		"token", key.token,
		"registrationId", r.id,
	)

	return r, nil
}

// Send delivers msg to every live handler registered for type T with no
// token. A send with no matching registrations is a silent no-op.
func Send[T any](d *Dispatcher, msg T) {
	SendWithToken(d, msg, nil)
}

// SendWithToken delivers msg to every live handler registered for type T
// under an equal token. Handlers run synchronously on the calling goroutine,
// in registration order; dead entries are skipped and left for the next
// purge.
func SendWithToken[T any](d *Dispatcher, msg T, token any) {
	if !isComparable(token) {
		// Nothing can be registered under such a token.
		return
	}
	d.dispatch(keyFor[T](token), msg)
}

func (d *Dispatcher) dispatch(key registrationKey, msg any) {
	next := DeliveryFunc(func(m any) {
		d.deliver(key, m)
	})
	for i := len(d.interceptors) - 1; i >= 0; i-- {
		interceptor := d.interceptors[i]
		downstream := next
		next = func(m any) {
			interceptor.Intercept(m, key.token, downstream)
		}
	}
	next(msg)
}

// deliver snapshots the bucket under the lock, then invokes outside it so
// handlers may re-enter the dispatcher without deadlocking.
func (d *Dispatcher) deliver(key registrationKey, msg any) {
	d.mu.Lock()
	d.purgeLocked()
	bucket := d.table[key]
	snapshot := make([]handlerEntry, len(bucket))
	copy(snapshot, bucket)
	d.mu.Unlock()

	invoked := 0
	for _, e := range snapshot {
		if cb := e.resolve(); cb != nil {
			cb.invoke(msg)
			invoked++
		}
	}

	if invoked > 0 {
		d.logger.Debug("message dispatched",
			"messageType", key.messageType.String(),
			"token", key.token,
			"handlerCount", invoked,
		)
	}
}

// remove deletes the entry backed by cb. Called by Registration.Unregister
// with the handle guard already held; handle guard before table lock is the
// fixed lock order.
func (d *Dispatcher) remove(key registrationKey, cb *callbackRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.purgeLocked()

	bucket := d.table[key]
	for i, e := range bucket {
		if e.resolve() == cb {
			d.table[key] = append(bucket[:i], bucket[i+1:]...)
			if len(d.table[key]) == 0 {
				delete(d.table, key)
			}
			return nil
		}
	}

	return ErrInconsistentState
}

// purgeLocked runs a sweep when the purge interval has elapsed. Callers must
// hold d.mu.
func (d *Dispatcher) purgeLocked() {
	if d.now().Sub(d.lastPurge) < d.purgeInterval {
		return
	}
	d.sweepLocked()
}

// sweepLocked removes every dead entry and every bucket that becomes empty,
// then refreshes the purge timestamp even when nothing was removed.
func (d *Dispatcher) sweepLocked() {
	removed := 0
	for key, bucket := range d.table {
		kept := bucket[:0]
		for _, e := range bucket {
			if e.resolve() != nil {
				kept = append(kept, e)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(d.table, key)
		} else {
			d.table[key] = kept
		}
	}
	d.lastPurge = d.now()

	if removed > 0 {
		d.logger.Debug("purged dead registrations", "removed", removed)
	}
}

// Cleanup forces an immediate sweep of dead registrations regardless of the
// purge interval.
func (d *Dispatcher) Cleanup() {
	d.mu.Lock()
	d.sweepLocked()
	d.mu.Unlock()
}

// IsRegistered reports whether owner holds a live untokened registration for
// message type T.
func IsRegistered[T any](d *Dispatcher, owner any) bool {
	return IsRegisteredWithToken[T](d, owner, nil)
}

// IsRegisteredWithToken reports whether owner holds a live registration for
// message type T under an equal token.
func IsRegisteredWithToken[T any](d *Dispatcher, owner any, token any) bool {
	if owner == nil || !isComparable(owner) || !isComparable(token) {
		return false
	}
	key := keyFor[T](token)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range d.table[key] {
		if live := e.resolve(); live != nil && live.owner == owner {
			return true
		}
	}
	return false
}

// Stats contains registration table statistics
type Stats struct {
	Keys          int // distinct (type, token) keys with at least one entry
	Registrations int // total entries, dead ones not yet purged included
	Live          int // entries whose handler is still reachable
}

// Stats returns a snapshot of the registration table
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{Keys: len(d.table)}
	for _, bucket := range d.table {
		s.Registrations += len(bucket)
		for _, e := range bucket {
			if e.resolve() != nil {
				s.Live++
			}
		}
	}
	return s
}
