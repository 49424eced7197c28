package messaging

import (
	"fmt"
	"log/slog"
	"time"
)

// DeliveryFunc delivers a message to the handlers registered for it
type DeliveryFunc func(msg any)

// Interceptor processes messages before they reach the registered handlers
type Interceptor interface {
	// Intercept observes or transforms a message and calls next to continue
	// delivery. Not calling next short-circuits the send.
	Intercept(msg any, token any, next DeliveryFunc)

	// Name returns the interceptor name for logging and debugging
	Name() string
}

// InterceptorFunc is a function adapter for Interceptor
type InterceptorFunc struct {
	name string
	fn   func(msg any, token any, next DeliveryFunc)
}

// NewInterceptorFunc creates a new function-based interceptor
func NewInterceptorFunc(name string, fn func(msg any, token any, next DeliveryFunc)) *InterceptorFunc {
	return &InterceptorFunc{name: name, fn: fn}
}

// Intercept implements Interceptor
func (i *InterceptorFunc) Intercept(msg any, token any, next DeliveryFunc) {
	i.fn(msg, token, next)
}

// Name implements Interceptor
func (i *InterceptorFunc) Name() string {
	return i.name
}

// LoggingInterceptor logs message delivery
type LoggingInterceptor struct {
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingInterceptor{logger: logger}
}

// Intercept implements Interceptor
func (i *LoggingInterceptor) Intercept(msg any, token any, next DeliveryFunc) {
	start := time.Now()

	i.logger.Debug("delivering message",
		"messageType", fmt.Sprintf("%T", msg),
		"token", token,
	)

	next(msg)

	i.logger.Debug("message delivered",
		"messageType", fmt.Sprintf("%T", msg),
		"token", token,
		"duration", time.Since(start),
	)
}

// Name implements Interceptor
func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}
