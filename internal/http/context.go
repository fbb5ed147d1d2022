package http

import "context"

type contextKey string

const (
	bookingIDContextKey   contextKey = "booking_id"
	resourceIDContextKey  contextKey = "resource_id"
	exceptionIDContextKey contextKey = "exception_id"
)

// ContextWithBookingID injects the booking identifier resolved from the request path.
func ContextWithBookingID(ctx context.Context, bookingID string) context.Context {
	return context.WithValue(ctx, bookingIDContextKey, bookingID)
}

// BookingIDFromContext extracts a booking identifier previously associated with the context.
func BookingIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(bookingIDContextKey).(string)
	return id, ok
}

// ContextWithResourceID injects the resource identifier resolved from the request path.
func ContextWithResourceID(ctx context.Context, resourceID string) context.Context {
	return context.WithValue(ctx, resourceIDContextKey, resourceID)
}

// ResourceIDFromContext extracts a resource identifier previously associated with the context.
func ResourceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(resourceIDContextKey).(string)
	return id, ok
}

// ContextWithExceptionID injects the exception identifier resolved from the request path.
func ContextWithExceptionID(ctx context.Context, exceptionID string) context.Context {
	return context.WithValue(ctx, exceptionIDContextKey, exceptionID)
}

// ExceptionIDFromContext extracts an exception identifier previously associated with the context.
func ExceptionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(exceptionIDContextKey).(string)
	return id, ok
}
