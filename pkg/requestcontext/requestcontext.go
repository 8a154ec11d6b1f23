// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values; services read them without importing net/http.
// Tests pin the clock with WithTime so day-boundary math is deterministic:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	today := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	actorIDKey     struct{}
	actorNameKey   struct{}
)

// WithRequestID attaches the correlation ID for the current request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation ID, or "" when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithTime pins the request time. Services use Now(ctx) instead of
// time.Now() wherever "today" matters.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithActor records who is performing the current request (an admin or a
// vendor user). Ownership checks still take explicit IDs; this is for
// attribution in logs and audit rows only.
func WithActor(ctx context.Context, id, name string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey{}, id)
	return context.WithValue(ctx, actorNameKey{}, name)
}

// ActorID returns the acting user's ID, or "" when unset.
func ActorID(ctx context.Context) string {
	id, _ := ctx.Value(actorIDKey{}).(string)
	return id
}

// ActorName returns the acting user's display name, or "" when unset.
func ActorName(ctx context.Context) string {
	name, _ := ctx.Value(actorNameKey{}).(string)
	return name
}
