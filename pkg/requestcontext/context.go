// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free of
// net/http lets services depend only on context.Context.
//
// Usage in services (read values):
//
//	actorID := requestcontext.ActorID(ctx)
//	role := requestcontext.Role(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, actorID, requestcontext.RoleWarden)
package requestcontext

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role names the actor classes that hold sessions. Guardians never hold a
// session; they act through single-use emailed tokens.
type Role string

const (
	RoleStudent Role = "student"
	RoleWarden  Role = "warden"
	RoleGuard   Role = "guard"
	RoleAdmin   Role = "admin"
)

// Context key types (unexported for encapsulation).
type (
	actorIDKey     struct{}
	roleKey        struct{}
	blockKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyActorID     = actorIDKey{}
	ContextKeyRole        = roleKey{}
	ContextKeyBlock       = blockKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// ActorID retrieves the authenticated actor's ID from the context.
// Returns the nil UUID if not set.
func ActorID(ctx context.Context) uuid.UUID {
	if actorID, ok := ctx.Value(ContextKeyActorID).(uuid.UUID); ok {
		return actorID
	}
	return uuid.Nil
}

// WithActor injects the actor identity and role into the context.
func WithActor(ctx context.Context, actorID uuid.UUID, role Role) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActorID, actorID)
	return context.WithValue(ctx, ContextKeyRole, role)
}

// Role retrieves the actor role from the context; empty when unauthenticated.
func RoleOf(ctx context.Context) Role {
	if role, ok := ctx.Value(ContextKeyRole).(Role); ok {
		return role
	}
	return ""
}

// Block retrieves the hostel block a warden is assigned to.
func Block(ctx context.Context) string {
	if block, ok := ctx.Value(ContextKeyBlock).(string); ok {
		return block
	}
	return ""
}

// WithBlock injects a warden's assigned block into the context.
func WithBlock(ctx context.Context, block string) context.Context {
	return context.WithValue(ctx, ContextKeyBlock, block)
}

// RequestID retrieves the correlation ID set by middleware; empty if unset.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request time when middleware captured one, falling back to
// the wall clock. Tests inject a fixed time with WithTime to make lifecycle
// deadlines deterministic.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed request time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
