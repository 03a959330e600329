package testutil

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"outpass/pkg/requestcontext"
)

// WithActor adds an actor identity to the request context.
// This simulates what the session middleware does for authenticated requests.
func WithActor(req *http.Request, actorID uuid.UUID, role requestcontext.Role) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), actorID, role)
	return req.WithContext(ctx)
}

// WithWarden adds a warden identity plus assigned block to the request context.
func WithWarden(req *http.Request, wardenID uuid.UUID, block string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), wardenID, requestcontext.RoleWarden)
	ctx = requestcontext.WithBlock(ctx, block)
	return req.WithContext(ctx)
}

// WithFixedTime pins the request clock so deadline and lateness checks are
// deterministic in tests.
func WithFixedTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// ContextWithTime returns a background context carrying a fixed clock.
func ContextWithTime(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
