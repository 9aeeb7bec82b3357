package auth

import (
	"context"

	"github.com/google/uuid"
)

type callerKey struct{}

// ContextWithCaller stamps the authenticated user's id on the context.
// Everything below the auth middleware trusts this identity verbatim.
func ContextWithCaller(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

func CallerFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(callerKey{}).(uuid.UUID)
	return id, ok
}
