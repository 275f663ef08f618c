package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	RoleStaff = "staff"
	RoleUser  = "user"
)

var ErrNoIdentity = errors.New("no authenticated identity in context")

// Identity is the credential resolved from the session cookie once per request.
type Identity struct {
	UserID    uuid.UUID
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

func (i Identity) IsStaff() bool {
	return HasRole(i, RoleStaff)
}

func HasRole(i Identity, role string) bool {
	return i.Role == role
}

type identityKey struct{}

func WithIdentity(ctx context.Context, i Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, i)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	i, ok := ctx.Value(identityKey{}).(Identity)
	return i, ok
}

// RequireIdentity is IdentityFromContext for callers that treat a missing
// identity as an error.
func RequireIdentity(ctx context.Context) (Identity, error) {
	i, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return i, nil
}
