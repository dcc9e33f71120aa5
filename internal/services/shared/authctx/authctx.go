// Package authctx carries the authenticated identity through request
// contexts so services can enforce role checks without depending on the
// transport layer.
package authctx

import (
	"context"

	userdomain "github.com/meridianpress/meridian/internal/services/userhub/domain"
)

// Identity is the minimal view of an authenticated user that services
// need for authorization decisions. A zero Identity means anonymous.
type Identity struct {
	UserID string
	Role   userdomain.Role
}

// Anonymous reports whether the identity belongs to an unauthenticated
// visitor.
func (id Identity) Anonymous() bool {
	return id.UserID == ""
}

type ctxKey struct{}

// WithIdentity returns a child context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the identity stored by WithIdentity. The second
// return value reports whether an identity was present.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
