// Package identity decides who a request acts for: a registered user, an
// existing guest session, or a guest that has no session yet.
package identity

import (
	"context"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

// Identity is one of AuthenticatedUser, GuestOwner or UnresolvedGuest.
type Identity interface {
	isIdentity()
}

type AuthenticatedUser struct {
	UserID int64
	Email  string
}

type GuestOwner struct {
	GuestID string
}

// UnresolvedGuest has no valid session. It may only create a task, which
// also creates its guest session.
type UnresolvedGuest struct{}

func (AuthenticatedUser) isIdentity() {}
func (GuestOwner) isIdentity()        {}
func (UnresolvedGuest) isIdentity()   {}

// Owner returns the task owner key for id. ok is false for UnresolvedGuest.
func Owner(id Identity) (owner model.Owner, ok bool) {
	switch v := id.(type) {
	case AuthenticatedUser:
		return model.UserOwner(v.UserID), true
	case GuestOwner:
		return model.GuestOwner(v.GuestID), true
	default:
		return model.Owner{}, false
	}
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by Middleware, or UnresolvedGuest.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(ctxKey{}).(Identity); ok && id != nil {
		return id
	}
	return UnresolvedGuest{}
}
