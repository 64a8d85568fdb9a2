package session

import (
	"context"

	"github.com/aussiebroadwan/sessionkit/pkg/jwtx"
	"github.com/google/uuid"
)

// Persistence keys. These are the only keys the store ever reads or writes.
const (
	KeyUser      = "session.user"
	KeyAnonymous = "session.anonymous"
)

// User is the authenticated session. A nil *User means logged out.
type User struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Role        jwtx.Role `json:"role"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

// UserFromClaims builds the session user from a decoded token pair: the id
// and role from the access token, the display name from the refresh login.
func UserFromClaims(access, refresh jwtx.Claims) *User {
	return &User{
		UserID:      access.UserID,
		DisplayName: refresh.Login,
		Role:        access.RoleID,
	}
}

// AnonymousIdentity is the device-scoped identity handed out by light
// registration. It is kept apart from User and never merged into it.
type AnonymousIdentity struct {
	UserUUID *uuid.UUID `json:"user_uuid"`
}

// Present reports whether an anonymous identity has been assigned.
func (a AnonymousIdentity) Present() bool { return a.UserUUID != nil }

// Persistence is a string keyed storage collaborator. A missing key returns
// ok=false with a nil error.
type Persistence interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ChangeKind describes what happened to the store.
type ChangeKind string

const (
	ChangeSignedIn  ChangeKind = "signed_in"
	ChangeSignedOut ChangeKind = "signed_out"
	ChangeAnonymous ChangeKind = "anonymous"
)

// Change is delivered to subscribers after every mutation. User is a copy.
type Change struct {
	Kind      ChangeKind
	User      *User
	Anonymous AnonymousIdentity
}
