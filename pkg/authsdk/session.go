package authsdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/sessionkit/pkg/errx"
	"github.com/aussiebroadwan/sessionkit/pkg/jwtx"
	"github.com/aussiebroadwan/sessionkit/pkg/session"
	"github.com/google/uuid"
)

// ErrNoFingerprint is returned when the client has no fingerprint provider.
var ErrNoFingerprint = errors.New("authsdk: no fingerprint provider configured")

// SessionWriter is the part of the session store that login commits to.
type SessionWriter interface {
	SetSession(u *session.User)
	ClearSession()
}

// AnonymousStore holds the device's anonymous identity.
type AnonymousStore interface {
	Anonymous() session.AnonymousIdentity
	SetAnonymous(id uuid.UUID)
}

// DeviceFingerprint returns this device's fingerprint.
func (c *SDKClient) DeviceFingerprint(ctx context.Context) (string, error) {
	if c.Fingerprint == nil {
		return "", ErrNoFingerprint
	}

	fp, err := c.Fingerprint.Fingerprint(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read fingerprint: %w", err)
	}
	return fp, nil
}

// Login exchanges credentials, decodes the pair and commits the session.
// Invalid credentials also clear any stale session before returning.
func (c *SDKClient) Login(ctx context.Context, store SessionWriter, login, password string) (*session.User, error) {
	if errs := (LoginRequest{Login: login, Password: password}).Validate(); errs != nil {
		return nil, &errx.Error{Kind: errx.KindValidation, Message: MsgInvalidData, Detail: joinFieldErrors(errs)}
	}

	fp, err := c.DeviceFingerprint(ctx)
	if err != nil {
		return nil, err
	}

	pair, err := c.Exchange(ctx, login, password, fp, "")
	if err != nil {
		if errx.IsKind(err, errx.KindUnauthorized) {
			store.ClearSession()
		}
		return nil, err
	}

	user, err := CommitTokens(store, pair)
	if err != nil {
		return nil, err
	}

	c.log(ctx).Info("signed in", "user_id", user.UserID, "role", user.Role.String())
	return user, nil
}

// CommitTokens decodes pair and writes the resulting user to store. Nothing
// is written if either token fails to decode.
func CommitTokens(store SessionWriter, pair TokenPair) (*session.User, error) {
	access, err := jwtx.DecodeAccess(pair.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := jwtx.DecodeRefresh(pair.RefreshToken)
	if err != nil {
		return nil, err
	}

	user := session.UserFromClaims(access, refresh)
	store.SetSession(user)
	return user, nil
}

// Logout clears the session and forgets the backend cookies. It does not
// contact the server.
func (c *SDKClient) Logout(ctx context.Context, store SessionWriter) {
	store.ClearSession()
	if !c.resetCookies() {
		c.log(ctx).Debug("transport has no resettable cookie jar")
	}
	c.log(ctx).Info("signed out")
}

// EnsureAnonymous returns the device's anonymous identity, requesting one
// through light registration the first time.
func (c *SDKClient) EnsureAnonymous(ctx context.Context, store AnonymousStore) (uuid.UUID, error) {
	if anon := store.Anonymous(); anon.Present() {
		return *anon.UserUUID, nil
	}

	id, err := c.LightRegister(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	store.SetAnonymous(id)
	c.log(ctx).Info("anonymous identity assigned", "user_uuid", id)
	return id, nil
}
