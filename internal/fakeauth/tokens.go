package fakeauth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid covers bad signatures, wrong algorithms and unknown ids.
	ErrTokenInvalid = errors.New("token_invalid")
	// ErrTokenBlocked covers expired, revoked and already rotated tokens.
	ErrTokenBlocked = errors.New("token_blocked")
)

// issuer mints and checks HS256 token pairs. Access and refresh tokens use
// separate keys. Only ids in the live sets are accepted, so tests can expire
// all outstanding tokens at once.
type issuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	access  map[uuid.UUID]struct{}
	refresh map[uuid.UUID]bool // value: blocked
}

func (is *issuer) issue(acct *Account, fingerprint, ip string) (authsdk.TokenPair, error) {
	now := is.now()
	accessID, refreshID := uuid.New(), uuid.New()

	access := jwt.MapClaims{
		"token_id":    accessID.String(),
		"user_id":     acct.ID.String(),
		"role_id":     int(acct.Role),
		"fingerprint": fingerprint,
		"exp":         now.Add(is.accessTTL).Unix(),
	}
	refresh := jwt.MapClaims{
		"token_id":    refreshID.String(),
		"user_id":     acct.ID.String(),
		"role_id":     int(acct.Role),
		"fingerprint": fingerprint,
		"exp":         now.Add(is.refreshTTL).Unix(),
		"login":       acct.Login,
		"ip":          ip,
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(is.accessKey)
	if err != nil {
		return authsdk.TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(is.refreshKey)
	if err != nil {
		return authsdk.TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	is.mu.Lock()
	is.access[accessID] = struct{}{}
	is.refresh[refreshID] = false
	is.mu.Unlock()

	return authsdk.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (is *issuer) parse(raw string, key []byte, kind jwtx.Kind) (jwtx.Claims, error) {
	_, err := jwt.Parse(raw,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(is.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return jwtx.Claims{}, ErrTokenBlocked
	case err != nil:
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, err := jwtx.Decode(raw, kind)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

// verifyAccess accepts live, unexpired access tokens.
func (is *issuer) verifyAccess(raw string) (jwtx.Claims, error) {
	claims, err := is.parse(raw, is.accessKey, jwtx.KindAccess)
	if err != nil {
		return jwtx.Claims{}, err
	}

	is.mu.Lock()
	_, live := is.access[claims.TokenID]
	is.mu.Unlock()

	if !live {
		return jwtx.Claims{}, ErrTokenBlocked
	}
	return claims, nil
}

// consumeRefresh validates a refresh token and retires it. A refresh token
// can be used once.
func (is *issuer) consumeRefresh(raw string) (jwtx.Claims, error) {
	claims, err := is.parse(raw, is.refreshKey, jwtx.KindRefresh)
	if err != nil {
		return jwtx.Claims{}, err
	}

	is.mu.Lock()
	defer is.mu.Unlock()

	blocked, known := is.refresh[claims.TokenID]
	switch {
	case !known:
		return jwtx.Claims{}, ErrTokenInvalid
	case blocked:
		return jwtx.Claims{}, ErrTokenBlocked
	}

	is.refresh[claims.TokenID] = true
	return claims, nil
}

func (is *issuer) expireAccess() {
	is.mu.Lock()
	clear(is.access)
	is.mu.Unlock()
}

func (is *issuer) blockRefresh() {
	is.mu.Lock()
	for id := range is.refresh {
		is.refresh[id] = true
	}
	is.mu.Unlock()
}
