package httpx

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/sessionkit/pkg/jwtx"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
)

type ctxKey struct{}

// VerifyFunc checks a raw token and returns its claims.
type VerifyFunc func(raw string) (jwtx.Claims, error)

// CookieAuth requires a valid access token in the named cookie. Missing,
// invalid or expired tokens get a 401 with the backend's detail shape.
func CookieAuth(cookie string, verify VerifyFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			c, err := r.Cookie(cookie)
			if err != nil || c.Value == "" {
				WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			claims, err := verify(c.Value)
			if err != nil {
				log.Debug("access token rejected", "err", err)
				WriteDetail(w, http.StatusUnauthorized, "Token expired or invalid")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims CookieAuth attached to the request.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(jwtx.Claims)
	return c, ok
}
