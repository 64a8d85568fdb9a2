// Package fakeauth is an in-process authentication backend speaking the same
// wire protocol as the production service. It issues real HS256 token pairs,
// keeps the refresh credential in an HTTP-only cookie and exposes controls
// for expiring sessions and injecting failures.
package fakeauth

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/cryptox"
	"github.com/aussiebroadwan/sessionkit/pkg/httpx"
	"github.com/aussiebroadwan/sessionkit/pkg/jwtx"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
	"github.com/google/uuid"
)

// PathProtected is a sample endpoint that requires a live access token.
const PathProtected = "/api/v1/auth/protected"

// Server implements http.Handler.
type Server struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	accounts *accounts
	tokens   *issuer
	logger   *slog.Logger
	limits   bool

	mu     sync.Mutex
	faults map[string][]int
	hits   map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.tokens.now = now }
}

// WithTTL sets the access and refresh token lifetimes.
func WithTTL(access, refresh time.Duration) Option {
	return func(s *Server) {
		s.tokens.accessTTL = access
		s.tokens.refreshTTL = refresh
	}
}

// WithRateLimits enables per-IP rate limiting on the credential endpoints.
func WithRateLimits() Option {
	return func(s *Server) { s.limits = true }
}

// New creates a backend with fresh random keys and no accounts.
func New(opts ...Option) (*Server, error) {
	accessKey, err := cryptox.GenerateSecret(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	refreshKey, err := cryptox.GenerateSecret(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	pepper, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Mux:      http.NewServeMux(),
		accounts: newAccounts(cryptox.Hasher{Pepper: pepper}),
		tokens: &issuer{
			accessKey:  accessKey,
			refreshKey: refreshKey,
			accessTTL:  15 * time.Minute,
			refreshTTL: 30 * 24 * time.Hour,
			now:        time.Now,
			access:     make(map[uuid.UUID]struct{}),
			refresh:    make(map[uuid.UUID]bool),
		},
		logger: slog.Default(),
		faults: make(map[string][]int),
		hits:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(s.logger),
		s.countAndFault,
	}
	s.applyRoutes()
	return s, nil
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.Chain(s.Mux, s.middlewares...).ServeHTTP(w, r)
}

func (s *Server) applyRoutes() {
	strict := s.limit(httpx.StrictLimit)
	lenient := s.limit(httpx.LenientLimit)

	s.Mux.Handle("POST "+authsdk.PathToken, httpx.Chain(http.HandlerFunc(s.handleToken), strict...))
	s.Mux.Handle("POST "+authsdk.PathRegister, httpx.Chain(http.HandlerFunc(s.handleRegister), strict...))
	s.Mux.Handle("POST "+authsdk.PathRefresh, httpx.Chain(http.HandlerFunc(s.handleRefresh), lenient...))
	s.Mux.Handle("POST "+authsdk.PathLightRegister, httpx.Chain(http.HandlerFunc(s.handleLightRegister), lenient...))
	s.Mux.Handle("GET "+authsdk.PathLoginBusy+"{login}", httpx.Chain(http.HandlerFunc(s.handleLoginBusy), lenient...))
	s.Mux.Handle("GET "+authsdk.PathEmailBusy+"{email}", httpx.Chain(http.HandlerFunc(s.handleEmailBusy), lenient...))

	s.Mux.Handle("GET "+PathProtected, httpx.Chain(http.HandlerFunc(s.handleProtected),
		httpx.CookieAuth(authsdk.CookieAccessToken, s.tokens.verifyAccess),
	))
}

func (s *Server) limit(cfg httpx.RateLimitConfig) []httpx.Middleware {
	if !s.limits {
		return nil
	}
	return []httpx.Middleware{httpx.RateLimitByIP(cfg)}
}

// AddUser registers an account directly, bypassing validation.
func (s *Server) AddUser(login, email, password string, role jwtx.Role) (uuid.UUID, error) {
	acct, err := s.accounts.create(login, email, password, role)
	if err != nil {
		return uuid.Nil, err
	}
	return acct.ID, nil
}

// ExpireAccessTokens invalidates every access token issued so far. The next
// protected call answers 401 until the client refreshes.
func (s *Server) ExpireAccessTokens() { s.tokens.expireAccess() }

// BlockRefreshTokens revokes every refresh token issued so far, so the next
// refresh answers 403.
func (s *Server) BlockRefreshTokens() { s.tokens.blockRefresh() }

// FailNext makes the next len(statuses) requests to path answer with those
// statuses, in order, before reaching the handler.
func (s *Server) FailNext(path string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = append(s.faults[path], statuses...)
}

// Hits returns how many requests reached path, including injected failures.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) countAndFault(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		s.mu.Lock()
		s.hits[path]++
		var status int
		if queue := s.faults[path]; len(queue) > 0 {
			status, s.faults[path] = queue[0], queue[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			httpx.WriteDetail(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}
