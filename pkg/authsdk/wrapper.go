package authsdk

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/sessionkit/pkg/errx"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
	"golang.org/x/sync/singleflight"
)

// Operation is a retryable request. Each call must issue a fresh request.
type Operation func(ctx context.Context) (*http.Response, error)

// Refresher rotates the session credential. *SDKClient satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) bool
}

// SessionClearer is the part of the session store the wrapper may touch.
type SessionClearer interface {
	ClearSession()
}

// Wrapper hides session expiry from callers. A wrapped operation that comes
// back 401 triggers at most one refresh and at most one replay.
type Wrapper struct {
	refresher Refresher
	store     SessionClearer
	logger    *slog.Logger

	shared bool
	group  singleflight.Group
}

// WrapperOption configures a Wrapper.
type WrapperOption func(*Wrapper)

// WithSharedRefresh makes concurrent 401s wait on one in-flight refresh
// instead of each starting their own. Enabled by default.
func WithSharedRefresh(enabled bool) WrapperOption {
	return func(w *Wrapper) { w.shared = enabled }
}

// WithWrapperLogger sets the logger for transport failures.
func WithWrapperLogger(l *slog.Logger) WrapperOption {
	return func(w *Wrapper) { w.logger = l }
}

// NewWrapper creates a Wrapper that refreshes through r and clears store when
// the refresh fails.
func NewWrapper(r Refresher, store SessionClearer, opts ...WrapperOption) *Wrapper {
	w := &Wrapper{
		refresher: r,
		store:     store,
		shared:    true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wrap returns an Operation that:
//
//  1. runs op; any status other than 401 is returned unchanged
//  2. on 401, closes that response and refreshes once
//  3. if the refresh succeeds, runs op again and returns whatever it yields
//  4. if the refresh fails, clears the session and returns an unauthorized error
//
// An error from op, or a nil response, is re-signalled as an errx transport
// error.
func (w *Wrapper) Wrap(op Operation) Operation {
	return func(ctx context.Context) (*http.Response, error) {
		resp, err := w.run(ctx, op)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}
		drain(resp)

		if !w.refresh(ctx) {
			w.store.ClearSession()
			return nil, errx.Unauthorized(MsgUserUnauthorized)
		}

		return w.run(ctx, op)
	}
}

// errNoResponse stands in for an operation that returned neither a
// response nor an error.
var errNoResponse = errors.New("operation returned no response")

func (w *Wrapper) run(ctx context.Context, op Operation) (*http.Response, error) {
	resp, err := op(ctx)
	if err == nil && resp == nil {
		err = errNoResponse
	}
	if err != nil {
		return nil, w.transportError(ctx, err)
	}
	return resp, nil
}

func (w *Wrapper) refresh(ctx context.Context) bool {
	if !w.shared {
		return w.refresher.Refresh(ctx)
	}

	// The shared call must outlive any single waiter's cancellation.
	shared := context.WithoutCancel(ctx)
	v, _, _ := w.group.Do("refresh", func() (any, error) {
		return w.refresher.Refresh(shared), nil
	})
	return v.(bool)
}

func (w *Wrapper) transportError(ctx context.Context, err error) error {
	logger := w.logger
	if logger == nil {
		logger = slogx.FromContext(ctx)
	}
	logger.Error("request failed", "err", err)
	return errx.Wrap(errx.KindTransport, transportMessage, err)
}

// Operation builds an Operation for method and path relative to the base
// URL. The body is replayed verbatim on retry.
func (c *SDKClient) Operation(method, path string, body []byte) Operation {
	return func(ctx context.Context) (*http.Response, error) {
		return c.doRequest(ctx, method, path, body, "")
	}
}

// Authed performs a request through w so an expired session is refreshed
// transparently.
func (c *SDKClient) Authed(ctx context.Context, w *Wrapper, method, path string, body []byte) (*http.Response, error) {
	return w.Wrap(c.Operation(method, path, body))(ctx)
}
