package authsdk

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessionkit/pkg/fingerprint"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
)

const (
	// DefaultLocale is sent as Accept-Language when no locale is configured.
	DefaultLocale = "ru-RU"

	// DefaultUserAgent identifies the client when none is configured.
	DefaultUserAgent = "sessionkit/1.0"

	// ForwardedForAuto asks the server to resolve the caller address itself.
	ForwardedForAuto = "AUTO_DETECT_IP"
)

// Doer is the transport collaborator. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SDKClient talks to the authentication backend. It holds no session state
// of its own; the refresh credential lives in the HTTP client's cookie jar.
// An SDKClient must not be modified after first use.
type SDKClient struct {
	BaseURL    string
	HTTPClient Doer

	Locale    string
	UserAgent string

	// Fingerprint identifies this device on login and registration.
	Fingerprint fingerprint.Provider

	// Logger overrides the logger carried in the request context.
	Logger *slog.Logger
}

// NewSDKClient creates a client with a 10s timeout, a fresh cookie jar and
// the host fingerprint.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     NewCookieJar(),
		},
		Locale:      DefaultLocale,
		UserAgent:   DefaultUserAgent,
		Fingerprint: fingerprint.Cached(fingerprint.Host()),
	}
}

func (c *SDKClient) log(ctx context.Context) *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slogx.FromContext(ctx)
}

func (c *SDKClient) locale(override string) string {
	switch {
	case override != "":
		return override
	case c.Locale != "":
		return c.Locale
	default:
		return DefaultLocale
	}
}

func (c *SDKClient) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return DefaultUserAgent
}

// resetCookies drops every stored cookie when the transport exposes a
// resettable jar.
func (c *SDKClient) resetCookies() bool {
	hc, ok := c.HTTPClient.(*http.Client)
	if !ok || hc.Jar == nil {
		return false
	}
	r, ok := hc.Jar.(interface{ Reset() })
	if !ok {
		return false
	}
	r.Reset()
	return true
}
