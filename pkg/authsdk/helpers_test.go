package authsdk_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/sessionkit/internal/fakeauth"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/fingerprint"
	"github.com/stretchr/testify/require"
)

const testFingerprint = "fp-test"

// newBackend starts an in-process auth backend and a client pointed at it.
func newBackend(t *testing.T, opts ...fakeauth.Option) (*fakeauth.Server, *authsdk.SDKClient) {
	t.Helper()

	srv, err := fakeauth.New(opts...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return srv, newClient(ts.URL)
}

// newStub starts a server answering every request with h.
func newStub(t *testing.T, h http.HandlerFunc) *authsdk.SDKClient {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return newClient(ts.URL)
}

func newClient(url string) *authsdk.SDKClient {
	c := authsdk.NewSDKClient(url)
	c.Fingerprint = fingerprint.Static(testFingerprint)
	c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return c
}

// respond writes status and a raw JSON body.
func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// syncBuffer is a log sink safe for concurrent handlers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(c *authsdk.SDKClient) *syncBuffer {
	buf := &syncBuffer{}
	c.Logger = slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return buf
}

// fakeResponse builds a response with an empty body.
func fakeResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
	}
}
