package authsdk_test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/aussiebroadwan/sessionkit/internal/fakeauth"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/errx"
	"github.com/aussiebroadwan/sessionkit/pkg/jwtx"
	"github.com/aussiebroadwan/sessionkit/pkg/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLoginFromStubbedExchange(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	body := tokenBody(t, userID)
	c := newStub(t, respond(http.StatusOK, body))
	store := session.New()

	user, err := c.Login(t.Context(), store, "alice@example.com", "Secret123!")
	require.NoError(t, err)
	require.Equal(t, userID, user.UserID)

	got := store.GetSession()
	require.NotNil(t, got)
	require.Equal(t, userID, got.UserID)
	require.Equal(t, "alice@example.com", got.DisplayName)
	require.Equal(t, jwtx.RoleUser, got.Role)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	srv, c := newBackend(t)
	id, err := srv.AddUser("alice@example.com", "alice@example.com", "Secret123!", jwtx.RoleAuthor)
	require.NoError(t, err)

	t.Run("missing fields never reach the server", func(t *testing.T) {
		store := session.New()
		_, err := c.Login(t.Context(), store, "", "")
		require.ErrorIs(t, err, errx.ErrValidation)
		require.Zero(t, srv.Hits(authsdk.PathToken))
	})

	t.Run("wrong password clears a stale session", func(t *testing.T) {
		store := signedInStore()
		_, err := c.Login(t.Context(), store, "alice@example.com", "wrong")
		require.ErrorIs(t, err, errx.ErrUnauthorized)
		require.Nil(t, store.GetSession())
	})

	t.Run("success", func(t *testing.T) {
		store := session.New()
		user, err := c.Login(t.Context(), store, "alice@example.com", "Secret123!")
		require.NoError(t, err)
		require.Equal(t, id, user.UserID)
		require.Equal(t, jwtx.RoleAuthor, user.Role)
		require.Equal(t, user, store.GetSession())
	})

	t.Run("no fingerprint", func(t *testing.T) {
		bare := *c
		bare.Fingerprint = nil
		_, err := bare.Login(t.Context(), session.New(), "alice@example.com", "Secret123!")
		require.ErrorIs(t, err, authsdk.ErrNoFingerprint)
	})
}

func TestLoginUndecodableTokensWriteNothing(t *testing.T) {
	t.Parallel()

	c := newStub(t, respond(http.StatusOK, `{"access_token":"not-a-jwt","refresh_token":"a.b.c"}`))
	store := session.New()

	_, err := c.Login(t.Context(), store, "alice", "Secret123!")
	require.ErrorIs(t, err, errx.ErrTokenValidation)
	require.False(t, store.IsAuthenticated())
}

func TestAuthedSession(t *testing.T) {
	t.Parallel()

	srv, c := newBackend(t)
	_, err := srv.AddUser("alice", "alice@example.com", "Secret123!", jwtx.RoleUser)
	require.NoError(t, err)

	store := session.New()
	_, err = c.Login(t.Context(), store, "alice", "Secret123!")
	require.NoError(t, err)

	w := authsdk.NewWrapper(c, store)
	get := func(t *testing.T) (*http.Response, error) {
		t.Helper()
		resp, err := c.Authed(t.Context(), w, http.MethodGet, fakeauth.PathProtected, nil)
		if resp != nil {
			t.Cleanup(func() { resp.Body.Close() })
		}
		return resp, err
	}

	t.Run("valid access cookie", func(t *testing.T) {
		resp, err := get(t)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Zero(t, srv.Hits(authsdk.PathRefresh))
	})

	t.Run("expired access is refreshed", func(t *testing.T) {
		srv.ExpireAccessTokens()

		resp, err := get(t)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, 1, srv.Hits(authsdk.PathRefresh))
		require.True(t, store.IsAuthenticated())
	})

	t.Run("forbidden passes through", func(t *testing.T) {
		srv.FailNext(fakeauth.PathProtected, http.StatusForbidden)

		resp, err := get(t)
		require.NoError(t, err)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, 1, srv.Hits(authsdk.PathRefresh))
		require.True(t, store.IsAuthenticated())
	})

	t.Run("blocked refresh signs out", func(t *testing.T) {
		srv.ExpireAccessTokens()
		srv.BlockRefreshTokens()

		_, err := get(t)
		require.ErrorIs(t, err, errx.ErrUnauthorized)
		require.False(t, store.IsAuthenticated())
	})
}

func TestAuthedConcurrentExpiry(t *testing.T) {
	t.Parallel()

	srv, c := newBackend(t)
	_, err := srv.AddUser("alice", "alice@example.com", "Secret123!", jwtx.RoleUser)
	require.NoError(t, err)

	store := session.New()
	_, err = c.Login(t.Context(), store, "alice", "Secret123!")
	require.NoError(t, err)
	srv.ExpireAccessTokens()

	w := authsdk.NewWrapper(c, store)

	const callers = 4
	statuses := make(chan int, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Authed(t.Context(), w, http.MethodGet, fakeauth.PathProtected, nil)
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	// Refresh tokens are single use, so only a shared refresh can satisfy
	// every caller. Callers that arrive after the rotation see the new cookie
	// and never refresh at all.
	for status := range statuses {
		require.Equal(t, http.StatusOK, status)
	}
	require.True(t, store.IsAuthenticated())
}

func TestLogout(t *testing.T) {
	t.Parallel()

	srv, c := newBackend(t)
	_, err := srv.AddUser("alice", "alice@example.com", "Secret123!", jwtx.RoleUser)
	require.NoError(t, err)

	store := session.New()
	_, err = c.Login(t.Context(), store, "alice", "Secret123!")
	require.NoError(t, err)

	c.Logout(t.Context(), store)
	require.Nil(t, store.GetSession())

	// Without cookies the protected call is 401 and the refresh has nothing
	// to present.
	_, err = c.Authed(t.Context(), authsdk.NewWrapper(c, store), http.MethodGet, fakeauth.PathProtected, nil)
	require.ErrorIs(t, err, errx.ErrUnauthorized)
}
