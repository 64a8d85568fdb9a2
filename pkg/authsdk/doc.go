/*
Package authsdk is the client side of the cookie-session authentication
backend.

# Overview

SDKClient performs the credential calls: token exchange, refresh,
registration, the busy-login and busy-email probes and light (anonymous)
registration. It holds no session state of its own. The backend answers
every credential call with an access_token and refresh_token cookie pair,
and those cookies live in the HTTP client's jar:

	client := authsdk.NewSDKClient("https://auth.example.com")
	store := session.New()

	user, err := client.Login(ctx, store, "alice@example.com", "Secret123!")

Login validates the input, exchanges it, decodes both tokens with jwtx and
commits the resulting user to the session store. Nothing is written when
either token fails to decode.

# Authenticated Requests

Wrapper turns a plain request into one that survives access-token expiry:

	w := authsdk.NewWrapper(client, store)
	resp, err := client.Authed(ctx, w, http.MethodGet, "/api/v1/orders", nil)

A 401 from the first attempt triggers exactly one refresh. When the refresh
succeeds the request is replayed once and whatever it yields is returned,
including a second 401. When the refresh fails the session store is cleared
and an errx unauthorized error is returned. Every other status, 403
included, is returned untouched.

Concurrent 401s share one in-flight refresh by default. The backend rotates
refresh tokens on use, so independent refreshes would invalidate each other;
WithSharedRefresh(false) restores the one-refresh-per-call behaviour for
backends that do not rotate.

# Errors

Failures are *errx.Error values. Branch on the kind, not the message:

	_, err := client.Exchange(ctx, login, password, fp, "")
	switch {
	case errors.Is(err, errx.ErrUnauthorized):
		// wrong credentials
	case errors.Is(err, errx.ErrTokenValidation):
		// 2xx with a malformed token body
	case authsdk.IsRetryable(err):
		// transport failure or 5xx
	}

Each endpoint maps only the statuses it documents. Anything else becomes
an unexpected error carrying the status code.

Refresh is the exception: it reports success as a bool and logs the reason
for a failure, since a rejected refresh is an expected outcome.

# Headers

Every request carries Accept-Language (ru-RU unless configured),
X-Forwarded-For: AUTO_DETECT_IP so the server resolves the caller address
itself, a User-Agent and an X-Request-ID.

# Thread Safety

SDKClient and Wrapper are safe for concurrent use once configured.
*/
package authsdk
