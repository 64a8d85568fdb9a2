package authsdk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/aussiebroadwan/sessionkit/pkg/errx"
)

const redacted = "[REDACTED]"

// Exchange trades credentials for a token pair. It never touches session
// state. An empty locale falls back to the client's locale.
//
// Status mapping: 401 unauthorized, 422 validation, 500 internal server,
// any other non-2xx unexpected. A 2xx body without both tokens as strings is
// a token validation error.
func (c *SDKClient) Exchange(
	ctx context.Context,
	login, password, fingerprint, locale string,
) (TokenPair, error) {
	reqBody := LoginRequest{
		Login:       login,
		Password:    password,
		Fingerprint: fingerprint,
	}

	resp, err := c.doJSON(ctx, http.MethodPost, PathToken, reqBody, locale)
	if err != nil {
		return TokenPair{}, err
	}

	pair, err := readTokenPair(resp, exchangeMessages)
	if err != nil {
		if errx.IsKind(err, errx.KindValidation) && !errx.IsKind(err, errx.KindTokenValidation) {
			c.log(ctx).Warn("token exchange rejected",
				"login", login,
				"password", redacted,
				"fingerprint", fingerprint,
				"detail", detailOf(err),
			)
		}
		return TokenPair{}, err
	}

	return pair, nil
}

// readTokenPair decodes a token-bearing response shared by login and
// registration.
func readTokenPair(resp *http.Response, messages statusMessages) (TokenPair, error) {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenPair{}, errx.Wrap(errx.KindTransport, transportMessage, err)
	}

	if !isSuccess(resp.StatusCode) {
		return TokenPair{}, parseErrorResponse(resp, bodyBytes, messages)
	}

	var env tokenEnvelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		e := errx.TokenValidation(MsgTokensInvalid)
		e.Cause = err
		return TokenPair{}, e
	}
	if env.AccessToken == nil || env.RefreshToken == nil {
		return TokenPair{}, errx.TokenValidation(MsgTokensInvalid)
	}

	return TokenPair{AccessToken: *env.AccessToken, RefreshToken: *env.RefreshToken}, nil
}

// Refresh asks the backend to rotate the session using the refresh cookie
// held by the HTTP client. It reports success as a boolean and never fails
// with an error: every failure is logged and becomes false.
func (c *SDKClient) Refresh(ctx context.Context) bool {
	logger := c.log(ctx)

	resp, err := c.doRequest(ctx, http.MethodPost, PathRefresh, nil, "")
	if err != nil {
		logger.Warn("refresh request failed", "err", err)
		return false
	}
	drain(resp)

	switch {
	case isSuccess(resp.StatusCode):
		return true
	case resp.StatusCode == http.StatusUnauthorized:
		logger.Warn("refresh rejected", "err", errx.Unauthorized(MsgRefreshNotValid), "status", resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden:
		logger.Warn("refresh rejected", "err", errx.Unauthorized(MsgRefreshExpired), "status", resp.StatusCode)
	default:
		logger.Debug("refresh returned unexpected status", "status", resp.StatusCode)
	}

	return false
}

func detailOf(err error) string {
	if e, ok := err.(*errx.Error); ok {
		return e.Detail
	}
	return ""
}
