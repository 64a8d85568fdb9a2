package authsdk

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/sessionkit/pkg/errx"
	"github.com/google/uuid"
)

// IsLoginBusy reports whether login is already taken. The answer reserves
// nothing; registration can still conflict.
func (c *SDKClient) IsLoginBusy(ctx context.Context, login string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, PathLoginBusy+url.PathEscape(login), nil, "")
	if err != nil {
		return false, err
	}

	var out LoginBusyResponse
	if err := decodeJSON(resp, &out, probeMessages); err != nil {
		return false, err
	}
	return out.LoginBusy, nil
}

// IsEmailBusy reports whether email is already registered.
func (c *SDKClient) IsEmailBusy(ctx context.Context, email string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, PathEmailBusy+url.PathEscape(email), nil, "")
	if err != nil {
		return false, err
	}

	var out EmailBusyResponse
	if err := decodeJSON(resp, &out, probeMessages); err != nil {
		return false, err
	}
	return out.EmailBusy, nil
}

// Register creates an account and returns its token pair. A 409 is final:
// it is never retried.
func (c *SDKClient) Register(
	ctx context.Context,
	login, password, email, fingerprint string,
) (TokenPair, error) {
	req := RegisterRequest{
		Login:       login,
		Password:    password,
		Email:       email,
		Fingerprint: fingerprint,
	}

	if errs := req.Validate(); errs != nil {
		return TokenPair{}, &errx.Error{
			Kind:    errx.KindValidation,
			Message: MsgInvalidData,
			Detail:  joinFieldErrors(errs),
		}
	}

	resp, err := c.doJSON(ctx, http.MethodPost, PathRegister, req, "")
	if err != nil {
		return TokenPair{}, err
	}

	return readTokenPair(resp, registerMessages)
}

// LightRegister obtains an anonymous device identity.
func (c *SDKClient) LightRegister(ctx context.Context) (uuid.UUID, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, PathLightRegister, nil, "")
	if err != nil {
		return uuid.Nil, err
	}

	var out LightRegisterResponse
	if err := decodeJSON(resp, &out, lightRegisterMessages); err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(out.UserID)
	if err != nil {
		e := errx.Validation("Invalid user id in response")
		e.Cause = err
		return uuid.Nil, e
	}
	return id, nil
}
