package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/sessionkit/pkg/errx"
	"github.com/aussiebroadwan/sessionkit/pkg/idx"
)

const transportMessage = "Error with request to the server"

// url builds a complete URL by appending the path to the base URL.
func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// newRequest builds a request carrying the headers every backend call needs.
func (c *SDKClient) newRequest(
	ctx context.Context,
	method, path string,
	body []byte,
	locale string,
) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), r)
	if err != nil {
		return nil, errx.Wrap(errx.KindTransport, transportMessage, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", c.locale(locale))
	req.Header.Set("X-Forwarded-For", ForwardedForAuto)
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("X-Request-ID", idx.New().String())

	return req, nil
}

// doRequest performs an HTTP request with the SDKClient's HTTP client.
// Transport failures come back as errx transport errors.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body []byte,
	locale string,
) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body, locale)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.log(ctx).Warn("request failed", "method", method, "path", path, "err", err)
		return nil, errx.Wrap(errx.KindTransport, transportMessage, err)
	}

	return resp, nil
}

// doJSON marshals payload (nil for no body) and performs the request.
func (c *SDKClient) doJSON(ctx context.Context, method, path string, payload any, locale string) (*http.Response, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, errx.Wrap(errx.KindValidation, MsgInvalidData, fmt.Errorf("failed to encode request: %w", err))
		}
	}
	return c.doRequest(ctx, method, path, body, locale)
}

// decodeJSON reads the response once. A non-2xx status is classified through
// messages; a 2xx body is decoded into target, and a body that does not
// decode is a validation error.
func decodeJSON(resp *http.Response, target any, messages statusMessages) error {
	defer resp.Body.Close()

	// Read body once for both error parsing and success decoding
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errx.Wrap(errx.KindTransport, transportMessage, fmt.Errorf("failed to read response body: %w", err))
	}

	if !isSuccess(resp.StatusCode) {
		return parseErrorResponse(resp, bodyBytes, messages)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return errx.Wrap(errx.KindValidation, MsgInvalidResponse, fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}

// drain discards and closes a body so the connection can be reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
