package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sessionkit/pkg/errx"
)

// statusMessages maps the statuses an endpoint documents to the message
// surfaced for them. Undocumented statuses become errx unexpected errors.
type statusMessages map[int]string

// Backend messages, kept verbatim so callers and logs match server wording.
const (
	MsgInvalidCredentials   = "Invalid credentials"
	MsgInvalidData          = "Invalid data"
	MsgInternalServer       = "Internal server error"
	MsgTokensInvalid        = "Tokens data is invalid"
	MsgRefreshNotValid      = "Refresh token not valid."
	MsgRefreshExpired       = "Refresh token expired or blocked."
	MsgUserUnauthorized     = "User unauthorized"
	MsgUserExists           = "User with this data already exists."
	MsgInvalidRequestFormat = "Invalid request format"
	MsgInvalidResponse      = "Response data is invalid"
)

var (
	exchangeMessages = statusMessages{
		http.StatusUnauthorized:        MsgInvalidCredentials,
		http.StatusUnprocessableEntity: MsgInvalidData,
		http.StatusInternalServerError: MsgInternalServer,
	}

	probeMessages = statusMessages{
		http.StatusUnprocessableEntity: MsgInvalidRequestFormat,
		http.StatusInternalServerError: MsgInternalServer,
	}

	registerMessages = statusMessages{
		http.StatusConflict:            MsgUserExists,
		http.StatusUnprocessableEntity: MsgInvalidData,
		http.StatusInternalServerError: MsgInternalServer,
	}

	lightRegisterMessages = statusMessages{
		http.StatusConflict:            MsgUserExists,
		http.StatusInternalServerError: MsgInternalServer,
	}
)

// parseErrorResponse classifies a non-2xx response. The server's detail text
// is attached for diagnostics but never replaces the mapped message.
func parseErrorResponse(resp *http.Response, body []byte, messages statusMessages) error {
	// Success responses
	if isSuccess(resp.StatusCode) {
		return nil
	}

	msg, ok := messages[resp.StatusCode]
	if !ok {
		e := errx.Unexpected(resp.StatusCode)
		e.Detail = detailText(body)
		return e
	}

	e := &errx.Error{
		Kind:       kindForStatus(resp.StatusCode),
		Message:    msg,
		Detail:     detailText(body),
		StatusCode: resp.StatusCode,
	}
	return e
}

func kindForStatus(status int) errx.Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errx.KindUnauthorized
	case status == http.StatusNotFound:
		return errx.KindNotFound
	case status == http.StatusConflict:
		return errx.KindConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return errx.KindValidation
	case status >= 500:
		return errx.KindInternalServer
	default:
		return errx.KindUnexpected
	}
}

// detailText flattens {"detail": "..."} or {"detail": [{"msg": "..."}]}.
func detailText(body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}

	switch d := errResp.Detail.(type) {
	case string:
		return d
	case []any:
		parts := make([]string, 0, len(d))
		for _, item := range d {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := m["msg"].(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		return fmt.Sprint(d)
	}
}

// IsRetryable reports whether err is a failure worth repeating an
// idempotent request for: transport errors and server side 5xx.
func IsRetryable(err error) bool {
	if errx.IsKind(err, errx.KindTransport) {
		return true
	}
	var e *errx.Error
	return errors.As(err, &e) && e.StatusCode >= 500
}
