package authsdk

// ============================================================================
// Wire Types (shared by the client and the in-process test backend)
// ============================================================================

// ErrorResponse is the backend's error body. Detail is either a string or a
// list of field errors; see detailText.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// TokenPair is the credential pair issued by login or registration. Both
// values are opaque to the client apart from their payload claims.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginRequest is the body of POST /api/v1/auth/token/.
type LoginRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	Fingerprint string `json:"fingerprint"`
}

// RegisterRequest is the body of POST /api/v1/auth/register/.
type RegisterRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	Fingerprint string `json:"fingerprint"`
}

// LoginBusyResponse answers GET /api/v1/auth/is-user-exists/{login}.
type LoginBusyResponse struct {
	LoginBusy bool `json:"login_busy"`
}

// EmailBusyResponse answers GET /api/v1/auth/is-email-busy/{email}.
type EmailBusyResponse struct {
	EmailBusy bool `json:"email_busy"`
}

// LightRegisterResponse answers POST /api/v1/auth/light-register.
type LightRegisterResponse struct {
	UserID string `json:"user_id"`
}

// tokenEnvelope detects absent or null token fields, which TokenPair cannot.
type tokenEnvelope struct {
	AccessToken  *string `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
}
