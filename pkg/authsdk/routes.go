package authsdk

// Backend routes, relative to SDKClient.BaseURL.
const (
	PathToken         = "/api/v1/auth/token/"
	PathRefresh       = "/api/v1/auth/refresh/"
	PathRegister      = "/api/v1/auth/register/"
	PathLightRegister = "/api/v1/auth/light-register"
	PathLoginBusy     = "/api/v1/auth/is-user-exists/"
	PathEmailBusy     = "/api/v1/auth/is-email-busy/"
)

// Cookie names set by the backend on login, registration and refresh.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
)
