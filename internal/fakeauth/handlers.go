package fakeauth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/httpx"
	"github.com/aussiebroadwan/sessionkit/pkg/jwtx"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
)

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if errs := req.Validate(); errs != nil {
		httpx.WriteFieldErrors(w, errs)
		return
	}

	acct, err := s.accounts.authenticate(req.Login, req.Password)
	if err != nil {
		httpx.WriteDetail(w, http.StatusUnauthorized, "Login or password is incorrect.")
		return
	}

	s.writePair(w, r, http.StatusOK, acct, req.Fingerprint)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if errs := req.Validate(); errs != nil {
		httpx.WriteFieldErrors(w, errs)
		return
	}

	acct, err := s.accounts.create(req.Login, req.Email, req.Password, jwtx.RoleUser)
	switch {
	case errors.Is(err, ErrUserExists):
		httpx.WriteDetail(w, http.StatusConflict, authsdk.MsgUserExists)
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("failed to create account", "err", err)
		httpx.WriteDetail(w, http.StatusInternalServerError, authsdk.MsgInternalServer)
		return
	}

	s.writePair(w, r, http.StatusCreated, acct, req.Fingerprint)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(authsdk.CookieRefreshToken)
	if err != nil || c.Value == "" {
		httpx.WriteDetail(w, http.StatusUnauthorized, authsdk.MsgRefreshNotValid)
		return
	}

	claims, err := s.tokens.consumeRefresh(c.Value)
	switch {
	case errors.Is(err, ErrTokenBlocked):
		httpx.WriteDetail(w, http.StatusForbidden, authsdk.MsgRefreshExpired)
		return
	case err != nil:
		slogx.FromContext(r.Context()).Debug("refresh token rejected", "err", err)
		httpx.WriteDetail(w, http.StatusUnauthorized, authsdk.MsgRefreshNotValid)
		return
	}

	acct, ok := s.accounts.byID(claims.UserID)
	if !ok {
		httpx.WriteDetail(w, http.StatusUnauthorized, authsdk.MsgRefreshNotValid)
		return
	}

	s.writePair(w, r, http.StatusOK, acct, claims.Fingerprint)
}

func (s *Server) handleLightRegister(w http.ResponseWriter, _ *http.Request) {
	id := s.accounts.createGuest()
	httpx.WriteJSON(w, http.StatusOK, authsdk.LightRegisterResponse{UserID: id.String()})
}

func (s *Server) handleLoginBusy(w http.ResponseWriter, r *http.Request) {
	login := r.PathValue("login")
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginBusyResponse{LoginBusy: s.accounts.loginBusy(login)})
}

func (s *Server) handleEmailBusy(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	httpx.WriteJSON(w, http.StatusOK, authsdk.EmailBusyResponse{EmailBusy: s.accounts.emailBusy(email)})
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	claims, _ := httpx.ClaimsFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"user_id": claims.UserID.String(),
	})
}

// writePair issues tokens, sets both cookies and writes the pair as JSON.
func (s *Server) writePair(w http.ResponseWriter, r *http.Request, status int, acct *Account, fingerprint string) {
	logger := slogx.FromContext(slogx.With(r.Context(), "user_id", acct.ID))
	pair, err := s.tokens.issue(acct, fingerprint, clientIP(r))
	if err != nil {
		logger.Error("failed to issue tokens", "err", err)
		httpx.WriteDetail(w, http.StatusInternalServerError, "Error with creating JWT token")
		return
	}

	secure := r.TLS != nil
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.CookieAccessToken,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.CookieRefreshToken,
		Value:    pair.RefreshToken,
		Path:     "/api/v1/auth",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})

	logger.Debug("token pair issued", "status", status)
	httpx.WriteJSON(w, status, pair)
}

func clientIP(r *http.Request) string {
	return httpx.IPKeyExtractor(r)
}
