package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sebuszqo/TaxManager/internal/api"
	"github.com/sebuszqo/TaxManager/internal/session"
	"github.com/sebuszqo/TaxManager/internal/user"
)

const refreshTokenPath = "/api/refresh/token"

type Handler struct {
	authService  Service
	respondJSON  api.JSONResponder
	respondError api.ErrorResponder
	secureCookie bool
}

func NewHandler(authService Service, respondJSON api.JSONResponder, respondError api.ErrorResponder, secureCookie bool) *Handler {
	return &Handler{
		authService:  authService,
		respondJSON:  respondJSON,
		respondError: respondError,
		secureCookie: secureCookie,
	}
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     refreshTokenPath,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     refreshTokenPath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) respondSession(w http.ResponseWriter, status int, u *user.User, tokens *Tokens) {
	h.setRefreshCookie(w, tokens.RefreshToken)
	h.respondJSON(w, status, map[string]interface{}{
		"user":  u,
		"token": tokens.AccessToken,
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	newUser, tokens, err := h.authService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Could not register user")
		return
	}

	h.respondSession(w, http.StatusCreated, newUser, tokens)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, ErrInvalidTwoFactorMethod):
			h.respondError(w, http.StatusInternalServerError, "Invalid two-factor method")
		default:
			api.RespondServiceError(r.Context(), h.respondError, w, err, "Internal server error")
		}
		return
	}

	if result.TwoFactorRequired() {
		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"two_factor_required": true,
			"2fa_auth_method":     result.User.TwoFactorMethod,
			"session_token":       result.SessionToken,
		})
		return
	}

	h.respondSession(w, http.StatusOK, result.User, result.Tokens)
}

func (h *Handler) HandleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken string `json:"session_token"`
		Code         string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionToken == "" || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.VerifyTwoFactor(r.Context(), req.SessionToken, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSessionToken), errors.Is(err, ErrExpiredSessionToken), errors.Is(err, ErrInvalid2FACode):
			h.respondError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrUser2FANotEnabled):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			api.RespondServiceError(r.Context(), h.respondError, w, err, "Could not verify two-factor authentication")
		}
		return
	}

	h.respondSession(w, http.StatusOK, result.User, result.Tokens)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.authService.Logout(r.Context(), p.UserID); err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Error during logout request.")
		return
	}

	h.clearRefreshCookie(w)
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

func (h *Handler) HandleRefreshAccessToken(w http.ResponseWriter, r *http.Request) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, ErrInvalidJWTRefreshToken.Error())
		return
	}

	tokens, err := h.authService.RefreshAccessToken(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			h.respondError(w, http.StatusUnauthorized, ErrInvalidJWTRefreshToken.Error())
			return
		}
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Internal server error")
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	h.respondJSON(w, http.StatusOK, map[string]string{
		"token": tokens.AccessToken,
	})
}

type twoFactorRequest struct {
	Method string `json:"method"`
	Code   string `json:"code"`
}

func (h *Handler) twoFactorError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrInvalidTwoFactorMethod), errors.Is(err, ErrTwoFactorNotRegistered), errors.Is(err, ErrUser2FANotEnabled):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUser2FAAlreadyEnabled):
		h.respondError(w, http.StatusConflict, "Two-factor authentication is already enabled")
	case errors.Is(err, ErrInvalid2FACode):
		h.respondError(w, http.StatusUnauthorized, "Invalid 2FA code")
	case errors.Is(err, user.ErrUserNotFound):
		h.respondError(w, http.StatusNotFound, "User not found")
	default:
		api.RespondServiceError(r.Context(), h.respondError, w, err, internalMsg)
	}
}

func (h *Handler) HandleRegisterTwoFactor(w http.ResponseWriter, r *http.Request) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req twoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method == "" {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	otpURI, err := h.authService.RegisterTwoFactor(r.Context(), p.UserID, req.Method)
	if err != nil {
		h.twoFactorError(w, r, err, "Could not register two-factor authentication")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Two-factor authentication initiated. Please verify to enable.",
		"otp_uri": otpURI,
	})
}

func (h *Handler) HandleVerifyTwoFactorRegistration(w http.ResponseWriter, r *http.Request) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req twoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method == "" || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.VerifyTwoFactorRegistration(r.Context(), p.UserID, req.Method, req.Code); err != nil {
		h.twoFactorError(w, r, err, "Could not verify two-factor authentication")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Two-factor authentication enabled successfully",
	})
}

func (h *Handler) HandleDisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req twoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method == "" || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.DisableTwoFactorAuth(r.Context(), p.UserID, req.Method, req.Code); err != nil {
		h.twoFactorError(w, r, err, "Could not disable two-factor authentication")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Two-factor authentication disabled successfully",
	})
}
