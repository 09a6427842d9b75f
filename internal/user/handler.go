package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sebuszqo/TaxManager/internal/api"
	"github.com/sebuszqo/TaxManager/internal/session"
)

type Handler struct {
	userService  Service
	respondJSON  api.JSONResponder
	respondError api.ErrorResponder
}

func NewHandler(userService Service, respondJSON api.JSONResponder, respondError api.ErrorResponder) *Handler {
	return &Handler{
		userService:  userService,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *Handler) HandleGetUserProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Could not fetch user data")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"id":                 user.ID,
			"name":               user.Name,
			"email":              user.Email,
			"two_factor_enabled": user.TwoFactorEnabled,
			"last_tax_summary":   user.LastTaxSummary,
		},
	})
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), p.UserID, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Could not update profile")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.userService.ChangePassword(r.Context(), p.UserID, req); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Could not change password")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully",
	})
}
