package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sebuszqo/TaxManager/internal/api"
	"github.com/sebuszqo/TaxManager/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleGetUserProfile(t *testing.T) {
	repo := NewMockRepository()
	service := NewUserService(repo)
	user, err := service.Register(context.Background(), "Juan", "juan@example.com", "secret1")
	require.NoError(t, err)
	repo.Users[user.ID].LastTaxSummary = json.RawMessage(`{"taxDue":13500,"type":"individual"}`)

	handler := NewHandler(service, api.RespondJSON, api.RespondError)
	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req = req.WithContext(session.WithPrincipal(req.Context(), session.Principal{UserID: user.ID}))
	w := httptest.NewRecorder()
	handler.HandleGetUserProfile(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		User struct {
			ID             string                 `json:"id"`
			Name           string                 `json:"name"`
			LastTaxSummary map[string]interface{} `json:"last_tax_summary"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, user.ID, body.User.ID)
	assert.Equal(t, "Juan", body.User.Name)
	assert.Equal(t, float64(13500), body.User.LastTaxSummary["taxDue"])
}

func TestHandleGetUserProfile_Unauthorized(t *testing.T) {
	handler := NewHandler(NewUserService(NewMockRepository()), api.RespondJSON, api.RespondError)

	w := httptest.NewRecorder()
	handler.HandleGetUserProfile(w, httptest.NewRequest(http.MethodGet, "/api/user/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleChangePassword_ValidationError(t *testing.T) {
	service := NewUserService(NewMockRepository())
	user, err := service.Register(context.Background(), "Juan", "juan@example.com", "secret1")
	require.NoError(t, err)

	handler := NewHandler(service, api.RespondJSON, api.RespondError)
	body := `{"current_password":"wrong","new_password":"longer-secret","new_password_confirmation":"longer-secret"}`
	req := httptest.NewRequest(http.MethodPut, "/api/user/password", bytes.NewBufferString(body))
	req = req.WithContext(session.WithPrincipal(req.Context(), session.Principal{UserID: user.ID}))
	w := httptest.NewRecorder()
	handler.HandleChangePassword(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp["errors"], "current_password")
}

func TestHandleUpdateProfile_InvalidBody(t *testing.T) {
	handler := NewHandler(NewUserService(NewMockRepository()), api.RespondJSON, api.RespondError)

	req := httptest.NewRequest(http.MethodPut, "/api/user/profile", bytes.NewBufferString("{"))
	req = req.WithContext(session.WithPrincipal(req.Context(), session.Principal{UserID: "u1"}))
	w := httptest.NewRecorder()
	handler.HandleUpdateProfile(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
