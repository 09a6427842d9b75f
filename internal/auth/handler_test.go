package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sebuszqo/TaxManager/internal/api"
	"github.com/sebuszqo/TaxManager/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(env *testEnv) *http.ServeMux {
	handler := NewHandler(env.service, api.RespondJSON, api.RespondError, false)
	protected := env.service.JWTAccessTokenMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", handler.HandleRegister)
	mux.HandleFunc("POST /api/login", handler.HandleLogin)
	mux.Handle("POST /api/logout", protected(http.HandlerFunc(handler.HandleLogout)))
	mux.Handle("PUT /api/refresh/token", env.service.JWTRefreshTokenMiddleware()(http.HandlerFunc(handler.HandleRefreshAccessToken)))
	mux.Handle("GET /api/whoami", protected(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := session.PrincipalFromContext(r.Context())
		api.RespondJSON(w, http.StatusOK, map[string]string{"user_id": p.UserID})
	})))
	return mux
}

func doJSON(mux http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

type sessionBody struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Token string `json:"token"`
}

func TestHandleRegister(t *testing.T) {
	mux := newTestMux(newTestEnv(t))

	w := doJSON(mux, http.MethodPost, "/api/register", map[string]string{
		"name": "Juan", "email": "juan@example.com", "password": "secret1",
	}, "")

	require.Equal(t, http.StatusCreated, w.Code)
	var body sessionBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "juan@example.com", body.User.Email)
	assert.NotEmpty(t, body.Token)
	assert.NotContains(t, w.Body.String(), "password")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, refreshTokenCookie, cookies[0].Name)
	assert.Equal(t, refreshTokenPath, cookies[0].Path)
	assert.True(t, cookies[0].HttpOnly)
}

func TestHandleRegister_EmailTaken(t *testing.T) {
	mux := newTestMux(newTestEnv(t))
	payload := map[string]string{"name": "Juan", "email": "juan@example.com", "password": "secret1"}
	require.Equal(t, http.StatusCreated, doJSON(mux, http.MethodPost, "/api/register", payload, "").Code)

	w := doJSON(mux, http.MethodPost, "/api/register", payload, "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "The email has already been taken.")
}

func TestHandleLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t)
	mux := newTestMux(env)

	w := doJSON(mux, http.MethodPost, "/api/login", map[string]string{"email": "juan@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(mux, http.MethodPost, "/api/login", map[string]string{"email": "juan@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body sessionBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.NotEmpty(t, body.Token)
}

func TestHandleLogin_TwoFactorRequired(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.register(t)
	env.enableTwoFactor(t, u.ID)
	mux := newTestMux(env)

	w := doJSON(mux, http.MethodPost, "/api/login", map[string]string{"email": "juan@example.com", "password": "secret1"}, "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, true, body["two_factor_required"])
	assert.NotEmpty(t, body["session_token"])
	assert.Empty(t, w.Result().Cookies())
}

func TestAccessMiddleware(t *testing.T) {
	env := newTestEnv(t)
	u, tokens := env.register(t)
	mux := newTestMux(env)

	assert.Equal(t, http.StatusUnauthorized, doJSON(mux, http.MethodGet, "/api/whoami", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(mux, http.MethodGet, "/api/whoami", nil, "garbage").Code)

	w := doJSON(mux, http.MethodGet, "/api/whoami", nil, tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), u.ID)
}

func TestAccessMiddleware_RejectsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	_, tokens := env.register(t)

	w := doJSON(newTestMux(env), http.MethodGet, "/api/whoami", nil, tokens.RefreshToken)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_InvalidatesBearerToken(t *testing.T) {
	env := newTestEnv(t)
	_, tokens := env.register(t)
	mux := newTestMux(env)

	w := doJSON(mux, http.MethodPost, "/api/logout", nil, tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	assert.Equal(t, http.StatusUnauthorized, doJSON(mux, http.MethodGet, "/api/whoami", nil, tokens.AccessToken).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(mux, http.MethodPost, "/api/logout", nil, tokens.AccessToken).Code)
}

func TestHandleRefreshAccessToken(t *testing.T) {
	env := newTestEnv(t)
	_, tokens := env.register(t)
	mux := newTestMux(env)

	req := httptest.NewRequest(http.MethodPut, "/api/refresh/token", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/refresh/token", nil)
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: tokens.RefreshToken})
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, doJSON(mux, http.MethodGet, "/api/whoami", nil, body.Token).Code)
}

func TestHandleRefreshAccessToken_AfterLogout(t *testing.T) {
	env := newTestEnv(t)
	_, tokens := env.register(t)
	mux := newTestMux(env)
	require.Equal(t, http.StatusOK, doJSON(mux, http.MethodPost, "/api/logout", nil, tokens.AccessToken).Code)

	req := httptest.NewRequest(http.MethodPut, "/api/refresh/token", nil)
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: tokens.RefreshToken})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
