package auth

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/sebuszqo/TaxManager/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	users      *user.MockRepository
	twoFactor  *MockTwoFactorRepository
	jwtManager *JWTManager
	sessions   *SessionManager
	service    Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := user.NewMockRepository()
	twoFactor := NewMockTwoFactorRepository(users)
	jwtManager := NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	sessions := NewSessionManager()
	return &testEnv{
		users:      users,
		twoFactor:  twoFactor,
		jwtManager: jwtManager,
		sessions:   sessions,
		service:    NewAuthService(twoFactor, user.NewUserService(users), sessions, jwtManager, NewAuthenticator("TaxManager")),
	}
}

func (e *testEnv) register(t *testing.T) (*user.User, *Tokens) {
	t.Helper()
	u, tokens, err := e.service.Register(context.Background(), "Juan", "juan@example.com", "secret1")
	require.NoError(t, err)
	return u, tokens
}

func (e *testEnv) enableTwoFactor(t *testing.T, userID string) string {
	t.Helper()
	ctx := context.Background()
	_, err := e.service.RegisterTwoFactor(ctx, userID, google2FAAuthMethod)
	require.NoError(t, err)
	secret := e.twoFactor.Secrets[userID]
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, e.service.VerifyTwoFactorRegistration(ctx, userID, google2FAAuthMethod, code))
	return secret
}

// invalidCode returns a code rejected for secret within the current skew window.
func invalidCode(t *testing.T, secret string) string {
	t.Helper()
	now := time.Now()
	valid := map[string]bool{}
	for _, offset := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		code, err := totp.GenerateCode(secret, now.Add(offset))
		require.NoError(t, err)
		valid[code] = true
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[candidate] {
			return candidate
		}
	}
	t.Fatal("no invalid code found")
	return ""
}

func TestRegister_IssuesTokensBoundToHashToken(t *testing.T) {
	env := newTestEnv(t)
	u, tokens := env.register(t)

	claims, err := env.jwtManager.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.True(t, env.jwtManager.VerifyCustomKey(claims, env.users.Users[u.ID].HashToken))
	assert.NoError(t, env.jwtManager.ValidateRefreshToken(tokens.RefreshToken, env.users.Users[u.ID].HashToken))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	u, first := env.register(t)

	result, err := env.service.Login(context.Background(), "juan@example.com", "secret1")
	require.NoError(t, err)
	require.False(t, result.TwoFactorRequired())
	assert.Equal(t, u.ID, result.User.ID)

	hashToken := env.users.Users[u.ID].HashToken
	claims, err := env.jwtManager.ValidateAccessToken(first.AccessToken)
	require.NoError(t, err)
	assert.False(t, env.jwtManager.VerifyCustomKey(claims, hashToken), "login revokes earlier tokens")

	claims, err = env.jwtManager.ValidateAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, env.jwtManager.VerifyCustomKey(claims, hashToken))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t)

	_, err := env.service.Login(context.Background(), "juan@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.service.Login(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Login(context.Background(), " ", "")

	fields := apperrors.FieldErrors(err)
	assert.Equal(t, []string{"The email field is required."}, fields["email"])
	assert.Equal(t, []string{"The password field is required."}, fields["password"])
}

func TestLogout_RevokesTokens(t *testing.T) {
	env := newTestEnv(t)
	u, tokens := env.register(t)

	require.NoError(t, env.service.Logout(context.Background(), u.ID))

	hashToken := env.users.Users[u.ID].HashToken
	claims, err := env.jwtManager.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.False(t, env.jwtManager.VerifyCustomKey(claims, hashToken))
	assert.ErrorIs(t, env.jwtManager.ValidateRefreshToken(tokens.RefreshToken, hashToken), ErrInvalidJWTRefreshToken)
}

func TestRefreshAccessToken(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.register(t)

	tokens, err := env.service.RefreshAccessToken(context.Background(), u.ID)
	require.NoError(t, err)

	claims, err := env.jwtManager.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, err = env.service.RefreshAccessToken(context.Background(), "missing")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestTwoFactorLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.register(t)
	secret := env.enableTwoFactor(t, u.ID)
	assert.True(t, env.users.Users[u.ID].TwoFactorEnabled)

	result, err := env.service.Login(ctx, "juan@example.com", "secret1")
	require.NoError(t, err)
	require.True(t, result.TwoFactorRequired())
	require.NotEmpty(t, result.SessionToken)

	_, err = env.service.VerifyTwoFactor(ctx, result.SessionToken, invalidCode(t, secret))
	assert.ErrorIs(t, err, ErrInvalid2FACode)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	verified, err := env.service.VerifyTwoFactor(ctx, result.SessionToken, code)
	require.NoError(t, err)
	assert.NotEmpty(t, verified.Tokens.AccessToken)

	_, err = env.service.VerifyTwoFactor(ctx, result.SessionToken, code)
	assert.ErrorIs(t, err, ErrInvalidSessionToken, "session token is single use")
}

func TestVerifyTwoFactor_DropsSessionAfterRepeatedWrongCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.register(t)
	secret := env.enableTwoFactor(t, u.ID)

	result, err := env.service.Login(ctx, "juan@example.com", "secret1")
	require.NoError(t, err)

	wrong := invalidCode(t, secret)
	for i := 0; i < maxSessionTokenFailures; i++ {
		_, err = env.service.VerifyTwoFactor(ctx, result.SessionToken, wrong)
		assert.ErrorIs(t, err, ErrInvalid2FACode)
	}

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	_, err = env.service.VerifyTwoFactor(ctx, result.SessionToken, code)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}

func TestRegisterTwoFactor_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.register(t)

	_, err := env.service.RegisterTwoFactor(ctx, u.ID, "sms")
	assert.ErrorIs(t, err, ErrInvalidTwoFactorMethod)

	err = env.service.VerifyTwoFactorRegistration(ctx, u.ID, google2FAAuthMethod, "123456")
	assert.ErrorIs(t, err, ErrTwoFactorNotRegistered)

	env.enableTwoFactor(t, u.ID)
	_, err = env.service.RegisterTwoFactor(ctx, u.ID, google2FAAuthMethod)
	assert.ErrorIs(t, err, ErrUser2FAAlreadyEnabled)
}

func TestDisableTwoFactorAuth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.register(t)

	err := env.service.DisableTwoFactorAuth(ctx, u.ID, google2FAAuthMethod, "123456")
	assert.ErrorIs(t, err, ErrUser2FANotEnabled)

	secret := env.enableTwoFactor(t, u.ID)
	assert.ErrorIs(t, env.service.DisableTwoFactorAuth(ctx, u.ID, google2FAAuthMethod, invalidCode(t, secret)), ErrInvalid2FACode)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.service.DisableTwoFactorAuth(ctx, u.ID, google2FAAuthMethod, code))
	assert.False(t, env.users.Users[u.ID].TwoFactorEnabled)
	assert.NotContains(t, env.twoFactor.Secrets, u.ID)
}
