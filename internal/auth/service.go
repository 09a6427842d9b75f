package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/sebuszqo/TaxManager/internal/logger"
	"github.com/sebuszqo/TaxManager/internal/user"
	"go.uber.org/zap"
)

const google2FAAuthMethod = "google_authenticator"

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidTwoFactorMethod = errors.New("two factor auth method not supported")
	ErrUser2FANotEnabled      = errors.New("two factor auth is not enabled")
	ErrTwoFactorNotRegistered = errors.New("two factor auth has not been registered")
	ErrInvalid2FACode         = errors.New("2fa code is invalid")
	ErrUser2FAAlreadyEnabled  = errors.New("2fa auth already enabled")
)

type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult carries either issued tokens or, when a second factor is needed,
// the session token to present with the code.
type LoginResult struct {
	User         *user.User
	Tokens       *Tokens
	SessionToken string
}

func (r *LoginResult) TwoFactorRequired() bool {
	return r.Tokens == nil
}

type Service interface {
	Register(ctx context.Context, name, email, password string) (*user.User, *Tokens, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyTwoFactor(ctx context.Context, sessionToken, code string) (*LoginResult, error)
	Logout(ctx context.Context, userID string) error
	RefreshAccessToken(ctx context.Context, userID string) (*Tokens, error)
	RegisterTwoFactor(ctx context.Context, userID, method string) (string, error)
	VerifyTwoFactorRegistration(ctx context.Context, userID, method, code string) error
	DisableTwoFactorAuth(ctx context.Context, userID, method, code string) error
	JWTAccessTokenMiddleware() func(http.Handler) http.Handler
	JWTRefreshTokenMiddleware() func(http.Handler) http.Handler
}

type service struct {
	repo           TwoFactorRepository
	userService    user.Service
	sessionManager SessionManagerInterface
	jwtManager     JWTManagerInterface
	authenticator  TwoFactorAuthenticator
}

func NewAuthService(repo TwoFactorRepository, userService user.Service, sessionManager SessionManagerInterface, jwtManager JWTManagerInterface, authenticator TwoFactorAuthenticator) Service {
	return &service{
		repo:           repo,
		userService:    userService,
		sessionManager: sessionManager,
		jwtManager:     jwtManager,
		authenticator:  authenticator,
	}
}

func (s *service) issueTokens(userID, hashToken string) (*Tokens, error) {
	accessToken, err := s.jwtManager.GenerateAccessJWT(userID, hashToken)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshJWT(userID, hashToken)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &Tokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// startSession revokes every earlier token of the user and issues a fresh pair.
func (s *service) startSession(ctx context.Context, u *user.User) (*LoginResult, error) {
	hashToken, err := s.userService.RotateHashToken(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("rotate hash token: %w", err)
	}
	u.HashToken = hashToken

	tokens, err := s.issueTokens(u.ID, hashToken)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Tokens: tokens}, nil
}

func (s *service) Register(ctx context.Context, name, email, password string) (*user.User, *Tokens, error) {
	newUser, err := s.userService.Register(ctx, name, email, password)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(newUser.ID, newUser.HashToken)
	if err != nil {
		return nil, nil, err
	}
	return newUser, tokens, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	v := &apperrors.ValidationError{}
	if strings.TrimSpace(email) == "" {
		v.Add("email", "The email field is required.")
	}
	if password == "" {
		v.Add("password", "The password field is required.")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	existingUser, err := s.userService.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.DoPasswordsMatch(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if existingUser.TwoFactorEnabled {
		if existingUser.TwoFactorMethod != google2FAAuthMethod {
			return nil, ErrInvalidTwoFactorMethod
		}
		sessionToken, err := s.sessionManager.GenerateSessionToken(existingUser.ID, defaultSessionTokenDuration)
		if err != nil {
			return nil, fmt.Errorf("generate session token: %w", err)
		}
		return &LoginResult{User: existingUser, SessionToken: sessionToken}, nil
	}

	return s.startSession(ctx, existingUser)
}

func (s *service) VerifyTwoFactor(ctx context.Context, sessionToken, code string) (*LoginResult, error) {
	userID, err := s.sessionManager.VerifySessionToken(sessionToken)
	if err != nil {
		return nil, err
	}

	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !existingUser.TwoFactorEnabled {
		return nil, ErrUser2FANotEnabled
	}

	secret, err := s.repo.GetTwoFactorSecret(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.authenticator.VerifyCode(secret, code) {
		if s.sessionManager.RecordFailedAttempt(sessionToken) == 0 {
			logger.FromContext(ctx).Warn("2FA session token dropped after repeated wrong codes", zap.String("user_id", userID))
		}
		return nil, ErrInvalid2FACode
	}

	s.sessionManager.DeleteSessionToken(sessionToken)
	return s.startSession(ctx, existingUser)
}

// Logout revokes every access and refresh token of the user.
func (s *service) Logout(ctx context.Context, userID string) error {
	if _, err := s.userService.RotateHashToken(ctx, userID); err != nil {
		return fmt.Errorf("rotate hash token: %w", err)
	}
	logger.FromContext(ctx).Info("user logged out, tokens revoked")
	return nil
}

// RefreshAccessToken is called after JWTRefreshTokenMiddleware validated the cookie.
func (s *service) RefreshAccessToken(ctx context.Context, userID string) (*Tokens, error) {
	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(existingUser.ID, existingUser.HashToken)
}

func validateMethod(method string) error {
	if method != "" && method != google2FAAuthMethod {
		return ErrInvalidTwoFactorMethod
	}
	return nil
}

func (s *service) RegisterTwoFactor(ctx context.Context, userID, method string) (string, error) {
	if err := validateMethod(method); err != nil {
		return "", err
	}

	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if existingUser.TwoFactorEnabled {
		return "", ErrUser2FAAlreadyEnabled
	}

	otpURI, secret, err := s.authenticator.GenerateSecret(existingUser.Email)
	if err != nil {
		return "", err
	}
	if err := s.repo.SaveTwoFactorSecret(ctx, userID, secret); err != nil {
		return "", err
	}
	return otpURI, nil
}

func (s *service) VerifyTwoFactorRegistration(ctx context.Context, userID, method, code string) error {
	if err := validateMethod(method); err != nil {
		return err
	}

	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if existingUser.TwoFactorEnabled {
		return ErrUser2FAAlreadyEnabled
	}

	secret, err := s.repo.GetTwoFactorSecret(ctx, userID)
	if err != nil {
		return err
	}
	if !s.authenticator.VerifyCode(secret, code) {
		return ErrInvalid2FACode
	}

	if err := s.repo.EnableTwoFactor(ctx, userID, google2FAAuthMethod); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("two-factor authentication enabled", zap.String("method", google2FAAuthMethod))
	return nil
}

func (s *service) DisableTwoFactorAuth(ctx context.Context, userID, method, code string) error {
	if err := validateMethod(method); err != nil {
		return err
	}

	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !existingUser.TwoFactorEnabled {
		return ErrUser2FANotEnabled
	}

	secret, err := s.repo.GetTwoFactorSecret(ctx, userID)
	if err != nil {
		return err
	}
	if !s.authenticator.VerifyCode(secret, code) {
		return ErrInvalid2FACode
	}

	return s.repo.DisableTwoFactor(ctx, userID)
}
