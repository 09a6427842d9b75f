package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sebuszqo/TaxManager/internal/api"
	"github.com/sebuszqo/TaxManager/internal/logger"
	"github.com/sebuszqo/TaxManager/internal/session"
	"github.com/sebuszqo/TaxManager/internal/user"
	"go.uber.org/zap"
)

const refreshTokenCookie = "refresh_token"

func (s *service) JWTAccessTokenMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.RespondError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				api.RespondError(w, http.StatusUnauthorized, "Invalid token format")
				return
			}

			claims, err := s.jwtManager.ValidateAccessToken(tokenString)
			if err != nil {
				api.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			existingUser, err := s.userService.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					api.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				logger.FromContext(r.Context()).Error("load user for access token", zap.Error(err))
				api.RespondError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			// A rotated hash token (logout, new login, password change) revokes the token.
			if !s.jwtManager.VerifyCustomKey(claims, existingUser.HashToken) {
				api.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := session.WithPrincipal(r.Context(), session.Principal{UserID: existingUser.ID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *service) JWTRefreshTokenMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(refreshTokenCookie)
			if err != nil {
				api.RespondError(w, http.StatusUnauthorized, "Refresh token is required")
				return
			}
			tokenString := cookie.Value

			userID, err := s.jwtManager.ExtractUserIDFromRefreshToken(tokenString)
			if err != nil {
				if errors.Is(err, ErrExpiredJWTToken) {
					api.RespondError(w, http.StatusUnauthorized, ErrExpiredJWTToken.Error())
					return
				}
				api.RespondError(w, http.StatusUnauthorized, ErrInvalidJWTRefreshToken.Error())
				return
			}

			existingUser, err := s.userService.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					api.RespondError(w, http.StatusUnauthorized, ErrInvalidJWTRefreshToken.Error())
					return
				}
				logger.FromContext(r.Context()).Error("load user for refresh token", zap.Error(err))
				api.RespondError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if err := s.jwtManager.ValidateRefreshToken(tokenString, existingUser.HashToken); err != nil {
				api.RespondError(w, http.StatusUnauthorized, ErrInvalidJWTRefreshToken.Error())
				return
			}

			ctx := session.WithPrincipal(r.Context(), session.Principal{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
