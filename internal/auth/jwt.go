package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidJWTToken        = errors.New("JWT token is invalid")
	ErrExpiredJWTToken        = errors.New("JWT token is expired")
	ErrInvalidJWTRefreshToken = errors.New("JWT Refresh token is invalid")
)

const (
	accessAudience  = "access"
	refreshAudience = "refresh"
)

type JWTManagerInterface interface {
	GenerateAccessJWT(userID, tokenHash string) (string, error)
	ValidateAccessToken(tokenString string) (*TokenCustomClaims, error)
	GenerateRefreshJWT(userID, tokenHash string) (string, error)
	ValidateRefreshToken(tokenString, tokenHash string) error
	ExtractUserIDFromRefreshToken(tokenString string) (string, error)
	VerifyCustomKey(claims *TokenCustomClaims, tokenHash string) bool
}

// TokenCustomClaims binds a token to the user's hash token through CusKey, so
// rotating the hash token revokes every token issued before.
type TokenCustomClaims struct {
	UserID string `json:"user_id"`
	CusKey string `json:"cus_key"`
	jwt.StandardClaims
}

type JWTManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWTManager(secret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (j *JWTManager) generateCustomKey(userID string, tokenHash string) string {
	h := hmac.New(sha256.New, []byte(tokenHash))
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}

func (j *JWTManager) sign(userID, tokenHash, audience string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &TokenCustomClaims{
		UserID: userID,
		CusKey: j.generateCustomKey(userID, tokenHash),
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			Audience:  audience,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(duration).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

func (j *JWTManager) GenerateAccessJWT(userID, tokenHash string) (string, error) {
	return j.sign(userID, tokenHash, accessAudience, j.accessTTL)
}

func (j *JWTManager) GenerateRefreshJWT(userID, tokenHash string) (string, error) {
	return j.sign(userID, tokenHash, refreshAudience, j.refreshTTL)
}

func (j *JWTManager) parse(tokenString, audience string) (*TokenCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrExpiredJWTToken
		}
		return nil, ErrInvalidJWTToken
	}

	claims, ok := token.Claims.(*TokenCustomClaims)
	if !ok || !token.Valid || claims.UserID == "" || !claims.VerifyAudience(audience, true) {
		return nil, ErrInvalidJWTToken
	}
	return claims, nil
}

func (j *JWTManager) ValidateAccessToken(tokenString string) (*TokenCustomClaims, error) {
	return j.parse(tokenString, accessAudience)
}

func (j *JWTManager) ExtractUserIDFromRefreshToken(tokenString string) (string, error) {
	claims, err := j.parse(tokenString, refreshAudience)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (j *JWTManager) ValidateRefreshToken(tokenString, tokenHash string) error {
	claims, err := j.parse(tokenString, refreshAudience)
	if err != nil {
		return err
	}
	if !j.VerifyCustomKey(claims, tokenHash) {
		return ErrInvalidJWTRefreshToken
	}
	return nil
}

func (j *JWTManager) VerifyCustomKey(claims *TokenCustomClaims, tokenHash string) bool {
	expected := j.generateCustomKey(claims.UserID, tokenHash)
	return hmac.Equal([]byte(claims.CusKey), []byte(expected))
}
