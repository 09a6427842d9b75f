package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	ErrInvalidSessionToken = errors.New("session token is invalid")
	ErrExpiredSessionToken = errors.New("token is expired")
)

// defaultSessionTokenDuration bounds the gap between password check and 2FA code.
const defaultSessionTokenDuration = 5 * time.Minute

// maxSessionTokenFailures is the number of wrong 2FA codes a session token survives.
const maxSessionTokenFailures = 3

type SessionManagerInterface interface {
	VerifySessionToken(sessionToken string) (string, error)
	DeleteSessionToken(sessionToken string)
	RecordFailedAttempt(sessionToken string) (remaining int)
	StartSessionTokenCleanup(ctx context.Context, interval time.Duration)
	GenerateSessionToken(userID string, duration time.Duration) (string, error)
}

type SessionToken struct {
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	Failures  int
}

type SessionManager struct {
	mu     sync.RWMutex
	tokens map[string]SessionToken
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		tokens: make(map[string]SessionToken),
	}
}

func (sm *SessionManager) VerifySessionToken(sessionToken string) (string, error) {
	sm.mu.RLock()
	token, exists := sm.tokens[sessionToken]
	sm.mu.RUnlock()

	if !exists {
		return "", ErrInvalidSessionToken
	}

	if time.Now().After(token.ExpiresAt) {
		return "", ErrExpiredSessionToken
	}

	return token.UserID, nil
}

func (sm *SessionManager) DeleteSessionToken(sessionToken string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.tokens, sessionToken)
}

// RecordFailedAttempt counts a wrong code against the token and drops the token
// once maxSessionTokenFailures is reached. It returns the attempts left.
func (sm *SessionManager) RecordFailedAttempt(sessionToken string) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	token, exists := sm.tokens[sessionToken]
	if !exists {
		return 0
	}
	token.Failures++
	if token.Failures >= maxSessionTokenFailures {
		delete(sm.tokens, sessionToken)
		return 0
	}
	sm.tokens[sessionToken] = token
	return maxSessionTokenFailures - token.Failures
}

// StartSessionTokenCleanup drops expired tokens every interval until ctx is done.
func (sm *SessionManager) StartSessionTokenCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sm.removeExpired(time.Now())
			}
		}
	}()
}

func (sm *SessionManager) removeExpired(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for token, session := range sm.tokens {
		if now.After(session.ExpiresAt) {
			delete(sm.tokens, token)
		}
	}
}

func (sm *SessionManager) GenerateSessionToken(userID string, duration time.Duration) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}

	token := hex.EncodeToString(tokenBytes)
	now := time.Now()

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.tokens[token] = SessionToken{
		UserID:    userID,
		ExpiresAt: now.Add(duration),
		CreatedAt: now,
	}
	return token, nil
}
