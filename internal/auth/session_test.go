package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager(t *testing.T) {
	sm := NewSessionManager()

	token, err := sm.GenerateSessionToken("user-1", time.Minute)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	userID, err := sm.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	sm.DeleteSessionToken(token)
	_, err = sm.VerifySessionToken(token)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}

func TestSessionManager_Expired(t *testing.T) {
	sm := NewSessionManager()

	token, err := sm.GenerateSessionToken("user-1", -time.Second)
	require.NoError(t, err)

	_, err = sm.VerifySessionToken(token)
	assert.ErrorIs(t, err, ErrExpiredSessionToken)

	sm.removeExpired(time.Now())
	_, err = sm.VerifySessionToken(token)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}

func TestSessionManager_RemoveExpiredKeepsLive(t *testing.T) {
	sm := NewSessionManager()
	live, err := sm.GenerateSessionToken("user-1", time.Hour)
	require.NoError(t, err)

	sm.removeExpired(time.Now())

	_, err = sm.VerifySessionToken(live)
	assert.NoError(t, err)
}

func TestSessionManager_RecordFailedAttempt(t *testing.T) {
	sm := NewSessionManager()

	token, err := sm.GenerateSessionToken("user-1", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 2, sm.RecordFailedAttempt(token))
	assert.Equal(t, 1, sm.RecordFailedAttempt(token))
	_, err = sm.VerifySessionToken(token)
	require.NoError(t, err)

	assert.Equal(t, 0, sm.RecordFailedAttempt(token))
	_, err = sm.VerifySessionToken(token)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)

	assert.Equal(t, 0, sm.RecordFailedAttempt("unknown"))
}
