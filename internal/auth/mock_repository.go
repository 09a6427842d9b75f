package auth

import (
	"context"
	"sync"

	"github.com/sebuszqo/TaxManager/internal/user"
)

// MockTwoFactorRepository keeps secrets in memory and flips the 2FA flags on the
// users held by a user.MockRepository.
type MockTwoFactorRepository struct {
	mu      sync.Mutex
	Secrets map[string]string
	users   *user.MockRepository
}

func NewMockTwoFactorRepository(users *user.MockRepository) *MockTwoFactorRepository {
	return &MockTwoFactorRepository{
		Secrets: make(map[string]string),
		users:   users,
	}
}

func (m *MockTwoFactorRepository) SaveTwoFactorSecret(_ context.Context, userID string, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Secrets[userID] = secret
	return nil
}

func (m *MockTwoFactorRepository) GetTwoFactorSecret(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.Secrets[userID]
	if !ok {
		return "", ErrTwoFactorNotRegistered
	}
	return secret, nil
}

func (m *MockTwoFactorRepository) EnableTwoFactor(_ context.Context, userID, method string) error {
	u, ok := m.users.Users[userID]
	if !ok {
		return user.ErrUserNotFound
	}
	u.TwoFactorEnabled, u.TwoFactorMethod = true, method
	return nil
}

func (m *MockTwoFactorRepository) DisableTwoFactor(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users.Users[userID]
	if !ok {
		return user.ErrUserNotFound
	}
	u.TwoFactorEnabled, u.TwoFactorMethod = false, ""
	delete(m.Secrets, userID)
	return nil
}
