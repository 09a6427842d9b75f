package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockRepository keeps users in memory, keyed by id.
type MockRepository struct {
	mu    sync.Mutex
	Users map[string]*User
}

func NewMockRepository() *MockRepository {
	return &MockRepository{Users: make(map[string]*User)}
}

func (m *MockRepository) createUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == user.Email {
			return ErrEmailAlreadyExists
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.Users[user.ID] = &stored
	return nil
}

func (m *MockRepository) getUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockRepository) getUserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	found := *u
	return &found, nil
}

func (m *MockRepository) updateProfile(_ context.Context, id, name, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Name, u.Email = name, email
	return nil
}

func (m *MockRepository) updateUserPasswordAndHashToken(_ context.Context, userID, newPasswordHash, newHashToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash, u.HashToken = newPasswordHash, newHashToken
	return nil
}

func (m *MockRepository) updateHashToken(_ context.Context, userID, newHashToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.HashToken = newHashToken
	return nil
}
