package user

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailAlreadyExists     = errors.New("email already exists")
	ErrInvalidCurrentPassword = errors.New("invalid current password")
)

type User struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	PasswordHash     string          `json:"-"`
	HashToken        string          `json:"-"`
	TwoFactorEnabled bool            `json:"two_factor_enabled"`
	TwoFactorMethod  string          `json:"two_factor_method"`
	LastTaxSummary   json.RawMessage `json:"last_tax_summary"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
