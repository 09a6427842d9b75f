package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/badoux/checkmail"
	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxNameLength             = 255
	maxEmailLength            = 255
	minRegisterPasswordLength = 6
	minChangePasswordLength   = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
	bcryptCost        = 12
)

type Service interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, userID, name, email string) (*User, error)
	ChangePassword(ctx context.Context, userID string, req PasswordChange) error
	// RotateHashToken replaces the per-user key every issued token is bound to,
	// which invalidates all of them.
	RotateHashToken(ctx context.Context, userID string) (string, error)
}

type PasswordChange struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

type service struct {
	repo Repository
}

func NewUserService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func hashPassword(password string) (string, error) {
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(hashedPasswordBytes), err
}

// DoPasswordsMatch reports whether currPassword matches the stored bcrypt hash.
func DoPasswordsMatch(hashedPassword, currPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(currPassword))
	return err == nil
}

func generateHashToken() (string, error) {
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return "", fmt.Errorf("could not generate hash token: %w", err)
	}
	return hex.EncodeToString(token), nil
}

func validateName(v *apperrors.ValidationError, name string) {
	switch {
	case name == "":
		v.Add("name", "The name field is required.")
	case utf8.RuneCountInString(name) > maxNameLength:
		v.Add("name", fmt.Sprintf("The name field must not be greater than %d characters.", maxNameLength))
	}
}

func validateEmailAddress(v *apperrors.ValidationError, email string) {
	switch {
	case email == "":
		v.Add("email", "The email field is required.")
	case len(email) > maxEmailLength:
		v.Add("email", fmt.Sprintf("The email field must not be greater than %d characters.", maxEmailLength))
	case checkmail.ValidateFormat(email) != nil:
		v.Add("email", "The email field must be a valid email address.")
	}
}

func validatePassword(v *apperrors.ValidationError, field, password string, minLength int) {
	switch {
	case password == "":
		v.Add(field, fmt.Sprintf("The %s field is required.", strings.ReplaceAll(field, "_", " ")))
	case utf8.RuneCountInString(password) < minLength:
		v.Add(field, fmt.Sprintf("The %s field must be at least %d characters.", strings.ReplaceAll(field, "_", " "), minLength))
	case len(password) > maxPasswordLength:
		v.Add(field, fmt.Sprintf("The %s field must not be greater than %d characters.", strings.ReplaceAll(field, "_", " "), maxPasswordLength))
	}
}

func emailTaken() error {
	return errors.Join(ErrEmailAlreadyExists, apperrors.NewValidationError("email", "The email has already been taken."))
}

func (s *service) Register(ctx context.Context, name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	v := &apperrors.ValidationError{}
	validateName(v, name)
	validateEmailAddress(v, email)
	validatePassword(v, "password", password, minRegisterPasswordLength)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	_, err := s.repo.getUserByEmail(ctx, email)
	if err == nil {
		return nil, emailTaken()
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	hashToken, err := generateHashToken()
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		HashToken:    hashToken,
	}
	if err := s.repo.createUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, emailTaken()
		}
		return nil, err
	}
	return user, nil
}

func (s *service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	return s.repo.getUserByID(ctx, userID)
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.getUserByEmail(ctx, strings.TrimSpace(email))
}

func (s *service) UpdateProfile(ctx context.Context, userID, name, email string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	v := &apperrors.ValidationError{}
	validateName(v, name)
	validateEmailAddress(v, email)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	existing, err := s.repo.getUserByEmail(ctx, email)
	if err == nil && existing.ID != userID {
		return nil, emailTaken()
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	if err := s.repo.updateProfile(ctx, userID, name, email); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, emailTaken()
		}
		return nil, err
	}
	return s.repo.getUserByID(ctx, userID)
}

// ChangePassword also rotates the hash token, so every session has to log in again.
func (s *service) ChangePassword(ctx context.Context, userID string, req PasswordChange) error {
	v := &apperrors.ValidationError{}
	if req.CurrentPassword == "" {
		v.Add("current_password", "The current password field is required.")
	}
	validatePassword(v, "new_password", req.NewPassword, minChangePasswordLength)
	if req.NewPassword != "" && req.NewPassword != req.NewPasswordConfirmation {
		v.Add("new_password", "The new password field confirmation does not match.")
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	user, err := s.repo.getUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !DoPasswordsMatch(user.PasswordHash, req.CurrentPassword) {
		return errors.Join(ErrInvalidCurrentPassword,
			apperrors.NewValidationError("current_password", "The provided password does not match your current password."))
	}

	newPasswordHash, err := hashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}
	newHashToken, err := generateHashToken()
	if err != nil {
		return err
	}
	return s.repo.updateUserPasswordAndHashToken(ctx, userID, newPasswordHash, newHashToken)
}

func (s *service) RotateHashToken(ctx context.Context, userID string) (string, error) {
	hashToken, err := generateHashToken()
	if err != nil {
		return "", err
	}
	if err := s.repo.updateHashToken(ctx, userID, hashToken); err != nil {
		return "", err
	}
	return hashToken, nil
}
