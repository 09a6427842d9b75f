package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type Repository interface {
	createUser(ctx context.Context, user *User) error
	getUserByEmail(ctx context.Context, email string) (*User, error)
	getUserByID(ctx context.Context, id string) (*User, error)
	updateProfile(ctx context.Context, id, name, email string) error
	updateUserPasswordAndHashToken(ctx context.Context, userID, newPasswordHash, newHashToken string) error
	updateHashToken(ctx context.Context, userID, newHashToken string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) Repository {
	return &userRepository{
		db: db,
	}
}

const userColumns = `id, name, email, password_hash, hash_token, two_factor_enabled, two_factor_method, last_tax_summary, created_at, updated_at`

func (r *userRepository) createUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (name, email, password_hash, hash_token, two_factor_enabled, two_factor_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, '', NOW(), NOW())
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRowContext(ctx, query, user.Name, user.Email, user.PasswordHash, user.HashToken).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("could not create user: %w", err)
	}
	return nil
}

func (r *userRepository) getUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) getUserByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) getUser(ctx context.Context, query string, arg string) (*User, error) {
	var (
		user    User
		summary []byte
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.HashToken,
		&user.TwoFactorEnabled, &user.TwoFactorMethod, &summary, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not find user: %w", err)
	}
	if len(summary) > 0 {
		user.LastTaxSummary = summary
	}
	return &user, nil
}

func (r *userRepository) updateProfile(ctx context.Context, id, name, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $1, email = $2, updated_at = NOW() WHERE id = $3`,
		name, email, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("could not update profile: %w", err)
	}
	return expectUser(res)
}

func (r *userRepository) updateUserPasswordAndHashToken(ctx context.Context, userID, newPasswordHash, newHashToken string) error {
	query := `
        UPDATE users
        SET password_hash = $1,
            hash_token = $2,
            updated_at = NOW()
        WHERE id = $3
    `
	res, err := r.db.ExecContext(ctx, query, newPasswordHash, newHashToken, userID)
	if err != nil {
		return fmt.Errorf("could not update password: %w", err)
	}
	return expectUser(res)
}

func (r *userRepository) updateHashToken(ctx context.Context, userID, newHashToken string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET hash_token = $1 WHERE id = $2`, newHashToken, userID)
	if err != nil {
		return fmt.Errorf("could not update hash token: %w", err)
	}
	return expectUser(res)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func expectUser(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
