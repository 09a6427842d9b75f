package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sebuszqo/TaxManager/internal/apperrors"
)

type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]File, error)
	FindByID(ctx context.Context, id string) (*File, error)
	Create(ctx context.Context, f *File) error
	Delete(ctx context.Context, id string) error
	PathExists(ctx context.Context, path string) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const fileColumns = `id, user_id, name, description, filename, path, mime, size, storage, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row rowScanner) (*File, error) {
	var (
		f           File
		description sql.NullString
		mime        sql.NullString
		size        sql.NullInt64
	)
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &description, &f.Filename, &f.Path, &mime, &size, &f.Storage, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		f.Description = &description.String
	}
	f.Mime = mime.String
	f.Size = size.Int64
	return &f, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	files := make([]File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

func (r *repository) FindByID(ctx context.Context, id string) (*File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query file: %w", err)
	}
	return f, nil
}

func (r *repository) Create(ctx context.Context, f *File) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (id, user_id, name, description, filename, path, mime, size, storage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		f.ID, f.UserID, f.Name, f.Description, f.Filename, f.Path, f.Mime, f.Size, f.Storage, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *repository) PathExists(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM files WHERE path = $1)`, path).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query file path: %w", err)
	}
	return exists, nil
}
