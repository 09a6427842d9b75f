package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/sebuszqo/TaxManager/internal/logger"
	"github.com/sebuszqo/TaxManager/internal/tax/domain"
	"go.uber.org/zap"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type EntryRepository struct {
	db *sql.DB
	entryStatements
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db, entryStatements: entryStatements{q: db}}
}

// entryStatements holds the queries shared by the pooled and transactional writers.
type entryStatements struct {
	q queryer
	// lock adds FOR UPDATE to lookups inside a transaction.
	lock bool
}

const entryColumns = `id, user_id, taxpayer_type, label, value, meta, created_at, updated_at`

func (s entryStatements) FindByID(ctx context.Context, id string) (*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM tax_entries WHERE id = $1`
	if s.lock {
		query += ` FOR UPDATE`
	}

	entry, err := scanEntry(s.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tax entry: %w", err)
	}
	return entry, nil
}

func (s entryStatements) Save(ctx context.Context, e *domain.Entry) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO tax_entries (id, user_id, taxpayer_type, label, value, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, string(e.TaxpayerType), e.Label, e.Value, nullableJSON(e.Meta), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tax entry: %w", err)
	}
	return nil
}

func (s entryStatements) Update(ctx context.Context, e *domain.Entry) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE tax_entries SET label = $1, value = $2, meta = $3, updated_at = $4 WHERE id = $5`,
		e.Label, e.Value, nullableJSON(e.Meta), e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update tax entry: %w", err)
	}
	return expectOneRow(res)
}

func (r *EntryRepository) ListByUserAndType(ctx context.Context, userID string, taxpayerType domain.TaxpayerType) ([]domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM tax_entries
		WHERE user_id = $1 AND taxpayer_type = $2
		ORDER BY created_at, id`,
		userID, string(taxpayerType),
	)
	if err != nil {
		return nil, fmt.Errorf("query tax entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tax entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tax_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tax entry: %w", err)
	}
	return expectOneRow(res)
}

func (r *EntryRepository) WithinTransaction(ctx context.Context, fn func(tx domain.EntryWriter) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			safeRollback(ctx, tx)
			panic(p)
		} else if err != nil {
			safeRollback(ctx, tx)
		} else {
			err = tx.Commit()
		}
	}()

	return fn(entryStatements{q: tx, lock: true})
}

func safeRollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.FromContext(ctx).Error("transaction rollback failed", zap.Error(err))
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		e            domain.Entry
		taxpayerType string
		meta         []byte
	)
	if err := row.Scan(&e.ID, &e.UserID, &taxpayerType, &e.Label, &e.Value, &meta, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.TaxpayerType = domain.TaxpayerType(taxpayerType)
	if len(meta) > 0 {
		e.Meta = json.RawMessage(meta)
	}
	return &e, nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
