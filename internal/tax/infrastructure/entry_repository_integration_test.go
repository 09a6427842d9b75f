//go:build integration

package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/sebuszqo/TaxManager/internal/db/dbtest"
	"github.com/sebuszqo/TaxManager/internal/tax/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(userID, label string, value int64, at time.Time) *domain.Entry {
	return &domain.Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		TaxpayerType: domain.Individual,
		Label:        label,
		Value:        decimal.NewFromInt(value),
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func TestEntryRepository_Postgres(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()
	userID := dbtest.InsertUser(t, db, "juan@example.com")
	repo := NewEntryRepository(db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	sales := newEntry(userID, domain.LabelSales, 500000, now)
	sales.Meta = []byte(`{"note":"q1"}`)
	require.NoError(t, repo.Save(ctx, sales))
	require.NoError(t, repo.Save(ctx, newEntry(userID, domain.LabelVATInput, 20000, now.Add(time.Microsecond))))

	entries, err := repo.ListByUserAndType(ctx, userID, domain.Individual)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.LabelSales, entries[0].Label)
	assert.True(t, decimal.NewFromInt(500000).Equal(entries[0].Value))
	assert.JSONEq(t, `{"note":"q1"}`, string(entries[0].Meta))

	sales.Value = decimal.RequireFromString("123.45")
	require.NoError(t, repo.Update(ctx, sales))
	found, err := repo.FindByID(ctx, sales.ID)
	require.NoError(t, err)
	assert.Equal(t, "123.45", found.Value.String())

	require.NoError(t, repo.Delete(ctx, sales.ID))
	_, err = repo.FindByID(ctx, sales.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, sales.ID), apperrors.ErrNotFound)
}

func TestEntryRepository_TransactionRollsBack(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()
	userID := dbtest.InsertUser(t, db, "juan@example.com")
	repo := NewEntryRepository(db)
	boom := errors.New("boom")

	err := repo.WithinTransaction(ctx, func(tx domain.EntryWriter) error {
		if err := tx.Save(ctx, newEntry(userID, domain.LabelSales, 1, time.Now())); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, err := repo.ListByUserAndType(ctx, userID, domain.Individual)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, repo.WithinTransaction(ctx, func(tx domain.EntryWriter) error {
		return tx.Save(ctx, newEntry(userID, domain.LabelSales, 1, time.Now()))
	}))
	entries, err = repo.ListByUserAndType(ctx, userID, domain.Individual)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSummaryRepository_Postgres(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()
	userID := dbtest.InsertUser(t, db, "juan@example.com")
	repo := NewSummaryRepository(db)

	summary := domain.NewSummary(domain.Calculate(domain.Inputs{
		Sales:        decimal.NewFromInt(500000),
		VATInput:     decimal.NewFromInt(20000),
		OtherExpense: decimal.NewFromInt(100000),
	}, domain.Individual), domain.Individual, time.Now())
	require.NoError(t, repo.SaveSummary(ctx, userID, summary))

	var stored []byte
	require.NoError(t, db.QueryRowContext(ctx, `SELECT last_tax_summary FROM users WHERE id = $1`, userID).Scan(&stored))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(stored, &decoded))
	assert.Equal(t, float64(13500), decoded["taxDue"])
	assert.Equal(t, "individual", decoded["type"])

	assert.ErrorIs(t, repo.SaveSummary(ctx, uuid.NewString(), summary), apperrors.ErrNotFound)
}
