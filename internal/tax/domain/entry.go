package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts leave the API as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	LabelSales         = "Sales"
	LabelVATInput      = "VAT Input"
	LabelOtherExpense  = "Other Expense"
	LabelAsset         = "Asset"
	LabelAssetPurchase = "Asset Purchase"
)

// DefaultLabels are seeded, in this order, the first time a user opens a taxpayer type.
var DefaultLabels = []string{LabelSales, LabelVATInput, LabelOtherExpense, LabelAsset, LabelAssetPurchase}

type Entry struct {
	ID           string          `json:"id"`
	UserID       string          `json:"-"`
	TaxpayerType TaxpayerType    `json:"taxpayer_type"`
	Label        string          `json:"label"`
	Value        decimal.Decimal `json:"value"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (e *Entry) OwnerID() string {
	return e.UserID
}

// EntryWriter is the subset of entry persistence available inside a transaction.
type EntryWriter interface {
	FindByID(ctx context.Context, id string) (*Entry, error)
	Save(ctx context.Context, entry *Entry) error
	Update(ctx context.Context, entry *Entry) error
}

type EntryRepository interface {
	EntryWriter
	ListByUserAndType(ctx context.Context, userID string, taxpayerType TaxpayerType) ([]Entry, error)
	Delete(ctx context.Context, id string) error
	// WithinTransaction runs fn against a transactional writer. The transaction is
	// committed when fn returns nil and rolled back otherwise.
	WithinTransaction(ctx context.Context, fn func(tx EntryWriter) error) error
}

// SummaryRepository stores the last computed summary on the user's profile.
type SummaryRepository interface {
	SaveSummary(ctx context.Context, userID string, summary Summary) error
}
