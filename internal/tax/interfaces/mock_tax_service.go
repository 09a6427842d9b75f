package interfaces

import (
	"context"

	"github.com/sebuszqo/TaxManager/internal/session"
	"github.com/sebuszqo/TaxManager/internal/tax/application"
	"github.com/sebuszqo/TaxManager/internal/tax/domain"
)

// MockTaxService lets each test stub only the calls it makes.
type MockTaxService struct {
	ListEntriesFunc func(ctx context.Context, p session.Principal, rawType string) (domain.TaxpayerType, []domain.Entry, error)
	CreateEntryFunc func(ctx context.Context, p session.Principal, in application.EntryInput) (*domain.Entry, error)
	UpdateEntryFunc func(ctx context.Context, p session.Principal, id string, in application.EntryInput) (*domain.Entry, error)
	DeleteEntryFunc func(ctx context.Context, p session.Principal, id string) error
	SaveBatchFunc   func(ctx context.Context, p session.Principal, rawType string, items []application.BatchItem) ([]domain.Entry, error)
	SaveSummaryFunc func(ctx context.Context, p session.Principal, in application.SummaryInput) (domain.Summary, error)
	CalculateFunc   func(ctx context.Context, p session.Principal, rawType string, persist bool) (domain.Summary, error)
	ExportFunc      func(ctx context.Context, p session.Principal, rawType string) ([]byte, error)
	UpdateTypeFunc  func(ctx context.Context, rawType string) error
}

func (m *MockTaxService) ListEntries(ctx context.Context, p session.Principal, rawType string) (domain.TaxpayerType, []domain.Entry, error) {
	return m.ListEntriesFunc(ctx, p, rawType)
}

func (m *MockTaxService) CreateEntry(ctx context.Context, p session.Principal, in application.EntryInput) (*domain.Entry, error) {
	return m.CreateEntryFunc(ctx, p, in)
}

func (m *MockTaxService) UpdateEntry(ctx context.Context, p session.Principal, id string, in application.EntryInput) (*domain.Entry, error) {
	return m.UpdateEntryFunc(ctx, p, id, in)
}

func (m *MockTaxService) DeleteEntry(ctx context.Context, p session.Principal, id string) error {
	return m.DeleteEntryFunc(ctx, p, id)
}

func (m *MockTaxService) SaveBatch(ctx context.Context, p session.Principal, rawType string, items []application.BatchItem) ([]domain.Entry, error) {
	return m.SaveBatchFunc(ctx, p, rawType, items)
}

func (m *MockTaxService) SaveSummary(ctx context.Context, p session.Principal, in application.SummaryInput) (domain.Summary, error) {
	return m.SaveSummaryFunc(ctx, p, in)
}

func (m *MockTaxService) Calculate(ctx context.Context, p session.Principal, rawType string, persist bool) (domain.Summary, error) {
	return m.CalculateFunc(ctx, p, rawType, persist)
}

func (m *MockTaxService) Export(ctx context.Context, p session.Principal, rawType string) ([]byte, error) {
	return m.ExportFunc(ctx, p, rawType)
}

func (m *MockTaxService) UpdateType(ctx context.Context, rawType string) error {
	return m.UpdateTypeFunc(ctx, rawType)
}
