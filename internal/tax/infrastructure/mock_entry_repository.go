package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/sebuszqo/TaxManager/internal/tax/domain"
)

// MockEntryRepository is an in-memory EntryRepository. A failed WithinTransaction
// restores the entries held before it started.
type MockEntryRepository struct {
	mu      sync.Mutex
	Entries map[string]domain.Entry
	// FailSave makes Save return the error, e.g. to simulate a broken connection.
	FailSave error
	Commits  int
}

func NewMockEntryRepository(entries ...domain.Entry) *MockEntryRepository {
	m := &MockEntryRepository{Entries: make(map[string]domain.Entry)}
	for _, e := range entries {
		m.Entries[e.ID] = e
	}
	return m
}

func (m *MockEntryRepository) FindByID(_ context.Context, id string) (*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entries[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &e, nil
}

func (m *MockEntryRepository) Save(_ context.Context, entry *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.Entries[entry.ID] = *entry
	return nil
}

func (m *MockEntryRepository) Update(_ context.Context, entry *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Entries[entry.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.Entries[entry.ID] = *entry
	return nil
}

func (m *MockEntryRepository) ListByUserAndType(_ context.Context, userID string, taxpayerType domain.TaxpayerType) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := []domain.Entry{}
	for _, e := range m.Entries {
		if e.UserID == userID && e.TaxpayerType == taxpayerType {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (m *MockEntryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Entries[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.Entries, id)
	return nil
}

func (m *MockEntryRepository) WithinTransaction(_ context.Context, fn func(tx domain.EntryWriter) error) error {
	m.mu.Lock()
	snapshot := make(map[string]domain.Entry, len(m.Entries))
	for k, v := range m.Entries {
		snapshot[k] = v
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.Entries = snapshot
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.Commits++
	m.mu.Unlock()
	return nil
}

// ForUser returns a copy of the stored entries owned by userID.
func (m *MockEntryRepository) ForUser(userID string) []domain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []domain.Entry
	for _, e := range m.Entries {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	return entries
}

type MockSummaryRepository struct {
	Saved map[string]domain.Summary
	Err   error
}

func NewMockSummaryRepository() *MockSummaryRepository {
	return &MockSummaryRepository{Saved: make(map[string]domain.Summary)}
}

func (m *MockSummaryRepository) SaveSummary(_ context.Context, userID string, summary domain.Summary) error {
	if m.Err != nil {
		return m.Err
	}
	m.Saved[userID] = summary
	return nil
}
