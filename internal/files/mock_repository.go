package files

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sebuszqo/TaxManager/internal/apperrors"
)

var errMockCreate = errors.New("insert file: connection reset")

// MockRepository keeps file records in memory, keyed by id.
type MockRepository struct {
	mu         sync.Mutex
	Files      map[string]*File
	FailCreate bool
}

func NewMockRepository(files ...File) *MockRepository {
	m := &MockRepository{Files: make(map[string]*File)}
	for i := range files {
		f := files[i]
		m.Files[f.ID] = &f
	}
	return m
}

func (m *MockRepository) ListByUser(_ context.Context, userID string) ([]File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	files := make([]File, 0)
	for _, f := range m.Files {
		if f.UserID == userID {
			files = append(files, *f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

func (m *MockRepository) FindByID(_ context.Context, id string) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Files[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	found := *f
	return &found, nil
}

func (m *MockRepository) Create(_ context.Context, f *File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreate {
		return errMockCreate
	}
	stored := *f
	m.Files[f.ID] = &stored
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Files[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.Files, id)
	return nil
}

func (m *MockRepository) PathExists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.Files {
		if f.Path == path {
			return true, nil
		}
	}
	return false, nil
}

// MockRecorder counts uploaded bytes and swept blobs.
type MockRecorder struct {
	UploadedBytes int64
	Swept         int
}

func (m *MockRecorder) FileUploaded(size int64) {
	m.UploadedBytes += size
}

func (m *MockRecorder) OrphansSwept(n int) {
	m.Swept += n
}
