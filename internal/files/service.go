package files

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/sebuszqo/TaxManager/internal/logger"
	"github.com/sebuszqo/TaxManager/internal/ownership"
	"github.com/sebuszqo/TaxManager/internal/session"
	"go.uber.org/zap"
)

const (
	maxNameLength        = 255
	maxDescriptionLength = 1000
	maxFilenameLength    = 255
	defaultMime          = "application/octet-stream"
)

// UploadInput is one multipart upload. Content is nil when no file part was sent.
type UploadInput struct {
	Name        string
	Description *string
	Filename    string
	Mime        string
	Size        int64
	Content     io.Reader
}

type Service interface {
	List(ctx context.Context, p session.Principal) ([]File, error)
	Upload(ctx context.Context, p session.Principal, in UploadInput) (*File, error)
	Open(ctx context.Context, p session.Principal, id string) (*File, io.ReadCloser, error)
	Delete(ctx context.Context, p session.Principal, id string) error
}

type UploadRecorder interface {
	FileUploaded(size int64)
}

type service struct {
	repo           Repository
	blobs          BlobStore
	guard          ownership.Guard
	recorder       UploadRecorder
	maxUploadBytes int64
	now            func() time.Time
}

func NewService(repo Repository, blobs BlobStore, guard ownership.Guard, recorder UploadRecorder, maxUploadBytes int64) Service {
	return &service{
		repo:           repo,
		blobs:          blobs,
		guard:          guard,
		recorder:       recorder,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// BlobPath is where an upload of user with the given id and extension is stored.
func BlobPath(userID, fileID, ext string) string {
	return fmt.Sprintf("user_uploads/%s/%s%s", userID, fileID, strings.ToLower(ext))
}

func (s *service) tooLargeMessage() string {
	return fmt.Sprintf("The file field must not be greater than %d kilobytes.", s.maxUploadBytes/1024)
}

func (s *service) validateUpload(in *UploadInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Filename = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(in.Filename, "\\", "/")))

	v := &apperrors.ValidationError{}
	if in.Name == "" {
		v.Add("name", "The name field is required.")
	} else if utf8.RuneCountInString(in.Name) > maxNameLength {
		v.Add("name", fmt.Sprintf("The name field must not be greater than %d characters.", maxNameLength))
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > maxDescriptionLength {
		v.Add("description", fmt.Sprintf("The description field must not be greater than %d characters.", maxDescriptionLength))
	}
	switch {
	case in.Content == nil:
		v.Add("file", "The file field is required.")
	case in.Size > s.maxUploadBytes:
		v.Add("file", s.tooLargeMessage())
	case in.Filename == "/" || in.Filename == ".":
		v.Add("file", "The file must have a name.")
	case utf8.RuneCountInString(in.Filename) > maxFilenameLength:
		v.Add("file", fmt.Sprintf("The file name must not be greater than %d characters.", maxFilenameLength))
	}
	return v.OrNil()
}

func (s *service) List(ctx context.Context, p session.Principal) ([]File, error) {
	if p.UserID == "" {
		return nil, apperrors.ErrForbidden
	}
	return s.repo.ListByUser(ctx, p.UserID)
}

// Upload writes the blob before the record. A blob whose record insert failed is
// removed again; if that removal fails too, the sweeper collects it later.
func (s *service) Upload(ctx context.Context, p session.Principal, in UploadInput) (*File, error) {
	if p.UserID == "" {
		return nil, apperrors.ErrForbidden
	}
	if err := s.validateUpload(&in); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	path := BlobPath(p.UserID, id, filepath.Ext(in.Filename))
	log := logger.FromContext(ctx).With(zap.String("file_id", id), zap.String("path", path))

	// Read one byte past the limit to detect an oversized body whose declared size lied.
	written, err := s.blobs.Put(ctx, path, io.LimitReader(in.Content, s.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	if written > s.maxUploadBytes {
		s.removeBlob(ctx, log, path)
		return nil, apperrors.NewValidationError("file", s.tooLargeMessage())
	}

	mime := strings.TrimSpace(in.Mime)
	if mime == "" {
		mime = defaultMime
	}
	now := s.now().UTC()
	f := &File{
		ID:          id,
		UserID:      p.UserID,
		Name:        in.Name,
		Description: in.Description,
		Filename:    in.Filename,
		Path:        path,
		Mime:        mime,
		Size:        written,
		Storage:     localStorage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		s.removeBlob(ctx, log, path)
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.FileUploaded(written)
	}
	log.Info("file uploaded", zap.Int64("size", written))
	return f, nil
}

func (s *service) removeBlob(ctx context.Context, log *zap.Logger, path string) {
	if err := s.blobs.Remove(ctx, path); err != nil {
		log.Warn("could not remove blob, leaving it to the sweeper", zap.Error(err))
	}
}

func (s *service) findOwned(ctx context.Context, p session.Principal, id string) (*File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrNotFound
	}
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, p, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) Open(ctx context.Context, p session.Principal, id string) (*File, io.ReadCloser, error) {
	f, err := s.findOwned(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, f.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

// Delete removes the record first so a failure never leaves a record without its blob.
func (s *service) Delete(ctx context.Context, p session.Principal, id string) error {
	f, err := s.findOwned(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, f.ID); err != nil {
		return err
	}

	log := logger.FromContext(ctx).With(zap.String("file_id", f.ID), zap.String("path", f.Path))
	s.removeBlob(ctx, log, f.Path)
	log.Info("file deleted")
	return nil
}
