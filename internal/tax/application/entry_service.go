package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/sebuszqo/TaxManager/internal/logger"
	"github.com/sebuszqo/TaxManager/internal/ownership"
	"github.com/sebuszqo/TaxManager/internal/session"
	"github.com/sebuszqo/TaxManager/internal/tax/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CalculationRecorder counts server-side calculations.
type CalculationRecorder interface {
	TaxCalculated(taxpayerType string)
}

type EntryService struct {
	repo      domain.EntryRepository
	summaries domain.SummaryRepository
	guard     ownership.Guard
	recorder  CalculationRecorder
	now       func() time.Time
}

func NewEntryService(repo domain.EntryRepository, summaries domain.SummaryRepository, guard ownership.Guard, recorder CalculationRecorder) *EntryService {
	return &EntryService{
		repo:      repo,
		summaries: summaries,
		guard:     guard,
		recorder:  recorder,
		now:       time.Now,
	}
}

// ListEntries returns the caller's entries for a taxpayer type, seeding the default
// labels with zero values when none exist yet.
func (s *EntryService) ListEntries(ctx context.Context, p session.Principal, rawType string) (domain.TaxpayerType, []domain.Entry, error) {
	taxpayerType, err := domain.ParseTaxpayerType(rawType)
	if err != nil {
		return "", nil, err
	}

	entries, err := s.repo.ListByUserAndType(ctx, p.UserID, taxpayerType)
	if err != nil {
		return "", nil, fmt.Errorf("list entries: %w", err)
	}
	if len(entries) > 0 {
		return taxpayerType, entries, nil
	}

	defaults := s.defaultEntries(p.UserID, taxpayerType)
	err = s.repo.WithinTransaction(ctx, func(tx domain.EntryWriter) error {
		for i := range defaults {
			if err := tx.Save(ctx, &defaults[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("seed default entries: %w", err)
	}

	logger.FromContext(ctx).Info("seeded default tax entries", zap.String("taxpayer_type", taxpayerType.String()))
	return taxpayerType, defaults, nil
}

func (s *EntryService) defaultEntries(userID string, taxpayerType domain.TaxpayerType) []domain.Entry {
	base := s.now().UTC()
	entries := make([]domain.Entry, 0, len(domain.DefaultLabels))
	for i, label := range domain.DefaultLabels {
		// Distinct timestamps keep the seeded order stable when listing by created_at.
		at := base.Add(time.Duration(i) * time.Microsecond)
		entries = append(entries, domain.Entry{
			ID:           uuid.NewString(),
			UserID:       userID,
			TaxpayerType: taxpayerType,
			Label:        label,
			Value:        decimal.Zero,
			CreatedAt:    at,
			UpdatedAt:    at,
		})
	}
	return entries
}

func (s *EntryService) CreateEntry(ctx context.Context, p session.Principal, in EntryInput) (*domain.Entry, error) {
	v := &apperrors.ValidationError{}
	taxpayerType, err := domain.ParseTaxpayerType(in.TaxpayerType)
	if err != nil {
		v.Add("taxpayer_type", "The selected taxpayer type is invalid.")
	}
	valid := validateEntry(v, "", in, true)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	entry := s.newEntry(p.UserID, taxpayerType, valid)
	if err := s.repo.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("save entry: %w", err)
	}
	return entry, nil
}

func (s *EntryService) newEntry(userID string, taxpayerType domain.TaxpayerType, valid validatedEntry) *domain.Entry {
	now := s.now().UTC()
	return &domain.Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		TaxpayerType: taxpayerType,
		Label:        *valid.label,
		Value:        valid.value,
		Meta:         valid.meta,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// UpdateEntry sets the value and, when given, the label and meta of an owned entry.
func (s *EntryService) UpdateEntry(ctx context.Context, p session.Principal, id string, in EntryInput) (*domain.Entry, error) {
	entry, err := s.findOwned(ctx, s.repo, p, id)
	if err != nil {
		return nil, err
	}

	v := &apperrors.ValidationError{}
	valid := validateEntry(v, "", in, false)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	s.apply(entry, valid)
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return entry, nil
}

func (s *EntryService) apply(entry *domain.Entry, valid validatedEntry) {
	entry.Value = valid.value
	if valid.label != nil {
		entry.Label = *valid.label
	}
	if valid.meta != nil {
		entry.Meta = valid.meta
	}
	entry.UpdatedAt = s.now().UTC()
}

func (s *EntryService) DeleteEntry(ctx context.Context, p session.Principal, id string) error {
	if _, err := s.findOwned(ctx, s.repo, p, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// findOwned loads an entry and runs the ownership guard on it. Ids that are not
// UUIDs cannot exist and are reported as not found.
func (s *EntryService) findOwned(ctx context.Context, repo domain.EntryWriter, p session.Principal, id string) (*domain.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrNotFound
	}

	entry, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find entry: %w", err)
	}
	if entry == nil {
		return nil, apperrors.ErrNotFound
	}

	if err := s.guard.Authorize(ctx, p, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SaveBatch applies every item in one transaction: items with an id update that
// entry, the rest are created under the batch taxpayer type. Nothing is written
// unless every item is valid and owned by the caller.
func (s *EntryService) SaveBatch(ctx context.Context, p session.Principal, rawType string, items []BatchItem) ([]domain.Entry, error) {
	taxpayerType, err := domain.ParseTaxpayerType(rawType)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("entries", "The entries field is required.")
	}

	v := &apperrors.ValidationError{}
	valid := make([]validatedEntry, len(items))
	for i, item := range items {
		valid[i] = validateEntry(v, apperrors.IndexedField(i, ""), item.EntryInput, item.ID == "")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	saved := make([]domain.Entry, 0, len(items))
	err = s.repo.WithinTransaction(ctx, func(tx domain.EntryWriter) error {
		for i, item := range items {
			if item.ID == "" {
				entry := s.newEntry(p.UserID, taxpayerType, valid[i])
				if err := tx.Save(ctx, entry); err != nil {
					return fmt.Errorf("save entry %d: %w", i, err)
				}
				saved = append(saved, *entry)
				continue
			}

			entry, err := s.findOwned(ctx, tx, p, item.ID)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			s.apply(entry, valid[i])
			if err := tx.Update(ctx, entry); err != nil {
				return fmt.Errorf("update entry %d: %w", i, err)
			}
			saved = append(saved, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SaveSummary replaces the summary stored on the caller's profile.
func (s *EntryService) SaveSummary(ctx context.Context, p session.Principal, in SummaryInput) (domain.Summary, error) {
	v := &apperrors.ValidationError{}
	summary := domain.Summary{
		Result: domain.Result{
			TaxableIncome: parseNumber(v, "taxableIncome", in.TaxableIncome),
			TaxDue:        parseNumber(v, "taxDue", in.TaxDue),
			RateApplied:   parseNumber(v, "rateApplied", in.RateApplied),
			VATOutput:     parseNumber(v, "vatOutput", in.VATOutput),
			VATInput:      parseNumber(v, "vatInput", in.VATInput),
			VATPayable:    parseNumber(v, "vatPayable", in.VATPayable),
		},
		UpdatedAt: parseString(v, "updatedAt", in.UpdatedAt),
	}

	rawType := parseString(v, "type", in.Type)
	if rawType != "" {
		taxpayerType, err := domain.ParseTaxpayerType(rawType)
		if err != nil {
			v.Add("type", "The selected type is invalid.")
		}
		summary.Type = taxpayerType
	}
	if err := v.OrNil(); err != nil {
		return domain.Summary{}, err
	}

	if err := s.summaries.SaveSummary(ctx, p.UserID, summary); err != nil {
		return domain.Summary{}, fmt.Errorf("save summary: %w", err)
	}
	return summary, nil
}

// Calculate runs the tax computation over the caller's stored entries and, when
// persist is set, stores the result as the profile summary.
func (s *EntryService) Calculate(ctx context.Context, p session.Principal, rawType string, persist bool) (domain.Summary, error) {
	taxpayerType, entries, err := s.ListEntries(ctx, p, rawType)
	if err != nil {
		return domain.Summary{}, err
	}

	summary := domain.NewSummary(domain.CalculateEntries(entries, taxpayerType), taxpayerType, s.now())
	if s.recorder != nil {
		s.recorder.TaxCalculated(taxpayerType.String())
	}

	if persist {
		if err := s.summaries.SaveSummary(ctx, p.UserID, summary); err != nil {
			return domain.Summary{}, fmt.Errorf("save summary: %w", err)
		}
	}
	return summary, nil
}

// UpdateType only validates the type. The taxpayer type is chosen per request.
func (s *EntryService) UpdateType(_ context.Context, rawType string) error {
	if rawType == "" {
		return apperrors.NewValidationError("type", "The type field is required.")
	}
	_, err := domain.ParseTaxpayerType(rawType)
	return err
}
