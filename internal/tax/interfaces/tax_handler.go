package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/sebuszqo/TaxManager/internal/api"
	"github.com/sebuszqo/TaxManager/internal/logger"
	"github.com/sebuszqo/TaxManager/internal/session"
	"github.com/sebuszqo/TaxManager/internal/tax/application"
	"github.com/sebuszqo/TaxManager/internal/tax/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxBodyBytes    = 1 << 20
)

type TaxServiceInterface interface {
	ListEntries(ctx context.Context, p session.Principal, rawType string) (domain.TaxpayerType, []domain.Entry, error)
	CreateEntry(ctx context.Context, p session.Principal, in application.EntryInput) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, p session.Principal, id string, in application.EntryInput) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, p session.Principal, id string) error
	SaveBatch(ctx context.Context, p session.Principal, rawType string, items []application.BatchItem) ([]domain.Entry, error)
	SaveSummary(ctx context.Context, p session.Principal, in application.SummaryInput) (domain.Summary, error)
	Calculate(ctx context.Context, p session.Principal, rawType string, persist bool) (domain.Summary, error)
	Export(ctx context.Context, p session.Principal, rawType string) ([]byte, error)
	UpdateType(ctx context.Context, rawType string) error
}

type TaxHandler struct {
	service      TaxServiceInterface
	respondJSON  api.JSONResponder
	respondError api.ErrorResponder
}

func NewTaxHandler(service TaxServiceInterface, respondJSON api.JSONResponder, respondError api.ErrorResponder) *TaxHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	if respondJSON == nil {
		log.Fatal("RespondJSON function must not be nil")
		return nil
	}
	if respondError == nil {
		log.Fatal("RespondError function must not be nil")
		return nil
	}
	return &TaxHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type entryResponse struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	Value        decimal.Decimal `json:"value"`
	TaxpayerType string          `json:"taxpayer_type"`
}

func toEntryResponse(e domain.Entry) entryResponse {
	return entryResponse{ID: e.ID, Label: e.Label, Value: e.Value, TaxpayerType: e.TaxpayerType.String()}
}

func toEntryResponses(entries []domain.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

func (h *TaxHandler) principal(w http.ResponseWriter, r *http.Request) (session.Principal, bool) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return p, ok
}

// decode reads a JSON body capped at maxBodyBytes and reports failures itself.
func (h *TaxHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *TaxHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	taxpayerType, entries, err := h.service.ListEntries(r.Context(), p, r.URL.Query().Get("type"))
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Failed to load tax entries")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"type":    taxpayerType,
		"entries": toEntryResponses(entries),
	})
}

func (h *TaxHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var in application.EntryInput
	if !h.decode(w, r, &in) {
		return
	}

	entry, err := h.service.CreateEntry(r.Context(), p, in)
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Failed to create tax entry")
		return
	}

	h.respondJSON(w, http.StatusCreated, toEntryResponse(*entry))
}

func (h *TaxHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var in application.EntryInput
	if !h.decode(w, r, &in) {
		return
	}

	entry, err := h.service.UpdateEntry(r.Context(), p, r.PathValue("id"), in)
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Failed to update tax entry")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":      entry.ID,
		"label":   entry.Label,
		"value":   entry.Value,
		"message": "Updated successfully",
	})
}

func (h *TaxHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteEntry(r.Context(), p, r.PathValue("id")); err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Failed to delete tax entry")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Tax entry deleted successfully"})
}

func (h *TaxHandler) SaveBatch(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req struct {
		Type    string                  `json:"type"`
		Entries []application.BatchItem `json:"entries"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = r.URL.Query().Get("type")
	}

	entries, err := h.service.SaveBatch(r.Context(), p, req.Type, req.Entries)
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Failed to save tax entries")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Tax entries saved successfully",
		"entries": toEntryResponses(entries),
	})
}

func (h *TaxHandler) SaveSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var in application.SummaryInput
	if !h.decode(w, r, &in) {
		return
	}

	summary, err := h.service.SaveSummary(r.Context(), p, in)
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Failed to save tax summary")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Tax summary saved successfully",
		"summary": summary,
	})
}

func (h *TaxHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	persist := false
	if raw := r.URL.Query().Get("save"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(w, http.StatusUnprocessableEntity, "The given data was invalid.", map[string][]string{
				"save": {"The save field must be true or false."},
			})
			return
		}
		persist = parsed
	}

	summary, err := h.service.Calculate(r.Context(), p, r.URL.Query().Get("type"), persist)
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Failed to calculate tax")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"summary": summary,
		"saved":   persist,
	})
}

func (h *TaxHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	rawType := r.URL.Query().Get("type")
	data, err := h.service.Export(r.Context(), p, rawType)
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Failed to export tax entries")
		return
	}

	taxpayerType, _ := domain.ParseTaxpayerType(rawType)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tax-%s.xlsx"`, taxpayerType))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.FromContext(r.Context()).Warn("write export", zap.Error(err))
	}
}

// UpdateType is kept for older clients; the taxpayer type travels with each request.
func (h *TaxHandler) UpdateType(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}

	var req struct {
		Type string `json:"type"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.UpdateType(r.Context(), req.Type); err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Failed to update taxpayer type")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"type":    nil,
		"message": "Taxpayer type is chosen per request now (no-op)",
	})
}
