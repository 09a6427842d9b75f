package files

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/sebuszqo/TaxManager/internal/api"
	"github.com/sebuszqo/TaxManager/internal/logger"
	"github.com/sebuszqo/TaxManager/internal/session"
	"go.uber.org/zap"
)

const (
	// multipartOverhead covers the form fields and boundaries around the file part.
	multipartOverhead = 1 << 20
	maxMemory         = 32 << 20
)

type Handler struct {
	service        Service
	respondJSON    api.JSONResponder
	respondError   api.ErrorResponder
	maxUploadBytes int64
}

func NewHandler(service Service, respondJSON api.JSONResponder, respondError api.ErrorResponder, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		respondJSON:    respondJSON,
		respondError:   respondError,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (session.Principal, bool) {
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return p, ok
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	files, err := h.service.List(r.Context(), p)
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Could not list files")
		return
	}
	h.respondJSON(w, http.StatusOK, files)
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			// The rest of the body is left unread.
			w.Header().Set("Connection", "close")
			h.respondError(w, http.StatusUnprocessableEntity, "The given data was invalid.", map[string][]string{
				"file": {fmt.Sprintf("The file field must not be greater than %d kilobytes.", h.maxUploadBytes/1024)},
			})
			return
		}
		h.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	in := UploadInput{Name: r.FormValue("name")}
	if values, ok := r.MultipartForm.Value["description"]; ok && len(values) > 0 && values[0] != "" {
		in.Description = &values[0]
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		h.respondError(w, http.StatusBadRequest, "Invalid file part")
		return
	default:
		defer file.Close()
		in.Content = file
		in.Filename = header.Filename
		in.Mime = header.Header.Get("Content-Type")
		in.Size = header.Size
	}

	f, err := h.service.Upload(r.Context(), p, in)
	if err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Could not upload file")
		return
	}
	h.respondJSON(w, http.StatusCreated, f)
}

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	f, content, err := h.service.Open(r.Context(), p, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			h.respondError(w, http.StatusNotFound, "File content not found")
			return
		}
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Could not download file")
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", f.Mime)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename}))
	if f.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		logger.FromContext(r.Context()).Warn("download interrupted", zap.String("file_id", f.ID), zap.Error(err))
	}
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), p, r.PathValue("id")); err != nil {
		api.RespondServiceError(r.Context(), h.respondError, w, err, "Could not delete file")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
