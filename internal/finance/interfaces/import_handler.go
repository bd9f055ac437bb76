package interfaces

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/sebuszqo/FinanceTracker/internal/finance/ingest"
)

const (
	// multipartOverhead leaves room for boundaries and headers around the uploaded file.
	multipartOverhead = 64 << 10
	// multipartMemory is how much of an upload is buffered in memory before spilling to a temp file.
	multipartMemory = 1 << 20
)

type ImportServiceInterface interface {
	ImportFile(ctx context.Context, userID string, accountID uuid.UUID, filename string, data []byte) (*application.ImportResult, error)
	SyncFeed(ctx context.Context, userID string, accountID uuid.UUID, feed []ingest.FeedTransaction) (*application.ImportResult, error)
}

type ImportHandler struct {
	responder
	service  ImportServiceInterface
	maxBytes int64
}

func NewImportHandler(service ImportServiceInterface, maxBytes int64, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log zerolog.Logger) *ImportHandler {
	if service == nil {
		log.Fatal().Msg("Service must not be nil")
	}
	if maxBytes <= 0 {
		maxBytes = ingest.DefaultMaxFileSize
	}
	return &ImportHandler{responder: newResponder(respondJSON, respondError, log), service: service, maxBytes: maxBytes}
}

// ImportFile accepts a multipart upload with the statement in the "file" field.
func (h *ImportHandler) ImportFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "File exceeds the maximum import size")
			return
		}
		h.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	result, err := h.service.ImportFile(r.Context(), userID, accountID, header.Filename, data)
	if err != nil {
		h.serviceError(w, r, err, "Failed to import file")
		return
	}
	h.success(w, http.StatusOK, "Import finished.", result)
}

// SyncFeed ingests transactions pushed by a bank feed connector.
func (h *ImportHandler) SyncFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	var req struct {
		Transactions []ingest.FeedTransaction `json:"transactions"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.SyncFeed(r.Context(), userID, accountID, req.Transactions)
	if err != nil {
		h.serviceError(w, r, err, "Failed to sync account")
		return
	}
	h.success(w, http.StatusOK, "Sync finished.", result)
}
