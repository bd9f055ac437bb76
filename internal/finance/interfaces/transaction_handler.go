package interfaces

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
)

type TransactionServiceInterface interface {
	Create(ctx context.Context, userID string, transaction *domain.Transaction) error
	Update(ctx context.Context, userID string, transactionID uuid.UUID, patch application.TransactionUpdate) (*domain.Transaction, error)
	Delete(ctx context.Context, userID string, transactionID uuid.UUID) error
	Recategorize(ctx context.Context, userID string, transactionID, categoryID uuid.UUID) (*domain.Transaction, error)
	Get(ctx context.Context, userID string, transactionID uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
	Summary(ctx context.Context, userID string, from, to time.Time) (map[int]application.TransactionSummary, error)
}

type TransactionHandler struct {
	responder
	service TransactionServiceInterface
}

func NewTransactionHandler(service TransactionServiceInterface, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log zerolog.Logger) *TransactionHandler {
	if service == nil {
		log.Fatal().Msg("Service must not be nil")
	}
	return &TransactionHandler{responder: newResponder(respondJSON, respondError, log), service: service}
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var transaction domain.Transaction
	if !h.decode(w, r, &transaction) {
		return
	}
	if err := h.service.Create(r.Context(), userID, &transaction); err != nil {
		h.serviceError(w, r, err, "Failed to create transaction")
		return
	}
	h.success(w, http.StatusCreated, "Transaction successfully created.", transaction)
}

func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	filter, ok := h.listFilter(w, r)
	if !ok {
		return
	}
	transactions, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve transactions")
		return
	}
	h.success(w, http.StatusOK, "Transactions retrieved successfully.", transactions)
}

func (h *TransactionHandler) listFilter(w http.ResponseWriter, r *http.Request) (domain.TransactionFilter, bool) {
	query := r.URL.Query()
	filter := domain.TransactionFilter{Type: domain.TransactionType(query.Get("type"))}

	from, to, err := parseDateRange(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return filter, false
	}
	filter.From, filter.To = from, to

	for name, dst := range map[string]**uuid.UUID{"account_id": &filter.AccountID, "category_id": &filter.CategoryID} {
		if raw := query.Get(name); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				h.respondError(w, http.StatusBadRequest, "Invalid "+name)
				return filter, false
			}
			*dst = &id
		}
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.respondError(w, http.StatusBadRequest, "Invalid limit")
			return filter, false
		}
		filter.Limit = limit
	}
	return filter, true
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	transactionID, ok := h.pathID(w, r, "transactionID")
	if !ok {
		return
	}
	transaction, err := h.service.Get(r.Context(), userID, transactionID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve transaction")
		return
	}
	h.success(w, http.StatusOK, "Transaction retrieved successfully.", transaction)
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	transactionID, ok := h.pathID(w, r, "transactionID")
	if !ok {
		return
	}
	var patch application.TransactionUpdate
	if !h.decode(w, r, &patch) {
		return
	}
	transaction, err := h.service.Update(r.Context(), userID, transactionID, patch)
	if err != nil {
		h.serviceError(w, r, err, "Failed to update transaction")
		return
	}
	h.success(w, http.StatusOK, "Transaction successfully updated.", transaction)
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	transactionID, ok := h.pathID(w, r, "transactionID")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, transactionID); err != nil {
		h.serviceError(w, r, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecategorizeTransaction records a manual category choice with full confidence.
func (h *TransactionHandler) RecategorizeTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	transactionID, ok := h.pathID(w, r, "transactionID")
	if !ok {
		return
	}
	var req struct {
		CategoryID uuid.UUID `json:"categoryId"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.CategoryID == uuid.Nil {
		h.respondError(w, http.StatusBadRequest, "categoryId is required")
		return
	}
	transaction, err := h.service.Recategorize(r.Context(), userID, transactionID, req.CategoryID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to recategorize transaction")
		return
	}
	h.success(w, http.StatusOK, "Transaction recategorized.", transaction)
}

func (h *TransactionHandler) GetTransactionSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if from.IsZero() || to.IsZero() {
		h.respondError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}
	summary, err := h.service.Summary(r.Context(), userID, from, to)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve transaction summary")
		return
	}
	h.success(w, http.StatusOK, "Transaction summary retrieved successfully.", summary)
}
