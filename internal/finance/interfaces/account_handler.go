package interfaces

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	"github.com/shopspring/decimal"
)

type AccountServiceInterface interface {
	Create(ctx context.Context, userID string, account *domain.Account) error
	Get(ctx context.Context, userID string, accountID uuid.UUID) (*domain.Account, error)
	List(ctx context.Context, userID string) ([]domain.Account, error)
	Deactivate(ctx context.Context, userID string, accountID uuid.UUID) error
	Reconcile(ctx context.Context, userID string, accountID uuid.UUID) (*domain.Account, decimal.Decimal, error)
}

type AccountHandler struct {
	responder
	service AccountServiceInterface
}

func NewAccountHandler(service AccountServiceInterface, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log zerolog.Logger) *AccountHandler {
	if service == nil {
		log.Fatal().Msg("Service must not be nil")
	}
	return &AccountHandler{responder: newResponder(respondJSON, respondError, log), service: service}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var account domain.Account
	if !h.decode(w, r, &account) {
		return
	}
	if err := h.service.Create(r.Context(), userID, &account); err != nil {
		h.serviceError(w, r, err, "Failed to create account")
		return
	}
	h.success(w, http.StatusCreated, "Account successfully created.", account)
}

func (h *AccountHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accounts, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve accounts")
		return
	}
	h.success(w, http.StatusOK, "Accounts retrieved successfully.", accounts)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	account, err := h.service.Get(r.Context(), userID, accountID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve account")
		return
	}
	h.success(w, http.StatusOK, "Account retrieved successfully.", account)
}

func (h *AccountHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), userID, accountID); err != nil {
		h.serviceError(w, r, err, "Failed to deactivate account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReconcileAccount resets the stored balance to the ledger sum and reports the correction applied.
func (h *AccountHandler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID, ok := h.pathID(w, r, "accountID")
	if !ok {
		return
	}
	account, correction, err := h.service.Reconcile(r.Context(), userID, accountID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to reconcile account")
		return
	}
	h.success(w, http.StatusOK, "Account reconciled.", map[string]interface{}{
		"account":    account,
		"correction": correction,
	})
}
