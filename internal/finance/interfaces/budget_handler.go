package interfaces

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
)

type BudgetServiceInterface interface {
	Create(ctx context.Context, userID string, input application.BudgetInput) (*domain.Budget, error)
	Update(ctx context.Context, userID string, budgetID uuid.UUID, input application.BudgetInput) (*domain.Budget, error)
	Delete(ctx context.Context, userID string, budgetID uuid.UUID) error
	List(ctx context.Context, userID string) ([]application.BudgetStatus, error)
	Get(ctx context.Context, userID string, budgetID uuid.UUID) (*application.BudgetStatus, error)
}

// BudgetEvaluator checks a user's budgets against their alert thresholds.
type BudgetEvaluator interface {
	Evaluate(ctx context.Context, userID string) error
}

type BudgetHandler struct {
	responder
	service   BudgetServiceInterface
	evaluator BudgetEvaluator
}

func NewBudgetHandler(service BudgetServiceInterface, evaluator BudgetEvaluator, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log zerolog.Logger) *BudgetHandler {
	if service == nil || evaluator == nil {
		log.Fatal().Msg("Service and evaluator must not be nil")
	}
	return &BudgetHandler{responder: newResponder(respondJSON, respondError, log), service: service, evaluator: evaluator}
}

func (h *BudgetHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var input application.BudgetInput
	if !h.decode(w, r, &input) {
		return
	}
	budget, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		h.serviceError(w, r, err, "Failed to create budget")
		return
	}
	h.success(w, http.StatusCreated, "Budget successfully created.", budget)
}

func (h *BudgetHandler) GetBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	budgets, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve budgets")
		return
	}
	h.success(w, http.StatusOK, "Budgets retrieved successfully.", budgets)
}

func (h *BudgetHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	budgetID, ok := h.pathID(w, r, "budgetID")
	if !ok {
		return
	}
	budget, err := h.service.Get(r.Context(), userID, budgetID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve budget")
		return
	}
	h.success(w, http.StatusOK, "Budget retrieved successfully.", budget)
}

func (h *BudgetHandler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	budgetID, ok := h.pathID(w, r, "budgetID")
	if !ok {
		return
	}
	var input application.BudgetInput
	if !h.decode(w, r, &input) {
		return
	}
	budget, err := h.service.Update(r.Context(), userID, budgetID, input)
	if err != nil {
		h.serviceError(w, r, err, "Failed to update budget")
		return
	}
	h.success(w, http.StatusOK, "Budget successfully updated.", budget)
}

func (h *BudgetHandler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	budgetID, ok := h.pathID(w, r, "budgetID")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, budgetID); err != nil {
		h.serviceError(w, r, err, "Failed to delete budget")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EvaluateBudgets runs the alert check synchronously for the caller.
func (h *BudgetHandler) EvaluateBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.evaluator.Evaluate(r.Context(), userID); err != nil {
		h.serviceError(w, r, err, "Failed to evaluate budgets")
		return
	}
	budgets, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve budgets")
		return
	}
	h.success(w, http.StatusOK, "Budgets evaluated.", budgets)
}
