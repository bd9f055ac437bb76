package interfaces

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	"github.com/sebuszqo/FinanceTracker/internal/finance/scheduler"
)

type RecurringServiceInterface interface {
	Create(ctx context.Context, userID string, rt *domain.RecurringTransaction) error
	Update(ctx context.Context, userID string, recurringID uuid.UUID, patch application.RecurringUpdate) (*domain.RecurringTransaction, error)
	Delete(ctx context.Context, userID string, recurringID uuid.UUID) error
	Toggle(ctx context.Context, userID string, recurringID uuid.UUID) (*domain.RecurringTransaction, error)
	Get(ctx context.Context, userID string, recurringID uuid.UUID) (*domain.RecurringTransaction, error)
	List(ctx context.Context, userID string, active *bool) ([]domain.RecurringTransaction, error)
}

// Sweeper runs the recurrence sweep on demand.
type Sweeper interface {
	Sweep(ctx context.Context) (scheduler.SweepResult, error)
}

type RecurringHandler struct {
	responder
	service RecurringServiceInterface
	sweeper Sweeper
}

func NewRecurringHandler(service RecurringServiceInterface, sweeper Sweeper, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log zerolog.Logger) *RecurringHandler {
	if service == nil || sweeper == nil {
		log.Fatal().Msg("Service and sweeper must not be nil")
	}
	return &RecurringHandler{responder: newResponder(respondJSON, respondError, log), service: service, sweeper: sweeper}
}

func (h *RecurringHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var rt domain.RecurringTransaction
	if !h.decode(w, r, &rt) {
		return
	}
	if err := h.service.Create(r.Context(), userID, &rt); err != nil {
		h.serviceError(w, r, err, "Failed to create recurring transaction")
		return
	}
	h.success(w, http.StatusCreated, "Recurring transaction successfully created.", rt)
}

func (h *RecurringHandler) GetRecurring(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var active *bool
	if raw := r.URL.Query().Get("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid active flag")
			return
		}
		active = &parsed
	}
	templates, err := h.service.List(r.Context(), userID, active)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve recurring transactions")
		return
	}
	h.success(w, http.StatusOK, "Recurring transactions retrieved successfully.", templates)
}

func (h *RecurringHandler) GetRecurringByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	recurringID, ok := h.pathID(w, r, "recurringID")
	if !ok {
		return
	}
	rt, err := h.service.Get(r.Context(), userID, recurringID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve recurring transaction")
		return
	}
	h.success(w, http.StatusOK, "Recurring transaction retrieved successfully.", rt)
}

func (h *RecurringHandler) UpdateRecurring(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	recurringID, ok := h.pathID(w, r, "recurringID")
	if !ok {
		return
	}
	var patch application.RecurringUpdate
	if !h.decode(w, r, &patch) {
		return
	}
	rt, err := h.service.Update(r.Context(), userID, recurringID, patch)
	if err != nil {
		h.serviceError(w, r, err, "Failed to update recurring transaction")
		return
	}
	h.success(w, http.StatusOK, "Recurring transaction successfully updated.", rt)
}

func (h *RecurringHandler) DeleteRecurring(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	recurringID, ok := h.pathID(w, r, "recurringID")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, recurringID); err != nil {
		h.serviceError(w, r, err, "Failed to delete recurring transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecurringHandler) ToggleRecurring(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	recurringID, ok := h.pathID(w, r, "recurringID")
	if !ok {
		return
	}
	rt, err := h.service.Toggle(r.Context(), userID, recurringID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to toggle recurring transaction")
		return
	}
	message := "Recurring transaction paused."
	if rt.IsActive {
		message = "Recurring transaction resumed."
	}
	h.success(w, http.StatusOK, message, rt)
}

// TriggerSweep materializes everything that is due now instead of waiting for the next tick.
func (h *RecurringHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userID(w, r); !ok {
		return
	}
	result, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.serviceError(w, r, err, "Failed to process recurring transactions")
		return
	}
	h.success(w, http.StatusOK, "Recurring transactions processed.", result)
}
