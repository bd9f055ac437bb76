package interfaces

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
)

type CategoryServiceInterface interface {
	SeedDefaults(ctx context.Context, userID string) ([]domain.Category, error)
	Create(ctx context.Context, userID string, category *domain.Category) error
	List(ctx context.Context, userID string, transactionType domain.TransactionType) ([]domain.Category, error)
}

type CategoryHandler struct {
	responder
	service CategoryServiceInterface
}

func NewCategoryHandler(service CategoryServiceInterface, respondJSON RespondJSONFunc, respondError RespondErrorFunc, log zerolog.Logger) *CategoryHandler {
	if service == nil {
		log.Fatal().Msg("Service must not be nil")
	}
	return &CategoryHandler{responder: newResponder(respondJSON, respondError, log), service: service}
}

func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	categoryType := domain.TransactionType(r.URL.Query().Get("type"))
	if categoryType != "" && !domain.IsValidTransactionType(categoryType) {
		h.respondError(w, http.StatusBadRequest, "Invalid category type")
		return
	}

	categories, err := h.service.List(r.Context(), userID, categoryType)
	if err != nil {
		h.serviceError(w, r, err, "Failed to retrieve categories")
		return
	}
	h.success(w, http.StatusOK, "Categories retrieved successfully.", categories)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var category domain.Category
	if !h.decode(w, r, &category) {
		return
	}
	if err := h.service.Create(r.Context(), userID, &category); err != nil {
		h.serviceError(w, r, err, "Failed to create category")
		return
	}
	h.success(w, http.StatusCreated, "Category successfully created.", category)
}

// SeedCategories creates the default taxonomy for the caller. Existing names are kept.
func (h *CategoryHandler) SeedCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	categories, err := h.service.SeedDefaults(r.Context(), userID)
	if err != nil {
		h.serviceError(w, r, err, "Failed to seed categories")
		return
	}
	h.success(w, http.StatusOK, "Default categories are in place.", categories)
}
