package application

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
)

type CategoryService struct {
	store domain.Store
	log   zerolog.Logger
}

func NewCategoryService(store domain.Store, log zerolog.Logger) *CategoryService {
	return &CategoryService{store: store, log: log}
}

// SeedDefaults gives an owner without categories the default taxonomy. It is a no-op otherwise.
func (s *CategoryService) SeedDefaults(ctx context.Context, userID string) ([]domain.Category, error) {
	var seeded []domain.Category
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		existing, err := repos.Categories.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			seeded = existing
			return nil
		}
		seeded = make([]domain.Category, len(domain.DefaultCategories))
		for i, category := range domain.DefaultCategories {
			category.ID = uuid.New()
			category.UserID = userID
			category.IsDefault = true
			seeded[i] = category
		}
		return repos.Categories.CreateBatch(ctx, seeded)
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("user_id", userID).Int("categories", len(seeded)).Msg("Default categories ready")
	return seeded, nil
}

func (s *CategoryService) Create(ctx context.Context, userID string, category *domain.Category) error {
	category.ID = uuid.New()
	category.UserID = userID
	category.Name = strings.TrimSpace(category.Name)
	category.IsDefault = false
	if err := category.Validate(); err != nil {
		return err
	}
	existing, err := s.store.Repos().Categories.FindByName(ctx, userID, category.Name)
	if err == nil && existing.Type == category.Type {
		return financeErrors.NewValidationError("Category already exists")
	}
	if err != nil && !financeErrors.IsNotFoundError(err) {
		return err
	}
	return s.store.Repos().Categories.Create(ctx, category)
}

func (s *CategoryService) List(ctx context.Context, userID string, transactionType domain.TransactionType) ([]domain.Category, error) {
	categories, err := s.store.Repos().Categories.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if transactionType == "" {
		return categories, nil
	}
	if !domain.IsValidTransactionType(transactionType) {
		return nil, financeErrors.ErrInvalidTransactionType
	}
	filtered := make([]domain.Category, 0, len(categories))
	for _, category := range categories {
		if category.Type == transactionType {
			filtered = append(filtered, category)
		}
	}
	return filtered, nil
}
