package infrastructure

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
)

type CategoryRepository struct {
	db DBTX
}

func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, user_id, name, type, icon, color, is_default`

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		category.ID, category.UserID, category.Name, category.Type, category.Icon, category.Color, category.IsDefault,
	)
	return financeErrors.NewPersistenceError("create category", err)
}

func (r *CategoryRepository) CreateBatch(ctx context.Context, categories []domain.Category) error {
	for i := range categories {
		if err := r.Create(ctx, &categories[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, userID string, categoryID uuid.UUID) (*domain.Category, error) {
	return r.findOne(ctx, categoryID.String(),
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND user_id = $2`, categoryID, userID)
}

// FindByName returns the oldest-inserted match when several categories share the name.
func (r *CategoryRepository) FindByName(ctx context.Context, userID, name string) (*domain.Category, error) {
	return r.findOne(ctx, name,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND name = $2 ORDER BY created_at, id LIMIT 1`, userID, name)
}

func (r *CategoryRepository) findOne(ctx context.Context, key, query string, args ...any) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.NewNotFoundError("category", key)
	}
	if err != nil {
		return nil, financeErrors.NewPersistenceError("find category", err)
	}
	return &c, nil
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, financeErrors.NewPersistenceError("list categories", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.IsDefault); err != nil {
			return nil, financeErrors.NewPersistenceError("scan category", err)
		}
		categories = append(categories, c)
	}
	return categories, financeErrors.NewPersistenceError("list categories", rows.Err())
}
