package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/errors"
)

const (
	CategorySalary       = "Salary"
	CategoryOtherExpense = "Other Expense"
	CategoryOtherIncome  = "Other Income"
)

type Category struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	Icon      string          `json:"icon,omitempty"`
	Color     string          `json:"color,omitempty"`
	IsDefault bool            `json:"isDefault"`
}

func (c *Category) Validate() error {
	if c.Name == "" {
		return errors.NewValidationError("Category name is required")
	}
	if len(c.Name) > 50 {
		return errors.NewValidationError("Category name must be of length less than 50")
	}
	if !IsValidTransactionType(c.Type) {
		return errors.ErrInvalidTransactionType
	}
	return nil
}

// DefaultCategories is the taxonomy seeded for every new user.
var DefaultCategories = []Category{
	{Name: "Salary", Type: TransactionTypeIncome, Icon: "💼", Color: "#10B981"},
	{Name: "Freelance", Type: TransactionTypeIncome, Icon: "💻", Color: "#34D399"},
	{Name: "Investment", Type: TransactionTypeIncome, Icon: "📈", Color: "#6EE7B7"},
	{Name: "Other Income", Type: TransactionTypeIncome, Icon: "💰", Color: "#A7F3D0"},
	{Name: "Housing", Type: TransactionTypeExpense, Icon: "🏠", Color: "#EF4444"},
	{Name: "Transportation", Type: TransactionTypeExpense, Icon: "🚗", Color: "#F59E0B"},
	{Name: "Food & Dining", Type: TransactionTypeExpense, Icon: "🍽️", Color: "#F97316"},
	{Name: "Groceries", Type: TransactionTypeExpense, Icon: "🛒", Color: "#84CC16"},
	{Name: "Shopping", Type: TransactionTypeExpense, Icon: "🛍️", Color: "#EC4899"},
	{Name: "Entertainment", Type: TransactionTypeExpense, Icon: "🎬", Color: "#8B5CF6"},
	{Name: "Health & Fitness", Type: TransactionTypeExpense, Icon: "💪", Color: "#14B8A6"},
	{Name: "Utilities", Type: TransactionTypeExpense, Icon: "💡", Color: "#6366F1"},
	{Name: "Insurance", Type: TransactionTypeExpense, Icon: "🛡️", Color: "#0EA5E9"},
	{Name: "Education", Type: TransactionTypeExpense, Icon: "📚", Color: "#3B82F6"},
	{Name: "Subscriptions", Type: TransactionTypeExpense, Icon: "📱", Color: "#A855F7"},
	{Name: "Travel", Type: TransactionTypeExpense, Icon: "✈️", Color: "#06B6D4"},
	{Name: "Other Expense", Type: TransactionTypeExpense, Icon: "📦", Color: "#6B7280"},
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	CreateBatch(ctx context.Context, categories []Category) error
	FindByID(ctx context.Context, userID string, categoryID uuid.UUID) (*Category, error)
	FindByName(ctx context.Context, userID, name string) (*Category, error)
	ListByUser(ctx context.Context, userID string) ([]Category, error)
}
