package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

func IsValidTransactionType(t TransactionType) bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// ManualConfidence is assigned whenever a user picks the category by hand.
const ManualConfidence = 1.0

type Transaction struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             string          `json:"userId"`
	AccountID          uuid.UUID       `json:"accountId"`
	CategoryID         *uuid.UUID      `json:"categoryId,omitempty"`
	Type               TransactionType `json:"type"`
	Amount             decimal.Decimal `json:"amount"` // always unsigned, Type carries the sign
	Currency           string          `json:"currency"`
	Date               time.Time       `json:"date"`
	Description        string          `json:"description"`
	MerchantName       string          `json:"merchantName,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	Tags               []string        `json:"tags,omitempty"`
	ImportHash         *string         `json:"importHash,omitempty"`
	CategoryConfidence *float64        `json:"categoryConfidence,omitempty"`
	ExternalID         *string         `json:"externalId,omitempty"`
	IsRecurring        bool            `json:"isRecurring"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func (t *Transaction) Validate() error {
	if !IsValidTransactionType(t.Type) {
		return errors.ErrInvalidTransactionType
	}
	if t.Amount.IsNegative() {
		return errors.ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return errors.NewValidationError("Date is required")
	}
	if len(t.Description) > 500 {
		return errors.NewValidationError("Description must be of length less than 500")
	}
	if len(t.Currency) != 3 {
		return errors.NewValidationError("Currency must be a 3-letter ISO 4217 code")
	}
	return nil
}

// SignedAmount is the contribution of the transaction to its account balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	return SignedAmount(t.Type, t.Amount)
}

func SignedAmount(transactionType TransactionType, amount decimal.Decimal) decimal.Decimal {
	if transactionType == TransactionTypeExpense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

type TransactionFilter struct {
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	Type       TransactionType
	From       time.Time
	To         time.Time
	Limit      int
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) error
	CreateBatch(ctx context.Context, transactions []Transaction) error
	Update(ctx context.Context, transaction *Transaction) error
	Delete(ctx context.Context, userID string, transactionID uuid.UUID) error
	FindByID(ctx context.Context, userID string, transactionID uuid.UUID) (*Transaction, error)
	// FindByIDForUpdate reads the row and holds a write lock on it for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, userID string, transactionID uuid.UUID) (*Transaction, error)
	List(ctx context.Context, userID string, filter TransactionFilter) ([]Transaction, error)
	ExistingImportHashes(ctx context.Context, userID string, hashes []string) (map[string]bool, error)
	ExistingExternalIDs(ctx context.Context, userID string, externalIDs []string) (map[string]bool, error)
	// SumExpenses totals |amount| of expense transactions dated within [from, to].
	// An empty categoryName counts every expense.
	SumExpenses(ctx context.Context, userID, categoryName string, from, to time.Time) (decimal.Decimal, error)
	SumSignedByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}
