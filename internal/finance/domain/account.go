package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeCash       AccountType = "cash"
)

const (
	ProviderManual = "manual"
	ProviderFeed   = "feed"
)

type Account struct {
	ID               uuid.UUID       `json:"id"`
	UserID           string          `json:"userId"`
	Name             string          `json:"name"`
	Type             AccountType     `json:"type"`
	Currency         string          `json:"currency"`
	Balance          decimal.Decimal `json:"balance"`
	ExternalID       *string         `json:"externalId,omitempty"`
	ExternalProvider string          `json:"externalProvider"`
	InstitutionName  string          `json:"institutionName,omitempty"`
	LastSyncedAt     *time.Time      `json:"lastSyncedAt,omitempty"`
	IsActive         bool            `json:"isActive"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func (a *Account) Validate() error {
	if a.Name == "" {
		return errors.NewValidationError("Account name is required")
	}
	if len(a.Name) > 100 {
		return errors.NewValidationError("Account name must be of length less than 100")
	}
	switch a.Type {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit, AccountTypeInvestment, AccountTypeCash:
	default:
		return errors.NewValidationError("Invalid account type")
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("Currency must be a 3-letter ISO 4217 code")
	}
	return nil
}

type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, userID string, accountID uuid.UUID) (*Account, error)
	ListByUser(ctx context.Context, userID string) ([]Account, error)
	// AdjustBalance adds delta to the stored balance atomically and returns the new balance.
	AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	SetBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error
	MarkSynced(ctx context.Context, accountID uuid.UUID, at time.Time) error
	Deactivate(ctx context.Context, userID string, accountID uuid.UUID) error
}
