package application

import (
	"testing"

	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountOpeningBalanceIsInTheLedger(t *testing.T) {
	f := newFixture(t)
	card := domain.Account{Name: "Card", Type: domain.AccountTypeCredit, Currency: "usd", Balance: dec("-120.456")}
	require.NoError(t, f.accounts.Create(f.ctx, f.userID, &card))

	assert.True(t, dec("-120.46").Equal(card.Balance), card.Balance.String())
	assert.Equal(t, "USD", card.Currency)
	assert.Equal(t, domain.ProviderManual, card.ExternalProvider)

	listed, err := f.transactions.List(f.ctx, f.userID, domain.TransactionFilter{AccountID: &card.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, openingBalanceDescription, listed[0].Description)
	assert.Equal(t, domain.TransactionTypeExpense, listed[0].Type)
}

func TestAccountValidation(t *testing.T) {
	f := newFixture(t)
	err := f.accounts.Create(f.ctx, f.userID, &domain.Account{Name: "Broken", Type: "crypto", Currency: "EUR"})
	assert.True(t, financeErrors.IsValidationError(err))
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := newFixture(t)
	f.expense("40", "Lunch")
	require.NoError(t, f.store.Repos().Accounts.SetBalance(f.ctx, f.account.ID, dec("1000")))

	account, correction, err := f.accounts.Reconcile(f.ctx, f.userID, f.account.ID)
	require.NoError(t, err)
	assert.True(t, dec("-1040").Equal(correction), correction.String())
	assert.True(t, dec("-40").Equal(account.Balance))
	f.assertLedger()

	_, correction, err = f.accounts.Reconcile(f.ctx, f.userID, f.account.ID)
	require.NoError(t, err)
	assert.True(t, correction.IsZero())
}

func TestDeactivatedAccountRejectsWrites(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.accounts.Deactivate(f.ctx, f.userID, f.account.ID))

	_, err := f.imports.ImportFile(f.ctx, f.userID, f.account.ID, "statement.csv", []byte(statement))
	assert.True(t, financeErrors.IsValidationError(err))

	err = f.transactions.Create(f.ctx, f.userID, &domain.Transaction{
		AccountID: f.account.ID, Type: domain.TransactionTypeExpense, Amount: dec("1"),
		Currency: "EUR", Date: f.now, Description: "x",
	})
	assert.True(t, financeErrors.IsValidationError(err))

	err = f.recurring.Create(f.ctx, f.userID, &domain.RecurringTransaction{
		AccountID: f.account.ID, Type: domain.TransactionTypeExpense, Amount: dec("5"),
		Description: "Gym", Schedule: domain.Schedule{Frequency: domain.FrequencyWeekly}, StartDate: f.now,
	})
	assert.True(t, financeErrors.IsValidationError(err))
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	service := NewCategoryService(f.store, f.reconciler.log)

	again, err := service.SeedDefaults(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, again, len(domain.DefaultCategories))

	income, err := service.List(f.ctx, f.userID, domain.TransactionTypeIncome)
	require.NoError(t, err)
	assert.Len(t, income, 4)

	err = service.Create(f.ctx, f.userID, &domain.Category{Name: "Groceries", Type: domain.TransactionTypeExpense})
	assert.True(t, financeErrors.IsValidationError(err))
	require.NoError(t, service.Create(f.ctx, f.userID, &domain.Category{Name: "Pets", Type: domain.TransactionTypeExpense}))
}
