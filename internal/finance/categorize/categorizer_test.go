package categorize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultCategories() []domain.Category {
	categories := make([]domain.Category, len(domain.DefaultCategories))
	for i, c := range domain.DefaultCategories {
		c.ID = uuid.New()
		categories[i] = c
	}
	return categories
}

func newTestCategorizer(t *testing.T) *Categorizer {
	rules, err := DefaultRules()
	require.NoError(t, err)
	return New(rules)
}

func TestCategorize(t *testing.T) {
	c := newTestCategorizer(t)
	categories := defaultCategories()

	tests := []struct {
		name            string
		transactionType domain.TransactionType
		description     string
		merchant        string
		wantCategory    string
		wantConfidence  float64
	}{
		{"income always salary", domain.TransactionTypeIncome, "Transfer from Bob", "", "Salary", 0.8},
		{"refund on expense row", domain.TransactionTypeExpense, "Amazon REFUND", "", "Other Income", 0.75},
		{"interest", domain.TransactionTypeExpense, "Account interest", "", "Investment", 0.75},
		{"one grocery keyword", domain.TransactionTypeExpense, "LIDL 123 Paris", "", "Groceries", 0.7 + 0.2/7},
		{"keyword in merchant", domain.TransactionTypeExpense, "Card payment", "Starbucks", "Food & Dining", 0.7 + 0.2/8},
		{"higher score wins", domain.TransactionTypeExpense, "Rent and mortgage", "", "Housing", 0.7 + 0.2*2/3},
		{"shorter keyword list scores higher", domain.TransactionTypeExpense, "Netflix", "", "Subscriptions", 0.7 + 0.2/5},
		{"fallback expense", domain.TransactionTypeExpense, "Something odd", "", "Other Expense", 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Categorize(tt.transactionType, tt.description, tt.merchant, categories)
			require.NotNil(t, got.CategoryID)
			assert.Equal(t, tt.wantCategory, got.CategoryName)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
		})
	}
}

func TestCategorizeConfidenceIsCapped(t *testing.T) {
	rules, err := ParseRules([]byte(`
income_category: Salary
fallback_expense: Other Expense
fallback_income: Other Income
expense_rules:
  - category: Groceries
    keywords: [lidl, market]
`))
	require.NoError(t, err)

	got := New(rules).Categorize(domain.TransactionTypeExpense, "Lidl Market", "", defaultCategories())

	assert.Equal(t, "Groceries", got.CategoryName)
	assert.Equal(t, ConfidenceKeywordMax, got.Confidence)
}

func TestCategorizeTieKeepsDeclaredOrder(t *testing.T) {
	rules, err := ParseRules([]byte(`
income_category: Salary
fallback_expense: Other Expense
fallback_income: Other Income
expense_rules:
  - category: Entertainment
    keywords: [netflix, cinema]
  - category: Subscriptions
    keywords: [netflix, monthly]
`))
	require.NoError(t, err)

	got := New(rules).Categorize(domain.TransactionTypeExpense, "NETFLIX.COM", "", defaultCategories())

	assert.Equal(t, "Entertainment", got.CategoryName)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
}

func TestCategorizeIsDeterministic(t *testing.T) {
	c := newTestCategorizer(t)
	categories := defaultCategories()

	first := c.Categorize(domain.TransactionTypeExpense, "Uber trip to the train", "", categories)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Categorize(domain.TransactionTypeExpense, "Uber trip to the train", "", categories))
	}
	assert.Equal(t, "Transportation", first.CategoryName)
}

func TestCategorizeSkipsMissingCategories(t *testing.T) {
	c := newTestCategorizer(t)
	other := domain.Category{ID: uuid.New(), Name: "Other Income", Type: domain.TransactionTypeIncome}

	got := c.Categorize(domain.TransactionTypeIncome, "Salary", "", []domain.Category{other})
	assert.Equal(t, "Other Income", got.CategoryName)
	assert.Equal(t, ConfidenceFallback, got.Confidence)

	got = c.Categorize(domain.TransactionTypeExpense, "Lidl", "", nil)
	assert.Nil(t, got.CategoryID)
	assert.Zero(t, got.Confidence)
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, "Salary", rules.IncomeCategory)
	assert.Equal(t, "Food & Dining", rules.ExpenseRules[0].Category)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("income_category: Salary\nfallback_expense: Misc\nfallback_income: Misc In\nexpense_rules:\n  - category: Pets\n    keywords: [' VET ']\n"), 0o600))
	rules, err = LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"vet"}, rules.ExpenseRules[0].Keywords)

	_, err = ParseRules([]byte("expense_rules: []"))
	assert.Error(t, err)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
