package interfaces

import "net/http"

type Handlers struct {
	Accounts     *AccountHandler
	Categories   *CategoryHandler
	Transactions *TransactionHandler
	Imports      *ImportHandler
	Recurring    *RecurringHandler
	Budgets      *BudgetHandler
}

// RegisterRoutes mounts the finance API under /api/protected/. Every route goes through protect.
func (h Handlers) RegisterRoutes(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(fn))
	}

	// ACCOUNTS
	handle("POST /api/protected/accounts", h.Accounts.CreateAccount)
	handle("GET /api/protected/accounts", h.Accounts.GetAccounts)
	handle("GET /api/protected/accounts/{accountID}", h.Accounts.GetAccount)
	handle("DELETE /api/protected/accounts/{accountID}", h.Accounts.DeactivateAccount)
	handle("POST /api/protected/accounts/{accountID}/reconcile", h.Accounts.ReconcileAccount)
	handle("POST /api/protected/accounts/{accountID}/import", h.Imports.ImportFile)
	handle("POST /api/protected/accounts/{accountID}/sync", h.Imports.SyncFeed)

	// CATEGORIES
	handle("GET /api/protected/categories", h.Categories.GetCategories)
	handle("POST /api/protected/categories", h.Categories.CreateCategory)
	handle("POST /api/protected/categories/seed", h.Categories.SeedCategories)

	// TRANSACTIONS
	handle("POST /api/protected/transactions", h.Transactions.CreateTransaction)
	handle("GET /api/protected/transactions", h.Transactions.GetTransactions)
	handle("GET /api/protected/transactions/summary", h.Transactions.GetTransactionSummary)
	handle("GET /api/protected/transactions/{transactionID}", h.Transactions.GetTransaction)
	handle("PUT /api/protected/transactions/{transactionID}", h.Transactions.UpdateTransaction)
	handle("DELETE /api/protected/transactions/{transactionID}", h.Transactions.DeleteTransaction)
	handle("PUT /api/protected/transactions/{transactionID}/category", h.Transactions.RecategorizeTransaction)

	// RECURRING
	handle("POST /api/protected/recurring", h.Recurring.CreateRecurring)
	handle("GET /api/protected/recurring", h.Recurring.GetRecurring)
	handle("POST /api/protected/recurring/trigger", h.Recurring.TriggerSweep)
	handle("GET /api/protected/recurring/{recurringID}", h.Recurring.GetRecurringByID)
	handle("PUT /api/protected/recurring/{recurringID}", h.Recurring.UpdateRecurring)
	handle("DELETE /api/protected/recurring/{recurringID}", h.Recurring.DeleteRecurring)
	handle("POST /api/protected/recurring/{recurringID}/toggle", h.Recurring.ToggleRecurring)

	// BUDGETS
	handle("POST /api/protected/budgets", h.Budgets.CreateBudget)
	handle("GET /api/protected/budgets", h.Budgets.GetBudgets)
	handle("POST /api/protected/budgets/evaluate", h.Budgets.EvaluateBudgets)
	handle("GET /api/protected/budgets/{budgetID}", h.Budgets.GetBudget)
	handle("PUT /api/protected/budgets/{budgetID}", h.Budgets.UpdateBudget)
	handle("DELETE /api/protected/budgets/{budgetID}", h.Budgets.DeleteBudget)
}
