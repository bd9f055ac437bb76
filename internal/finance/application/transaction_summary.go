package application

import (
	"context"
	"time"

	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	"github.com/shopspring/decimal"
)

// summaryLimit bounds how many transactions one summary request reads.
const summaryLimit = 10000

type TransactionSummary struct {
	Year         int                     `json:"year"`
	IncomeTotal  decimal.Decimal         `json:"incomeTotal"`
	ExpenseTotal decimal.Decimal         `json:"expenseTotal"`
	Months       map[string]MonthSummary `json:"months"`
}

type MonthSummary struct {
	IncomeTotal  decimal.Decimal `json:"incomeTotal"`
	ExpenseTotal decimal.Decimal `json:"expenseTotal"`
	Weeks        []WeekSummary   `json:"weeks"`
}

type WeekSummary struct {
	Week         int             `json:"week"`
	IncomeTotal  decimal.Decimal `json:"incomeTotal"`
	ExpenseTotal decimal.Decimal `json:"expenseTotal"`
}

// Summary totals income and expense per year, month and ISO week within [from, to].
func (s *TransactionService) Summary(ctx context.Context, userID string, from, to time.Time) (map[int]TransactionSummary, error) {
	transactions, err := s.store.Repos().Transactions.List(ctx, userID, domain.TransactionFilter{From: from, To: to, Limit: summaryLimit})
	if err != nil {
		return nil, err
	}

	summary := make(map[int]TransactionSummary)
	for _, transaction := range transactions {
		year := transaction.Date.Year()
		month := transaction.Date.Month().String()
		_, week := transaction.Date.ISOWeek()

		yearSummary, ok := summary[year]
		if !ok {
			yearSummary = TransactionSummary{Year: year, Months: make(map[string]MonthSummary)}
		}
		monthSummary, ok := yearSummary.Months[month]
		if !ok {
			monthSummary = MonthSummary{Weeks: []WeekSummary{}}
		}

		index := -1
		for i, weekSummary := range monthSummary.Weeks {
			if weekSummary.Week == week {
				index = i
				break
			}
		}
		if index < 0 {
			monthSummary.Weeks = append(monthSummary.Weeks, WeekSummary{Week: week})
			index = len(monthSummary.Weeks) - 1
		}

		amount := transaction.Amount.Abs()
		switch transaction.Type {
		case domain.TransactionTypeIncome:
			yearSummary.IncomeTotal = yearSummary.IncomeTotal.Add(amount)
			monthSummary.IncomeTotal = monthSummary.IncomeTotal.Add(amount)
			monthSummary.Weeks[index].IncomeTotal = monthSummary.Weeks[index].IncomeTotal.Add(amount)
		case domain.TransactionTypeExpense:
			yearSummary.ExpenseTotal = yearSummary.ExpenseTotal.Add(amount)
			monthSummary.ExpenseTotal = monthSummary.ExpenseTotal.Add(amount)
			monthSummary.Weeks[index].ExpenseTotal = monthSummary.Weeks[index].ExpenseTotal.Add(amount)
		}

		yearSummary.Months[month] = monthSummary
		summary[year] = yearSummary
	}
	return summary, nil
}
