package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 9, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func TestScheduleNext(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		from     time.Time
		want     time.Time
	}{
		{"daily", Schedule{Frequency: FrequencyDaily, Interval: 3}, date(2024, 1, 30), date(2024, 2, 2)},
		{"weekly", Schedule{Frequency: FrequencyWeekly, Interval: 2}, date(2024, 1, 1), date(2024, 1, 15)},
		{"weekly ignores day of week", Schedule{Frequency: FrequencyWeekly, Interval: 1, DayOfWeek: intPtr(5)}, date(2024, 1, 1), date(2024, 1, 8)},
		{"biweekly ignores interval", Schedule{Frequency: FrequencyBiweekly, Interval: 5}, date(2024, 1, 1), date(2024, 1, 15)},
		{"monthly clamps to leap february", Schedule{Frequency: FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31)}, date(2024, 1, 31), date(2024, 2, 29)},
		{"monthly clamps to february", Schedule{Frequency: FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31)}, date(2023, 1, 31), date(2023, 2, 28)},
		{"monthly restores configured day", Schedule{Frequency: FrequencyMonthly, Interval: 1, DayOfMonth: intPtr(31)}, date(2023, 2, 28), date(2023, 3, 31)},
		{"monthly without day keeps day", Schedule{Frequency: FrequencyMonthly, Interval: 2}, date(2023, 11, 15), date(2024, 1, 15)},
		{"monthly without day clamps", Schedule{Frequency: FrequencyMonthly, Interval: 1}, date(2023, 3, 31), date(2023, 4, 30)},
		{"quarterly", Schedule{Frequency: FrequencyQuarterly, Interval: 1}, date(2023, 11, 30), date(2024, 2, 29)},
		{"yearly", Schedule{Frequency: FrequencyYearly, Interval: 1}, date(2023, 6, 1), date(2024, 6, 1)},
		{"yearly from leap day", Schedule{Frequency: FrequencyYearly, Interval: 1}, date(2024, 2, 29), date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.schedule.Next(tt.from))
		})
	}
}

func TestRecurringAdvanceStopsAfterOccurrences(t *testing.T) {
	r := &RecurringTransaction{
		Type:                TransactionTypeExpense,
		Amount:              decimal.NewFromInt(10),
		Schedule:            Schedule{Frequency: FrequencyDaily, Interval: 1},
		StartDate:           date(2024, 1, 1),
		NextExecutionDate:   date(2024, 1, 1),
		EndAfterOccurrences: intPtr(3),
		IsActive:            true,
	}

	now := date(2024, 1, 1)
	for i := 0; i < 3; i++ {
		require.True(t, r.IsDue(now))
		require.False(t, r.Exhausted(now))
		r.Advance(now)
		now = r.NextExecutionDate
	}

	assert.Equal(t, 3, r.OccurrenceCount)
	assert.False(t, r.IsActive)
	assert.False(t, r.IsDue(now))
	assert.True(t, r.Exhausted(now))
}

func TestRecurringAdvanceStopsPastEndDate(t *testing.T) {
	end := date(2024, 1, 10)
	r := &RecurringTransaction{
		Schedule:          Schedule{Frequency: FrequencyWeekly, Interval: 1},
		NextExecutionDate: date(2024, 1, 5),
		EndDate:           &end,
		IsActive:          true,
	}

	r.Advance(date(2024, 1, 5))

	assert.Equal(t, date(2024, 1, 12), r.NextExecutionDate)
	assert.False(t, r.IsActive)
	require.NotNil(t, r.LastExecutionDate)
	assert.Equal(t, date(2024, 1, 5), *r.LastExecutionDate)
}

func TestRecurringRecomputeNext(t *testing.T) {
	r := &RecurringTransaction{
		Schedule:  Schedule{Frequency: FrequencyMonthly, Interval: 1},
		StartDate: date(2024, 3, 1),
	}
	r.RecomputeNext()
	assert.Equal(t, date(2024, 4, 1), r.NextExecutionDate)

	last := date(2024, 3, 1)
	r.LastExecutionDate = &last
	r.Frequency = FrequencyWeekly
	r.RecomputeNext()
	assert.Equal(t, date(2024, 3, 8), r.NextExecutionDate)
}

func TestMaterializeCopiesTemplate(t *testing.T) {
	r := &RecurringTransaction{
		UserID:       "user-1",
		Type:         TransactionTypeIncome,
		Amount:       decimal.NewFromInt(2500),
		Currency:     "EUR",
		Description:  "Monthly salary",
		MerchantName: "ACME",
		Tags:         []string{"work"},
	}

	now := date(2024, 5, 1)
	transaction := r.Materialize(now)

	assert.Equal(t, "user-1", transaction.UserID)
	assert.True(t, transaction.IsRecurring)
	assert.Equal(t, now, transaction.Date)
	assert.True(t, decimal.NewFromInt(2500).Equal(transaction.SignedAmount()))
	assert.Nil(t, transaction.CategoryConfidence)
	assert.Equal(t, []string{"work"}, transaction.Tags)
}

func TestBudgetWindow(t *testing.T) {
	end := date(2024, 1, 31)
	b := &Budget{StartDate: date(2024, 1, 1), EndDate: &end, Amount: decimal.NewFromInt(200)}

	assert.True(t, b.Covers(date(2024, 1, 15)))
	assert.False(t, b.Covers(date(2024, 2, 1)))
	assert.False(t, b.Covers(date(2023, 12, 31)))

	from, to := b.SpendWindow(date(2024, 1, 15))
	assert.Equal(t, date(2024, 1, 1), from)
	assert.Equal(t, date(2024, 1, 15), to)

	assert.True(t, decimal.NewFromInt(85).Equal(b.Percentage(decimal.NewFromInt(170))))
}
