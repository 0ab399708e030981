package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNextAfterFrequencies(t *testing.T) {
	anchor := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		freq ScheduleFrequency
		want time.Time
		ok   bool
	}{
		{FrequencyOnce, time.Time{}, false},
		{FrequencyDaily, anchor.AddDate(0, 0, 1), true},
		{FrequencyWeekly, anchor.AddDate(0, 0, 7), true},
		{FrequencyBiweekly, anchor.AddDate(0, 0, 14), true},
		{FrequencyMonthly, time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC), true},
		{FrequencyQuarterly, time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC), true},
		{FrequencyAnnually, time.Date(2027, 3, 15, 9, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			s := &ScheduledTransaction{Frequency: tt.freq, NextExecution: anchor}
			got, ok := s.NextAfter()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNextAfterMonthEndClamping(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			"Jan 31 to Feb 28",
			time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC),
		},
		{
			"Jan 31 to Feb 29 leap year",
			time.Date(2028, 1, 31, 9, 0, 0, 0, time.UTC),
			time.Date(2028, 2, 29, 9, 0, 0, 0, time.UTC),
		},
		{
			"Mar 31 to Apr 30",
			time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 4, 30, 9, 0, 0, 0, time.UTC),
		},
		{
			"mid-month unaffected",
			time.Date(2026, 5, 15, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &ScheduledTransaction{Frequency: FrequencyMonthly, NextExecution: tt.from}
			got, ok := s.NextAfter()
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldExecute(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	base := ScheduledTransaction{
		Status:        ScheduleStatusActive,
		NextExecution: now.Add(-time.Hour),
	}

	assert.True(t, base.ShouldExecute(now))

	notDue := base
	notDue.NextExecution = now.Add(time.Hour)
	assert.False(t, notDue.ShouldExecute(now))

	paused := base
	paused.Status = ScheduleStatusPaused
	assert.False(t, paused.ShouldExecute(now))

	maxed := base
	max := 3
	maxed.MaxExecutions = &max
	maxed.ExecutionCount = 3
	assert.False(t, maxed.ShouldExecute(now))

	// End date is inclusive of its calendar day
	endToday := base
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	endToday.EndDate = &end
	assert.True(t, endToday.ShouldExecute(now))

	ended := base
	past := now.AddDate(0, 0, -1)
	ended.EndDate = &past
	assert.False(t, ended.ShouldExecute(now))
}

func TestLimitPeriodExpired(t *testing.T) {
	start := time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC)

	daily := &TransactionLimit{Period: LimitPeriodDaily, PeriodStart: start}
	assert.False(t, daily.PeriodExpired(start.Add(10*time.Minute)))
	// A few minutes later but a new calendar day
	assert.True(t, daily.PeriodExpired(start.Add(time.Hour)))

	weekly := &TransactionLimit{Period: LimitPeriodWeekly, PeriodStart: start}
	assert.False(t, weekly.PeriodExpired(start.AddDate(0, 0, 6)))
	assert.True(t, weekly.PeriodExpired(start.AddDate(0, 0, 8)))

	monthly := &TransactionLimit{Period: LimitPeriodMonthly, PeriodStart: start}
	assert.False(t, monthly.PeriodExpired(start.AddDate(0, 0, 10)))
	assert.True(t, monthly.PeriodExpired(start.AddDate(0, 1, 0)))

	perTxn := &TransactionLimit{Period: LimitPeriodPerTransaction, PeriodStart: start}
	assert.True(t, perTxn.PeriodExpired(start))
}

func TestLimitWouldExceed(t *testing.T) {
	limit := &TransactionLimit{
		LimitAmount:        decimal.NewFromInt(1000),
		CurrentPeriodUsage: decimal.NewFromInt(600),
	}
	assert.False(t, limit.WouldExceed(decimal.NewFromInt(400)))
	assert.True(t, limit.WouldExceed(decimal.NewFromFloat(400.01)))
}
