package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddClampedDate(t *testing.T) {
	testCases := []struct {
		name     string
		start    time.Time
		years    int
		months   int
		days     int
		expected time.Time
	}{
		{
			name:     "clamps_to_short_month",
			start:    time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "leap_year_february",
			start:    time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "month_overflow_wraps_year",
			start:    time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC),
			months:   3,
			expected: time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "negative_months_wrap_back",
			start:    time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
			months:   -2,
			expected: time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "day_addition_clamped",
			start:    time.Date(2025, time.April, 28, 0, 0, 0, 0, time.UTC),
			days:     5,
			expected: time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := AddClampedDate(tc.start, tc.years, tc.months, tc.days)
			assert.True(t, got.Equal(tc.expected), "expected %s, got %s", tc.expected, got)
		})
	}
}

func TestBillingIntervalValidate(t *testing.T) {
	assert.NoError(t, BILLING_INTERVAL_MONTHLY.Validate())
	assert.NoError(t, BILLING_INTERVAL_BIENNIAL.Validate())
	assert.Error(t, BillingInterval("WEEKLY").Validate())
}
