package proration

import (
	"testing"

	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculator_Calculate(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name           string
		params         Params
		expectedAmount string
		expectCredit   bool
		expectDeferred bool
		expectNoLines  bool
		expectedError  bool
	}{
		{
			name: "monthly_upgrade_half_period",
			// $10 -> $20 with 15 of 30 days remaining = $5.00
			params: Params{
				OldPrice:      decimal.NewFromInt(10),
				NewPrice:      decimal.NewFromInt(20),
				RemainingDays: 15,
				PeriodDays:    30,
				Currency:      "USD",
			},
			expectedAmount: "5",
		},
		{
			name: "upgrade_rounds_half_up",
			// (25-10) * 10/31 = 4.8387... -> 4.84
			params: Params{
				OldPrice:      decimal.NewFromInt(10),
				NewPrice:      decimal.NewFromInt(25),
				RemainingDays: 10,
				PeriodDays:    31,
				Currency:      "USD",
			},
			expectedAmount: "4.84",
		},
		{
			name: "zero_precision_currency",
			// (2000-1000) * 10/30 = 333.33 -> 333 for JPY
			params: Params{
				OldPrice:      decimal.NewFromInt(1000),
				NewPrice:      decimal.NewFromInt(2000),
				RemainingDays: 10,
				PeriodDays:    30,
				Currency:      "JPY",
			},
			expectedAmount: "333",
		},
		{
			name: "downgrade_with_credits_enabled",
			params: Params{
				OldPrice:       decimal.NewFromInt(20),
				NewPrice:       decimal.NewFromInt(10),
				RemainingDays:  15,
				PeriodDays:     30,
				Currency:       "USD",
				ProrateCredits: true,
			},
			expectedAmount: "-5",
			expectCredit:   true,
		},
		{
			name: "downgrade_with_credits_disabled_is_deferred",
			params: Params{
				OldPrice:      decimal.NewFromInt(20),
				NewPrice:      decimal.NewFromInt(10),
				RemainingDays: 15,
				PeriodDays:    30,
				Currency:      "USD",
			},
			expectDeferred: true,
			expectNoLines:  true,
		},
		{
			name: "no_price_change_emits_nothing",
			params: Params{
				OldPrice:      decimal.NewFromInt(10),
				NewPrice:      decimal.NewFromInt(10),
				RemainingDays: 15,
				PeriodDays:    30,
				Currency:      "USD",
			},
			expectNoLines: true,
		},
		{
			name: "zero_period_days_rejected",
			params: Params{
				OldPrice:      decimal.NewFromInt(10),
				NewPrice:      decimal.NewFromInt(20),
				RemainingDays: 0,
				PeriodDays:    0,
				Currency:      "USD",
			},
			expectedError: true,
		},
		{
			name: "remaining_exceeding_period_rejected",
			params: Params{
				OldPrice:      decimal.NewFromInt(10),
				NewPrice:      decimal.NewFromInt(20),
				RemainingDays: 31,
				PeriodDays:    30,
				Currency:      "USD",
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := calc.Calculate(tt.params)
			if tt.expectedError {
				require.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.expectDeferred, result.Deferred)
			if tt.expectNoLines {
				assert.Empty(t, result.Lines)
				return
			}

			require.Len(t, result.Lines, 1)
			expected := decimal.RequireFromString(tt.expectedAmount)
			assert.True(t, result.Lines[0].Amount.Equal(expected),
				"expected %s, got %s", expected, result.Lines[0].Amount)
			assert.Equal(t, tt.expectCredit, result.Lines[0].IsCredit)
		})
	}
}

func TestCalculator_Idempotent(t *testing.T) {
	calc := NewCalculator()
	params := Params{
		OldPrice:      decimal.RequireFromString("14.37"),
		NewPrice:      decimal.RequireFromString("29.93"),
		RemainingDays: 11,
		PeriodDays:    31,
		Currency:      "USD",
	}

	first, err := calc.Calculate(params)
	require.NoError(t, err)
	require.Len(t, first.Lines, 1)

	for i := 0; i < 100; i++ {
		again, err := calc.Calculate(params)
		require.NoError(t, err)
		require.Len(t, again.Lines, 1)
		assert.True(t, first.Lines[0].Amount.Equal(again.Lines[0].Amount))
	}
}

func TestCalculator_CalculateOptions(t *testing.T) {
	calc := NewCalculator()
	params := Params{
		RemainingDays:  15,
		PeriodDays:     30,
		Currency:       "USD",
		ProrateCredits: true,
	}

	changes := []OptionChange{
		// upgrade of an existing option
		{OptionName: "RAM 4GB", OldPrice: decimal.NewFromInt(4), NewPrice: decimal.NewFromInt(8)},
		// pure addition
		{OptionName: "Backups", OldPrice: decimal.Zero, NewPrice: decimal.NewFromInt(6)},
		// removal
		{OptionName: "Dedicated IP", OldPrice: decimal.NewFromInt(2), NewPrice: decimal.Zero},
	}

	result, err := calc.CalculateOptions(changes, params)
	require.NoError(t, err)
	require.Len(t, result.Lines, 3)

	assert.True(t, result.Lines[0].Amount.Equal(decimal.NewFromInt(2)))
	assert.False(t, result.Lines[0].IsCredit)
	assert.True(t, result.Lines[0].IsOption)

	assert.True(t, result.Lines[1].Amount.Equal(decimal.NewFromInt(3)))
	assert.False(t, result.Lines[1].IsCredit)

	assert.True(t, result.Lines[2].Amount.Equal(decimal.NewFromInt(-1)))
	assert.True(t, result.Lines[2].IsCredit)

	assert.True(t, result.NetAmount().Equal(decimal.NewFromInt(4)))
}

func TestCalculator_CalculateOptions_CreditsDisabled(t *testing.T) {
	calc := NewCalculator()
	params := Params{
		RemainingDays: 15,
		PeriodDays:    30,
		Currency:      "USD",
	}

	result, err := calc.CalculateOptions([]OptionChange{
		{OptionName: "Dedicated IP", OldPrice: decimal.NewFromInt(2), NewPrice: decimal.Zero},
	}, params)
	require.NoError(t, err)

	assert.Empty(t, result.Lines)
	assert.True(t, result.Deferred)
}
