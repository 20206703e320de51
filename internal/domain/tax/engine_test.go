package tax

import (
	"testing"
	"time"

	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(level types.TaxLevel, ruleType types.TaxRuleType, amount string, country, state string) *Rule {
	return &Rule{
		ID:      types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RULE),
		Level:   level,
		Type:    ruleType,
		Amount:  decimal.RequireFromString(amount),
		Country: country,
		State:   state,
		BaseModel: types.BaseModel{
			Status:    types.StatusActive,
			UpdatedAt: time.Now().UTC(),
		},
	}
}

func TestResolveRules(t *testing.T) {
	global := rule(types.TaxLevel1, types.TaxRuleTypeExclusive, "5", "", "")
	country := rule(types.TaxLevel1, types.TaxRuleTypeExclusive, "7", "US", "")
	state := rule(types.TaxLevel1, types.TaxRuleTypeExclusive, "8.25", "US", "TX")

	t.Run("state beats country beats global", func(t *testing.T) {
		resolved := ResolveRules([]*Rule{global, country, state}, "US", "TX")
		require.NotNil(t, resolved.Level1)
		assert.Equal(t, state.ID, resolved.Level1.ID)
	})

	t.Run("country rule wins outside the state", func(t *testing.T) {
		resolved := ResolveRules([]*Rule{global, country, state}, "US", "CA")
		require.NotNil(t, resolved.Level1)
		assert.Equal(t, country.ID, resolved.Level1.ID)
	})

	t.Run("global rule applies elsewhere", func(t *testing.T) {
		resolved := ResolveRules([]*Rule{global, country, state}, "DE", "")
		require.NotNil(t, resolved.Level1)
		assert.Equal(t, global.ID, resolved.Level1.ID)
	})

	t.Run("inactive rules are skipped", func(t *testing.T) {
		inactive := rule(types.TaxLevel1, types.TaxRuleTypeExclusive, "9", "US", "TX")
		inactive.Status = types.StatusDeleted
		resolved := ResolveRules([]*Rule{inactive}, "US", "TX")
		assert.Nil(t, resolved.Level1)
	})
}

func TestCompute_IndependentLevels(t *testing.T) {
	// with cascade disabled, level 2 must be computed from the original
	// subtotal regardless of level 1
	subtotals := []string{"1", "10", "99.99", "1234.56", "100000"}
	level2 := rule(types.TaxLevel2, types.TaxRuleTypeExclusive, "10", "", "")

	for _, raw := range subtotals {
		subtotal := decimal.RequireFromString(raw)
		expected := subtotal.Mul(decimal.RequireFromString("0.10"))

		withL1 := Compute(subtotal, ResolvedRules{
			Level1: rule(types.TaxLevel1, types.TaxRuleTypeExclusive, "25", "", ""),
			Level2: level2,
		}, ComputeOptions{CascadeTax: false})

		withoutL1 := Compute(subtotal, ResolvedRules{Level2: level2}, ComputeOptions{CascadeTax: false})

		require.NotNil(t, withL1.Level2)
		assert.True(t, withL1.Level2.Amount.Equal(expected), "subtotal %s: got %s", raw, withL1.Level2.Amount)
		assert.True(t, withL1.Level2.Amount.Equal(withoutL1.Level2.Amount))
	}
}

func TestCompute_Cascade(t *testing.T) {
	subtotal := decimal.NewFromInt(100)
	resolved := ResolvedRules{
		Level1: rule(types.TaxLevel1, types.TaxRuleTypeExclusive, "10", "", ""),
		Level2: rule(types.TaxLevel2, types.TaxRuleTypeExclusive, "5", "", ""),
	}

	comp := Compute(subtotal, resolved, ComputeOptions{CascadeTax: true})

	// level 1: 100 * 10% = 10; level 2: (100 + 10) * 5% = 5.50
	assert.True(t, comp.Level1.Amount.Equal(decimal.NewFromInt(10)))
	assert.True(t, comp.Level2.Amount.Equal(decimal.RequireFromString("5.5")))
	assert.True(t, comp.TotalTax.Equal(decimal.RequireFromString("15.5")))
}

func TestCompute_InclusiveAndExempt(t *testing.T) {
	subtotal := decimal.NewFromInt(100)
	inclusive := ResolvedRules{
		Level1: rule(types.TaxLevel1, types.TaxRuleTypeInclusive, "20", "", ""),
	}

	t.Run("inclusive adds nothing for taxable clients", func(t *testing.T) {
		comp := Compute(subtotal, inclusive, ComputeOptions{})
		assert.True(t, comp.TotalTax.IsZero())
		assert.True(t, comp.ExemptAdjustment.IsZero())
	})

	t.Run("inclusive is subtracted out for exempt clients", func(t *testing.T) {
		comp := Compute(subtotal, inclusive, ComputeOptions{TaxExempt: true})
		assert.True(t, comp.TotalTax.IsZero())
		assert.True(t, comp.ExemptAdjustment.Equal(decimal.NewFromInt(-20)))
	})

	t.Run("additive taxes vanish for exempt clients", func(t *testing.T) {
		comp := Compute(subtotal, ResolvedRules{
			Level1: rule(types.TaxLevel1, types.TaxRuleTypeInclusiveAdditive, "10", "", ""),
			Level2: rule(types.TaxLevel2, types.TaxRuleTypeExclusive, "5", "", ""),
		}, ComputeOptions{TaxExempt: true})
		assert.True(t, comp.TotalTax.IsZero())
		assert.True(t, comp.ExemptAdjustment.IsZero())
	})
}

func TestCompute_ExclusiveExcludedFromDisplayedTotal(t *testing.T) {
	subtotal := decimal.NewFromInt(100)
	comp := Compute(subtotal, ResolvedRules{
		Level1: rule(types.TaxLevel1, types.TaxRuleTypeInclusiveAdditive, "10", "", ""),
		Level2: rule(types.TaxLevel2, types.TaxRuleTypeExclusive, "5", "", ""),
	}, ComputeOptions{})

	// both are collected
	assert.True(t, comp.TotalTax.Equal(decimal.NewFromInt(15)))
	// only the additive one shows on the order total
	assert.True(t, comp.AddedTax().Equal(decimal.NewFromInt(10)))
}
