package types

import (
	"fmt"

	"github.com/samber/lo"
)

// TaxLevel identifies the cascading level a tax rule belongs to
type TaxLevel int

const (
	TaxLevel1 TaxLevel = 1
	TaxLevel2 TaxLevel = 2
)

func (l TaxLevel) Validate() error {
	if l != TaxLevel1 && l != TaxLevel2 {
		return fmt.Errorf("invalid tax level: %d", l)
	}
	return nil
}

// TaxRuleType determines how a tax interacts with listed prices.
//   - inclusive: embedded in the listed price; subtracted out for
//     tax-exempt clients rather than added
//   - inclusive_additive: added on top and shown in order totals
//   - exclusive: added on top but excluded from displayed order totals,
//     shown only at payment time
type TaxRuleType string

const (
	TaxRuleTypeInclusive         TaxRuleType = "inclusive"
	TaxRuleTypeInclusiveAdditive TaxRuleType = "inclusive_additive"
	TaxRuleTypeExclusive         TaxRuleType = "exclusive"
)

func (t TaxRuleType) String() string {
	return string(t)
}

func (t TaxRuleType) Validate() error {
	allowed := []TaxRuleType{
		TaxRuleTypeInclusive,
		TaxRuleTypeInclusiveAdditive,
		TaxRuleTypeExclusive,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid tax rule type: %s", t)
	}
	return nil
}
