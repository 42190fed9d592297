package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
)

// RetentionRate is the retenue de garantie withheld from contractor payments
// pending defect-free handover. The legal cap was reduced from 10% to 5%, so
// the admitted set is {0, 5}; the historical 10% is rejected. Any future
// pluggable legal-rate table would replace this set in one place.
type RetentionRate struct {
	value decimal.Decimal
}

var legalRetentionRates = []decimal.Decimal{
	decimal.NewFromInt(0),
	decimal.NewFromInt(5),
}

// Well-known rates
var (
	RetentionRateNulle    = RetentionRate{value: decimal.NewFromInt(0)}
	RetentionRateStandard = RetentionRate{value: decimal.NewFromInt(5)}
)

// NewRetentionRate validates the rate against the legal set
func NewRetentionRate(rate decimal.Decimal) (RetentionRate, error) {
	for _, legal := range legalRetentionRates {
		if rate.Equal(legal) {
			return RetentionRate{value: rate}, nil
		}
	}
	return RetentionRate{}, shared.NewDomainError(
		shared.ErrCodeValidation,
		fmt.Sprintf("Taux de retenue de garantie %s%% illegal : seuls 0 et 5 sont admis (plafond legal)", rate.String()),
	)
}

// NewRetentionRateFromFloat parses and validates a rate from a float
func NewRetentionRateFromFloat(rate float64) (RetentionRate, error) {
	return NewRetentionRate(decimal.NewFromFloat(rate))
}

// Value returns the rate as a decimal percentage
func (r RetentionRate) Value() decimal.Decimal {
	return r.value
}

// Apply returns the amount withheld from the given base
func (r RetentionRate) Apply(base Money) Money {
	return base.CalculatePercentage(r.value)
}

// String returns the rate as a percentage string
func (r RetentionRate) String() string {
	return r.value.String()
}
