package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
)

// VatRate is the VAT rate applied to a purchase or a situation de travaux.
// The legal set for BTP work is closed: 0 (autoliquidation), 5.5 (reduced,
// energy renovation), 10 (intermediate, renovation), 20 (standard). The 2.1%
// press/medical rate is deliberately absent. Validation happens once here,
// at the domain boundary, never re-derived from raw decimals downstream.
type VatRate struct {
	value decimal.Decimal
}

var legalVatRates = []decimal.Decimal{
	decimal.NewFromInt(0),
	decimal.RequireFromString("5.5"),
	decimal.NewFromInt(10),
	decimal.NewFromInt(20),
}

// Well-known rates
var (
	VatRateAutoliquidation = VatRate{value: decimal.NewFromInt(0)}
	VatRateReduite         = VatRate{value: decimal.RequireFromString("5.5")}
	VatRateIntermediaire   = VatRate{value: decimal.NewFromInt(10)}
	VatRateNormale         = VatRate{value: decimal.NewFromInt(20)}
)

// NewVatRate validates the rate against the legal BTP set
func NewVatRate(rate decimal.Decimal) (VatRate, error) {
	for _, legal := range legalVatRates {
		if rate.Equal(legal) {
			return VatRate{value: rate}, nil
		}
	}
	return VatRate{}, shared.NewDomainError(
		shared.ErrCodeValidation,
		fmt.Sprintf("Taux de TVA %s%% illegal : les taux admis pour le BTP sont 0, 5.5, 10 et 20", rate.String()),
	)
}

// NewVatRateFromString parses and validates a rate from its string form
func NewVatRateFromString(rate string) (VatRate, error) {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return VatRate{}, shared.NewDomainError(
			shared.ErrCodeValidation,
			fmt.Sprintf("Taux de TVA %q invalide : valeur non numerique", rate),
		)
	}
	return NewVatRate(d)
}

// NewVatRateFromFloat parses and validates a rate from a float
func NewVatRateFromFloat(rate float64) (VatRate, error) {
	return NewVatRate(decimal.NewFromFloat(rate))
}

// Value returns the rate as a decimal percentage (e.g. 5.5 for 5.5%)
func (r VatRate) Value() decimal.Decimal {
	return r.value
}

// IsAutoliquidation reports whether the rate is the 0% reverse-charge rate
// used for subcontracted construction work
func (r VatRate) IsAutoliquidation() bool {
	return r.value.IsZero()
}

// Equal reports whether two rates are the same
func (r VatRate) Equal(other VatRate) bool {
	return r.value.Equal(other.value)
}

// String returns the rate as a percentage string
func (r VatRate) String() string {
	return r.value.String()
}

// MarshalJSON implements json.Marshaler
func (r VatRate) MarshalJSON() ([]byte, error) {
	return []byte(r.value.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler, enforcing the legal set
func (r *VatRate) UnmarshalJSON(data []byte) error {
	parsed, err := NewVatRateFromString(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
