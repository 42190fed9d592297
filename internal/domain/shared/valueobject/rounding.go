package valueobject

import "github.com/shopspring/decimal"

// Rounding policy: money and percentages round to 2 decimals using
// round-half-up, applied only at the persistence/presentation edge.
// Chained calculations keep full precision until the final step.

// ArrondirMontant rounds a monetary amount to 2 decimals, half-up
func ArrondirMontant(montant decimal.Decimal) decimal.Decimal {
	return montant.Round(2)
}

// ArrondirPct rounds a percentage to 2 decimals, half-up
func ArrondirPct(pct decimal.Decimal) decimal.Decimal {
	return pct.Round(2)
}
