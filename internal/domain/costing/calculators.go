// Package costing holds the pure financial calculators of the ledger.
// Every function takes its configuration explicitly, performs exact decimal
// arithmetic, and leaves rounding to the caller's presentation edge.
package costing

import (
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

var cent = decimal.NewFromInt(100)

// MargeResult is the outcome of a chantier margin computation.
// MargeIndeterminee is set instead of dividing by zero when nothing has been
// invoiced yet; MargePct is zero in that case.
type MargeResult struct {
	MargeMontant      decimal.Decimal `json:"marge_montant"`
	MargePct          decimal.Decimal `json:"marge_pct"`
	MargeIndeterminee bool            `json:"marge_indeterminee"`
}

// CalculerMargeChantier computes the chantier margin:
// marge = caFacture - totalEngage, pct = marge / caFacture * 100.
func CalculerMargeChantier(totalEngage, caFacture decimal.Decimal) MargeResult {
	marge := caFacture.Sub(totalEngage)
	if caFacture.IsZero() {
		return MargeResult{
			MargeMontant:      marge,
			MargePct:          decimal.Zero,
			MargeIndeterminee: true,
		}
	}
	return MargeResult{
		MargeMontant: marge,
		MargePct:     marge.Div(caFacture).Mul(cent),
	}
}

// CalculerQuotePartFraisGeneraux allocates overhead to a cost base:
// base * coeff / 100. The coefficient is a percentage (12 means 12%),
// never a ratio. This convention was corrected historically and must not
// regress.
func CalculerQuotePartFraisGeneraux(montantBase, coeffFraisGeneraux decimal.Decimal) decimal.Decimal {
	return montantBase.Mul(coeffFraisGeneraux).Div(cent)
}

// CalculerTVA returns the VAT amount: ht * taux / 100, exact decimal
func CalculerTVA(montantHT decimal.Decimal, taux valueobject.VatRate) decimal.Decimal {
	return montantHT.Mul(taux.Value()).Div(cent)
}

// CalculerTTC returns the tax-inclusive amount
func CalculerTTC(montantHT decimal.Decimal, taux valueobject.VatRate) decimal.Decimal {
	return montantHT.Add(CalculerTVA(montantHT, taux))
}

// HeuresTravail breaks a labor period into normal and overtime hours
type HeuresTravail struct {
	HeuresNormales decimal.Decimal
	HeuresSup      decimal.Decimal
	HeuresSup2     decimal.Decimal
}

// CoefficientsMainOeuvre carries the labor coefficients of the fiscal year
// configuration, all percentages
type CoefficientsMainOeuvre struct {
	CoeffChargesPatronales decimal.Decimal
	CoeffHeuresSup         decimal.Decimal
	CoeffHeuresSup2        decimal.Decimal
}

// CalculerCoutMainOeuvre computes the fully loaded labor cost of a period:
// hours x rate x overtime multiplier, grossed up by payroll charges.
// A 25% overtime coefficient yields a 1.25 multiplier on the base rate.
func CalculerCoutMainOeuvre(heures HeuresTravail, tauxHoraire decimal.Decimal,
	coeffs CoefficientsMainOeuvre) decimal.Decimal {

	multiplicateurSup := decimal.NewFromInt(1).Add(coeffs.CoeffHeuresSup.Div(cent))
	multiplicateurSup2 := decimal.NewFromInt(1).Add(coeffs.CoeffHeuresSup2.Div(cent))

	brut := heures.HeuresNormales.Mul(tauxHoraire).
		Add(heures.HeuresSup.Mul(tauxHoraire).Mul(multiplicateurSup)).
		Add(heures.HeuresSup2.Mul(tauxHoraire).Mul(multiplicateurSup2))

	charges := decimal.NewFromInt(1).Add(coeffs.CoeffChargesPatronales.Div(cent))
	return brut.Mul(charges)
}

// LigneMateriel is one equipment cost line: duration times unit cost
type LigneMateriel struct {
	Duree        decimal.Decimal
	CoutUnitaire decimal.Decimal
}

// CalculerCoutMateriel aggregates equipment cost lines
func CalculerCoutMateriel(lignes []LigneMateriel) decimal.Decimal {
	total := decimal.Zero
	for _, ligne := range lignes {
		total = total.Add(ligne.Duree.Mul(ligne.CoutUnitaire))
	}
	return total
}

// CalculerCoutDeRevient derives the fully loaded cost of completion:
// direct committed cost plus the allocated overhead quote-part
func CalculerCoutDeRevient(totalEngage, coeffFraisGeneraux decimal.Decimal) decimal.Decimal {
	return totalEngage.Add(CalculerQuotePartFraisGeneraux(totalEngage, coeffFraisGeneraux))
}
