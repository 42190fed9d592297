package company

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
)

// Default budget alert thresholds, used when a fiscal year record leaves
// them unset
var (
	DefaultSeuilAlerteBudgetPct         = decimal.NewFromInt(80)
	DefaultSeuilAlerteBudgetCritiquePct = decimal.NewFromInt(95)
)

// ConfigurationEntreprise holds the financial parameters of one fiscal year.
// One active record per year; a new year's configuration is a new immutable
// value, never an in-place mutation of shared state. Calculators receive it
// as an explicitly passed value, there is no process-wide singleton.
//
// All coefficients are percentages: CoeffFraisGeneraux 12 means 12%, never
// the ratio 0.12.
type ConfigurationEntreprise struct {
	shared.AuditedAggregateRoot
	Annee                        int                        `gorm:"not null;uniqueIndex"`
	CoutsFixesAnnuels            decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	CoeffFraisGeneraux           decimal.Decimal            `gorm:"type:decimal(9,4);not null"`
	CoeffChargesPatronales       decimal.Decimal            `gorm:"type:decimal(9,4);not null"`
	CoeffHeuresSup               decimal.Decimal            `gorm:"type:decimal(9,4);not null"`
	CoeffHeuresSup2              decimal.Decimal            `gorm:"type:decimal(9,4);not null"`
	CoeffChargesParCategorie     map[string]decimal.Decimal `gorm:"-"`
	SeuilAlerteBudgetPct         decimal.Decimal            `gorm:"type:decimal(9,4);not null"`
	SeuilAlerteBudgetCritiquePct decimal.Decimal            `gorm:"type:decimal(9,4);not null"`
}

// TableName returns the table name for GORM
func (ConfigurationEntreprise) TableName() string {
	return "configurations_entreprise"
}

// ConfigurationParams carries the inputs of a fiscal year upsert
type ConfigurationParams struct {
	Annee                        int
	CoutsFixesAnnuels            decimal.Decimal
	CoeffFraisGeneraux           decimal.Decimal
	CoeffChargesPatronales       decimal.Decimal
	CoeffHeuresSup               decimal.Decimal
	CoeffHeuresSup2              decimal.Decimal
	CoeffChargesParCategorie     map[string]decimal.Decimal
	SeuilAlerteBudgetPct         *decimal.Decimal
	SeuilAlerteBudgetCritiquePct *decimal.Decimal
}

// NewConfigurationEntreprise creates the financial configuration of a fiscal
// year. Alert thresholds default to 80 / 95 when unset.
func NewConfigurationEntreprise(params ConfigurationParams) (*ConfigurationEntreprise, error) {
	if params.Annee < 2000 || params.Annee > 2100 {
		return nil, shared.NewDomainError(shared.ErrCodeValidation,
			fmt.Sprintf("Annee fiscale %d invalide", params.Annee))
	}

	amounts := map[string]decimal.Decimal{
		"couts_fixes_annuels":      params.CoutsFixesAnnuels,
		"coeff_frais_generaux":     params.CoeffFraisGeneraux,
		"coeff_charges_patronales": params.CoeffChargesPatronales,
		"coeff_heures_sup":         params.CoeffHeuresSup,
		"coeff_heures_sup_2":       params.CoeffHeuresSup2,
	}
	for name, value := range amounts {
		if value.IsNegative() {
			return nil, shared.NewDomainError(shared.ErrCodeValidation,
				fmt.Sprintf("Le parametre %s ne peut pas etre negatif", name))
		}
	}
	for categorie, coeff := range params.CoeffChargesParCategorie {
		if coeff.IsNegative() {
			return nil, shared.NewDomainError(shared.ErrCodeValidation,
				fmt.Sprintf("Le coefficient de charges de la categorie %s ne peut pas etre negatif", categorie))
		}
	}

	seuil := DefaultSeuilAlerteBudgetPct
	if params.SeuilAlerteBudgetPct != nil {
		seuil = *params.SeuilAlerteBudgetPct
	}
	seuilCritique := DefaultSeuilAlerteBudgetCritiquePct
	if params.SeuilAlerteBudgetCritiquePct != nil {
		seuilCritique = *params.SeuilAlerteBudgetCritiquePct
	}
	if seuil.IsNegative() || seuilCritique.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Les seuils d'alerte ne peuvent pas etre negatifs")
	}
	if seuilCritique.LessThan(seuil) {
		return nil, shared.NewDomainError(shared.ErrCodeValidation,
			"Le seuil critique doit etre superieur ou egal au seuil d'alerte")
	}

	return &ConfigurationEntreprise{
		AuditedAggregateRoot:         shared.NewAuditedAggregateRoot(),
		Annee:                        params.Annee,
		CoutsFixesAnnuels:            params.CoutsFixesAnnuels,
		CoeffFraisGeneraux:           params.CoeffFraisGeneraux,
		CoeffChargesPatronales:       params.CoeffChargesPatronales,
		CoeffHeuresSup:               params.CoeffHeuresSup,
		CoeffHeuresSup2:              params.CoeffHeuresSup2,
		CoeffChargesParCategorie:     params.CoeffChargesParCategorie,
		SeuilAlerteBudgetPct:         seuil,
		SeuilAlerteBudgetCritiquePct: seuilCritique,
	}, nil
}

// CoeffChargesPourCategorie returns the charge coefficient of a labor
// category, falling back to the global one
func (c *ConfigurationEntreprise) CoeffChargesPourCategorie(categorie string) decimal.Decimal {
	if coeff, ok := c.CoeffChargesParCategorie[categorie]; ok {
		return coeff
	}
	return c.CoeffChargesPatronales
}
