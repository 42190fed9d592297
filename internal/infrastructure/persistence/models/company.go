package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/chantier/backend/internal/domain/company"
	"github.com/shopspring/decimal"
)

// CoefficientMap stores per-category coefficients as a jsonb column.
type CoefficientMap map[string]decimal.Decimal

// Value implements driver.Valuer
func (c CoefficientMap) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner
func (c *CoefficientMap) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported type %T for CoefficientMap", value)
	}
}

// ConfigurationEntrepriseModel is the persistence model for the
// ConfigurationEntreprise aggregate root. One row per fiscal year.
type ConfigurationEntrepriseModel struct {
	AuditedAggregateModel
	Annee                        int             `gorm:"not null;uniqueIndex"`
	CoutsFixesAnnuels            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CoeffFraisGeneraux           decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	CoeffChargesPatronales       decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	CoeffHeuresSup               decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	CoeffHeuresSup2              decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	CoeffChargesParCategorie     CoefficientMap  `gorm:"type:jsonb"`
	SeuilAlerteBudgetPct         decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	SeuilAlerteBudgetCritiquePct decimal.Decimal `gorm:"type:decimal(9,4);not null"`
}

// TableName returns the table name for GORM
func (ConfigurationEntrepriseModel) TableName() string {
	return "configurations_entreprise"
}

// ToDomain converts the persistence model to a domain ConfigurationEntreprise aggregate
func (m *ConfigurationEntrepriseModel) ToDomain() *company.ConfigurationEntreprise {
	config := &company.ConfigurationEntreprise{
		Annee:                        m.Annee,
		CoutsFixesAnnuels:            m.CoutsFixesAnnuels,
		CoeffFraisGeneraux:           m.CoeffFraisGeneraux,
		CoeffChargesPatronales:       m.CoeffChargesPatronales,
		CoeffHeuresSup:               m.CoeffHeuresSup,
		CoeffHeuresSup2:              m.CoeffHeuresSup2,
		CoeffChargesParCategorie:     m.CoeffChargesParCategorie,
		SeuilAlerteBudgetPct:         m.SeuilAlerteBudgetPct,
		SeuilAlerteBudgetCritiquePct: m.SeuilAlerteBudgetCritiquePct,
	}
	m.PopulateAuditedAggregateRoot(&config.AuditedAggregateRoot)
	return config
}

// FromDomain populates the persistence model from a domain ConfigurationEntreprise aggregate
func (m *ConfigurationEntrepriseModel) FromDomain(c *company.ConfigurationEntreprise) {
	m.FromDomainAuditedAggregateRoot(c.AuditedAggregateRoot)
	m.Annee = c.Annee
	m.CoutsFixesAnnuels = c.CoutsFixesAnnuels
	m.CoeffFraisGeneraux = c.CoeffFraisGeneraux
	m.CoeffChargesPatronales = c.CoeffChargesPatronales
	m.CoeffHeuresSup = c.CoeffHeuresSup
	m.CoeffHeuresSup2 = c.CoeffHeuresSup2
	m.CoeffChargesParCategorie = c.CoeffChargesParCategorie
	m.SeuilAlerteBudgetPct = c.SeuilAlerteBudgetPct
	m.SeuilAlerteBudgetCritiquePct = c.SeuilAlerteBudgetCritiquePct
}

// ConfigurationEntrepriseModelFromDomain creates a new persistence model from a domain aggregate
func ConfigurationEntrepriseModelFromDomain(c *company.ConfigurationEntreprise) *ConfigurationEntrepriseModel {
	m := &ConfigurationEntrepriseModel{}
	m.FromDomain(c)
	return m
}
