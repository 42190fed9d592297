package company

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/company"
	"github.com/chantier/backend/internal/domain/shared"
)

// UpsertConfigurationRequest represents a fiscal year configuration write.
// All coefficients are percentages: 12 means 12%, never a ratio.
type UpsertConfigurationRequest struct {
	Annee                        int                        `json:"annee" binding:"required"`
	CoutsFixesAnnuels            decimal.Decimal            `json:"couts_fixes_annuels" binding:"required"`
	CoeffFraisGeneraux           decimal.Decimal            `json:"coeff_frais_generaux" binding:"required"`
	CoeffChargesPatronales       decimal.Decimal            `json:"coeff_charges_patronales" binding:"required"`
	CoeffHeuresSup               decimal.Decimal            `json:"coeff_heures_sup" binding:"required"`
	CoeffHeuresSup2              decimal.Decimal            `json:"coeff_heures_sup_2"`
	CoeffChargesParCategorie     map[string]decimal.Decimal `json:"coeff_charges_par_categorie"`
	SeuilAlerteBudgetPct         *decimal.Decimal           `json:"seuil_alerte_budget_pct"`
	SeuilAlerteBudgetCritiquePct *decimal.Decimal           `json:"seuil_alerte_budget_critique_pct"`
	ActorID                      *uuid.UUID                 `json:"-"`
}

// ConfigurationResponse represents a fiscal year configuration in API responses
type ConfigurationResponse struct {
	ID                           uuid.UUID                  `json:"id"`
	Annee                        int                        `json:"annee"`
	CoutsFixesAnnuels            decimal.Decimal            `json:"couts_fixes_annuels"`
	CoeffFraisGeneraux           decimal.Decimal            `json:"coeff_frais_generaux"`
	CoeffChargesPatronales       decimal.Decimal            `json:"coeff_charges_patronales"`
	CoeffHeuresSup               decimal.Decimal            `json:"coeff_heures_sup"`
	CoeffHeuresSup2              decimal.Decimal            `json:"coeff_heures_sup_2"`
	CoeffChargesParCategorie     map[string]decimal.Decimal `json:"coeff_charges_par_categorie,omitempty"`
	SeuilAlerteBudgetPct         decimal.Decimal            `json:"seuil_alerte_budget_pct"`
	SeuilAlerteBudgetCritiquePct decimal.Decimal            `json:"seuil_alerte_budget_critique_pct"`
	UpdatedAt                    time.Time                  `json:"updated_at"`
}

// ToConfigurationResponse converts a configuration to its API representation
func ToConfigurationResponse(c *company.ConfigurationEntreprise) ConfigurationResponse {
	return ConfigurationResponse{
		ID:                           c.ID,
		Annee:                        c.Annee,
		CoutsFixesAnnuels:            c.CoutsFixesAnnuels,
		CoeffFraisGeneraux:           c.CoeffFraisGeneraux,
		CoeffChargesPatronales:       c.CoeffChargesPatronales,
		CoeffHeuresSup:               c.CoeffHeuresSup,
		CoeffHeuresSup2:              c.CoeffHeuresSup2,
		CoeffChargesParCategorie:     c.CoeffChargesParCategorie,
		SeuilAlerteBudgetPct:         c.SeuilAlerteBudgetPct,
		SeuilAlerteBudgetCritiquePct: c.SeuilAlerteBudgetCritiquePct,
		UpdatedAt:                    c.UpdatedAt,
	}
}

// ConfigurationService handles fiscal year configuration operations.
// Configurations are upserted and superseded, never deleted: past years stay
// readable for historical cost recomputation.
type ConfigurationService struct {
	configRepo company.ConfigurationRepository
}

// NewConfigurationService creates a new ConfigurationService
func NewConfigurationService(configRepo company.ConfigurationRepository) *ConfigurationService {
	return &ConfigurationService{
		configRepo: configRepo,
	}
}

// Upsert creates or replaces the configuration of a fiscal year
func (s *ConfigurationService) Upsert(ctx context.Context, req UpsertConfigurationRequest) (*ConfigurationResponse, error) {
	config, err := company.NewConfigurationEntreprise(company.ConfigurationParams{
		Annee:                        req.Annee,
		CoutsFixesAnnuels:            req.CoutsFixesAnnuels,
		CoeffFraisGeneraux:           req.CoeffFraisGeneraux,
		CoeffChargesPatronales:       req.CoeffChargesPatronales,
		CoeffHeuresSup:               req.CoeffHeuresSup,
		CoeffHeuresSup2:              req.CoeffHeuresSup2,
		CoeffChargesParCategorie:     req.CoeffChargesParCategorie,
		SeuilAlerteBudgetPct:         req.SeuilAlerteBudgetPct,
		SeuilAlerteBudgetCritiquePct: req.SeuilAlerteBudgetCritiquePct,
	})
	if err != nil {
		return nil, err
	}
	if req.ActorID != nil {
		config.SetCreatedBy(*req.ActorID)
	}

	var old audit.Values
	if existing, err := s.configRepo.FindByAnnee(ctx, req.Annee); err == nil {
		old = configurationAuditValues(existing)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	entry, err := audit.NewLogEntry("ConfigurationEntreprise", config.ID, audit.ActionUpsert,
		old, configurationAuditValues(config), req.ActorID)
	if err != nil {
		return nil, err
	}
	if err := s.configRepo.Upsert(ctx, config, entry); err != nil {
		return nil, err
	}

	response := ToConfigurationResponse(config)
	return &response, nil
}

// GetByAnnee retrieves the configuration of a fiscal year
func (s *ConfigurationService) GetByAnnee(ctx context.Context, annee int) (*ConfigurationResponse, error) {
	config, err := s.configRepo.FindByAnnee(ctx, annee)
	if err != nil {
		return nil, err
	}
	response := ToConfigurationResponse(config)
	return &response, nil
}

// GetCourante retrieves the configuration applicable today: the current
// fiscal year, falling back to the latest configured year
func (s *ConfigurationService) GetCourante(ctx context.Context) (*ConfigurationResponse, error) {
	config, err := s.configRepo.FindByAnnee(ctx, time.Now().Year())
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		config, err = s.configRepo.FindLatest(ctx)
		if err != nil {
			return nil, err
		}
	}
	response := ToConfigurationResponse(config)
	return &response, nil
}

// List returns all fiscal year configurations, newest first
func (s *ConfigurationService) List(ctx context.Context) ([]ConfigurationResponse, error) {
	configs, err := s.configRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]ConfigurationResponse, len(configs))
	for i := range configs {
		responses[i] = ToConfigurationResponse(&configs[i])
	}
	return responses, nil
}

// configurationAuditValues flattens the audited fields of a configuration
func configurationAuditValues(c *company.ConfigurationEntreprise) audit.Values {
	return audit.Values{
		"annee":                            c.Annee,
		"couts_fixes_annuels":              c.CoutsFixesAnnuels.String(),
		"coeff_frais_generaux":             c.CoeffFraisGeneraux.String(),
		"coeff_charges_patronales":         c.CoeffChargesPatronales.String(),
		"coeff_heures_sup":                 c.CoeffHeuresSup.String(),
		"coeff_heures_sup_2":               c.CoeffHeuresSup2.String(),
		"seuil_alerte_budget_pct":          c.SeuilAlerteBudgetPct.String(),
		"seuil_alerte_budget_critique_pct": c.SeuilAlerteBudgetCritiquePct.String(),
	}
}
