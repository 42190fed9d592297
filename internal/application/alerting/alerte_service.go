package alerting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/alerting"
	"github.com/chantier/backend/internal/domain/company"
	"github.com/chantier/backend/internal/domain/shared"
)

// AlerteResponse represents a budget alert in API responses
type AlerteResponse struct {
	ID         uuid.UUID       `json:"id"`
	ChantierID uuid.UUID       `json:"chantier_id"`
	Niveau     string          `json:"niveau"`
	Statut     string          `json:"statut"`
	RatioPct   decimal.Decimal `json:"ratio_pct"`
	SeuilPct   decimal.Decimal `json:"seuil_pct"`
	Message    string          `json:"message"`
	ResolueLe  *time.Time      `json:"resolue_le,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ToAlerteResponse converts an alert aggregate to its API representation
func ToAlerteResponse(a *alerting.Alerte) AlerteResponse {
	return AlerteResponse{
		ID:         a.ID,
		ChantierID: a.ChantierID,
		Niveau:     a.Niveau.String(),
		Statut:     string(a.Statut),
		RatioPct:   a.RatioPct.Round(2),
		SeuilPct:   a.SeuilPct,
		Message:    a.Message,
		ResolueLe:  a.ResolueLe,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// AlerteListFilter represents filter options for the alert list
type AlerteListFilter struct {
	ChantierID *uuid.UUID `form:"chantier_id"`
	Statut     *string    `form:"statut"`
	Niveau     *string    `form:"niveau"`
	Page       int        `form:"page" binding:"min=0"`
	PageSize   int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// AlerteService maintains at most one open budget alert per chantier.
// Each evaluation raises, lowers, resolves or opens, never duplicates.
type AlerteService struct {
	alerteRepo alerting.AlerteRepository
	configRepo company.ConfigurationRepository
}

// NewAlerteService creates a new AlerteService
func NewAlerteService(alerteRepo alerting.AlerteRepository, configRepo company.ConfigurationRepository) *AlerteService {
	return &AlerteService{
		alerteRepo: alerteRepo,
		configRepo: configRepo,
	}
}

// EvaluerBudget re-evaluates the alert state of a chantier against the
// configured thresholds. Called after every ledger recomputation.
func (s *AlerteService) EvaluerBudget(ctx context.Context, chantierID uuid.UUID, totalEngage, montantInitial decimal.Decimal) error {
	seuils, err := s.seuils(ctx)
	if err != nil {
		return err
	}
	evaluation := alerting.Evaluer(totalEngage, montantInitial, seuils)

	open, err := s.alerteRepo.FindOpenByChantier(ctx, chantierID)
	if err != nil {
		return err
	}

	switch {
	case open == nil && evaluation.Breached:
		alerte, err := alerting.NewAlerte(chantierID, evaluation, seuils)
		if err != nil {
			return err
		}
		return s.save(ctx, alerte)

	case open != nil && evaluation.Breached:
		if err := open.Reevaluer(evaluation, seuils); err != nil {
			return err
		}
		return s.save(ctx, open)

	case open != nil && !evaluation.Breached:
		if err := open.Resoudre(); err != nil {
			return err
		}
		return s.save(ctx, open)
	}

	return nil
}

// GetOpenByChantier retrieves the open alert of a chantier, nil when none
func (s *AlerteService) GetOpenByChantier(ctx context.Context, chantierID uuid.UUID) (*AlerteResponse, error) {
	alerte, err := s.alerteRepo.FindOpenByChantier(ctx, chantierID)
	if err != nil {
		return nil, err
	}
	if alerte == nil {
		return nil, nil
	}
	response := ToAlerteResponse(alerte)
	return &response, nil
}

// List retrieves alerts with filtering and pagination
func (s *AlerteService) List(ctx context.Context, filter AlerteListFilter) ([]AlerteResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]interface{}),
	}
	if filter.ChantierID != nil {
		domainFilter.Filters["chantier_id"] = *filter.ChantierID
	}
	if filter.Statut != nil {
		domainFilter.Filters["statut"] = *filter.Statut
	}
	if filter.Niveau != nil {
		domainFilter.Filters["niveau"] = *filter.Niveau
	}

	alertes, err := s.alerteRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.alerteRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]AlerteResponse, len(alertes))
	for i := range alertes {
		responses[i] = ToAlerteResponse(&alertes[i])
	}
	return responses, total, nil
}

// seuils resolves the alert thresholds from the current fiscal year
// configuration, falling back to the defaults
func (s *AlerteService) seuils(ctx context.Context) (alerting.EvaluationSeuils, error) {
	defaults := alerting.EvaluationSeuils{
		SeuilPct:         company.DefaultSeuilAlerteBudgetPct,
		SeuilCritiquePct: company.DefaultSeuilAlerteBudgetCritiquePct,
	}

	config, err := s.configRepo.FindByAnnee(ctx, time.Now().Year())
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return alerting.EvaluationSeuils{}, err
		}
		config, err = s.configRepo.FindLatest(ctx)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return defaults, nil
			}
			return alerting.EvaluationSeuils{}, err
		}
	}

	return alerting.EvaluationSeuils{
		SeuilPct:         config.SeuilAlerteBudgetPct,
		SeuilCritiquePct: config.SeuilAlerteBudgetCritiquePct,
	}, nil
}

func (s *AlerteService) save(ctx context.Context, alerte *alerting.Alerte) error {
	events := alerte.GetDomainEvents()
	alerte.ClearDomainEvents()
	return s.alerteRepo.SaveWithLockAndEvents(ctx, alerte, events)
}
