package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/billing"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/domain/shared/acl"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// SituationService handles cumulative billing statement operations
type SituationService struct {
	situationRepo  billing.SituationRepository
	chantierStatus acl.ChantierStatusService
}

// NewSituationService creates a new SituationService
func NewSituationService(
	situationRepo billing.SituationRepository,
	chantierStatus acl.ChantierStatusService,
) *SituationService {
	return &SituationService{
		situationRepo:  situationRepo,
		chantierStatus: chantierStatus,
	}
}

// Creer creates the next situation of a chantier. Numbering and the previous
// cumulative amount are resolved inside the repository transaction, under a
// per-chantier lock, so concurrent submissions cannot share a predecessor.
func (s *SituationService) Creer(ctx context.Context, req CreateSituationRequest) (*SituationResponse, error) {
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, req.ChantierID); err != nil {
		return nil, err
	}

	taux, err := valueobject.NewVatRate(req.TauxTVA)
	if err != nil {
		return nil, err
	}

	situation, err := s.situationRepo.CreateNext(ctx, req.ChantierID,
		func(numeroSituation int, previousCumule decimal.Decimal) (*billing.SituationTravaux, error) {
			st, err := billing.NewSituationTravaux(req.ChantierID, numeroSituation,
				previousCumule, req.MontantPeriodeHT, taux)
			if err != nil {
				return nil, err
			}
			if req.ActorID != nil {
				st.SetCreatedBy(*req.ActorID)
			}
			return st, nil
		},
		func(st *billing.SituationTravaux) (*audit.LogEntry, error) {
			return audit.NewLogEntry("SituationTravaux", st.ID, audit.ActionCreate,
				nil, situationAuditValues(st), req.ActorID)
		})
	if err != nil {
		return nil, err
	}

	response := ToSituationResponse(situation)
	return &response, nil
}

// GetByID retrieves a situation by ID
func (s *SituationService) GetByID(ctx context.Context, id uuid.UUID) (*SituationResponse, error) {
	situation, err := s.situationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToSituationResponse(situation)
	return &response, nil
}

// ListByChantier retrieves the situations of a chantier, ordered by number
func (s *SituationService) ListByChantier(ctx context.Context, chantierID uuid.UUID, filter SituationListFilter) ([]SituationResponse, int64, error) {
	domainFilter := buildSituationFilter(filter)
	domainFilter.Filters["chantier_id"] = chantierID

	situations, err := s.situationRepo.FindByChantier(ctx, chantierID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.situationRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToSituationResponses(situations), total, nil
}

// situationAuditValues flattens the audited fields of a situation
func situationAuditValues(s *billing.SituationTravaux) audit.Values {
	values := audit.Values{
		"chantier_id":        s.ChantierID.String(),
		"numero_situation":   s.NumeroSituation,
		"montant_periode_ht": s.MontantPeriodeHT.String(),
		"montant_cumule_ht":  s.MontantCumuleHT.String(),
	}
	if s.TauxTVA != nil {
		values["taux_tva"] = s.TauxTVA.String()
	}
	return values
}

func buildSituationFilter(filter SituationListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "numero_situation"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}
	return shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]interface{}),
	}
}
