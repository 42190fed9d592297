package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/billing"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/domain/shared/acl"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// FactureService handles client invoice operations
type FactureService struct {
	factureRepo    billing.FactureRepository
	situationRepo  billing.SituationRepository
	chantierStatus acl.ChantierStatusService
}

// NewFactureService creates a new FactureService
func NewFactureService(
	factureRepo billing.FactureRepository,
	situationRepo billing.SituationRepository,
	chantierStatus acl.ChantierStatusService,
) *FactureService {
	return &FactureService{
		factureRepo:    factureRepo,
		situationRepo:  situationRepo,
		chantierStatus: chantierStatus,
	}
}

// Emettre issues the invoice of a situation. A situation carries at most one
// non-cancelled invoice; re-invoicing requires cancelling the first.
func (s *FactureService) Emettre(ctx context.Context, req EmettreFactureRequest) (*FactureResponse, error) {
	situation, err := s.situationRepo.FindByID(ctx, req.SituationID)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, situation.ChantierID); err != nil {
		return nil, err
	}

	exists, err := s.factureRepo.ExistsActiveForSituation(ctx, situation.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, billing.NewFactureAlreadyExistsError()
	}

	retenue, err := valueobject.NewRetentionRate(req.TauxRetenue)
	if err != nil {
		return nil, err
	}

	numero, err := s.factureRepo.NextNumero(ctx, time.Now().Year())
	if err != nil {
		return nil, err
	}

	facture, err := billing.NewFactureClient(numero, situation, retenue)
	if err != nil {
		return nil, err
	}
	if req.ActorID != nil {
		facture.SetCreatedBy(*req.ActorID)
	}

	if err := s.saveAndAudit(ctx, facture, req.ActorID, audit.ActionCreate, nil); err != nil {
		return nil, err
	}

	response := ToFactureResponse(facture)
	return &response, nil
}

// GetByID retrieves an invoice by ID
func (s *FactureService) GetByID(ctx context.Context, id uuid.UUID) (*FactureResponse, error) {
	facture, err := s.factureRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToFactureResponse(facture)
	return &response, nil
}

// ListByChantier retrieves the invoices of a chantier
func (s *FactureService) ListByChantier(ctx context.Context, chantierID uuid.UUID, filter FactureListFilter) ([]FactureResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "emise_le"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  map[string]interface{}{"chantier_id": chantierID},
	}
	if filter.Statut != nil {
		domainFilter.Filters["statut"] = *filter.Statut
	}

	factures, err := s.factureRepo.FindByChantier(ctx, chantierID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.factureRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToFactureResponses(factures), total, nil
}

// MarquerPayee records client payment of an invoice
func (s *FactureService) MarquerPayee(ctx context.Context, id uuid.UUID, req PayerFactureRequest) (*FactureResponse, error) {
	facture, err := s.factureRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, facture.ChantierID); err != nil {
		return nil, err
	}

	old := factureAuditValues(facture)
	if err := facture.MarquerPayee(req.DatePaiement); err != nil {
		return nil, err
	}

	if err := s.saveAndAudit(ctx, facture, req.ActorID, audit.ActionTransition, old); err != nil {
		return nil, err
	}

	response := ToFactureResponse(facture)
	return &response, nil
}

// Annuler cancels an unpaid invoice, freeing its situation for re-invoicing
func (s *FactureService) Annuler(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*FactureResponse, error) {
	facture, err := s.factureRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, facture.ChantierID); err != nil {
		return nil, err
	}

	old := factureAuditValues(facture)
	if err := facture.Annuler(); err != nil {
		return nil, err
	}

	if err := s.saveAndAudit(ctx, facture, actorID, audit.ActionCancel, old); err != nil {
		return nil, err
	}

	response := ToFactureResponse(facture)
	return &response, nil
}

func (s *FactureService) saveAndAudit(ctx context.Context, facture *billing.FactureClient,
	actorID *uuid.UUID, action string, old audit.Values) error {

	events := facture.GetDomainEvents()
	if actorID != nil {
		for _, event := range events {
			if be, ok := event.(interface{ SetActor(*uuid.UUID) }); ok {
				be.SetActor(actorID)
			}
		}
	}
	facture.ClearDomainEvents()

	entry, err := audit.NewLogEntry("FactureClient", facture.ID, action, old, factureAuditValues(facture), actorID)
	if err != nil {
		return err
	}
	return s.factureRepo.SaveWithLockAndEvents(ctx, facture, events, entry)
}

// factureAuditValues flattens the audited fields of an invoice
func factureAuditValues(f *billing.FactureClient) audit.Values {
	return audit.Values{
		"numero_facture":  f.NumeroFacture,
		"situation_id":    f.SituationID.String(),
		"chantier_id":     f.ChantierID.String(),
		"montant_ht":      f.MontantHT.String(),
		"montant_retenue": f.MontantRetenue.String(),
		"net_a_payer":     f.NetAPayer.String(),
		"statut":          f.Statut.String(),
	}
}
