package purchasing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/purchasing"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/domain/shared/acl"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// EngagementRecomputer recomputes the committed-cost ledger of a chantier.
// Implemented by the budget application service; every write that changes the
// committed amount of a chantier goes through it.
type EngagementRecomputer interface {
	RecomputeEngagement(ctx context.Context, chantierID uuid.UUID) error
}

// AchatService handles purchase business operations
type AchatService struct {
	achatRepo       purchasing.AchatRepository
	fournisseurRepo purchasing.FournisseurRepository
	chantierStatus  acl.ChantierStatusService
	engagement      EngagementRecomputer
}

// NewAchatService creates a new AchatService
func NewAchatService(
	achatRepo purchasing.AchatRepository,
	fournisseurRepo purchasing.FournisseurRepository,
	chantierStatus acl.ChantierStatusService,
) *AchatService {
	return &AchatService{
		achatRepo:       achatRepo,
		fournisseurRepo: fournisseurRepo,
		chantierStatus:  chantierStatus,
	}
}

// SetEngagementRecomputer wires the budget ledger recomputation trigger
func (s *AchatService) SetEngagementRecomputer(recomputer EngagementRecomputer) {
	s.engagement = recomputer
}

// Creer creates a purchase in DEMANDE status against an open chantier
func (s *AchatService) Creer(ctx context.Context, req CreateAchatRequest) (*AchatResponse, error) {
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, req.ChantierID); err != nil {
		return nil, err
	}

	var taux *valueobject.VatRate
	if req.TauxTVA != nil {
		t, err := valueobject.NewVatRate(*req.TauxTVA)
		if err != nil {
			return nil, err
		}
		taux = &t
	}

	numero, err := s.achatRepo.NextNumero(ctx, time.Now().Year())
	if err != nil {
		return nil, err
	}

	achat, err := purchasing.NewAchat(req.ChantierID, numero, purchasing.TypeAchat(req.TypeAchat),
		req.Designation, req.Quantite, req.PrixUnitaireHT, taux)
	if err != nil {
		return nil, err
	}
	if req.ActorID != nil {
		achat.SetCreatedBy(*req.ActorID)
	}

	if err := s.saveAndAudit(ctx, achat, req.ActorID, audit.ActionCreate, nil); err != nil {
		return nil, err
	}

	if err := s.recompute(ctx, achat.ChantierID); err != nil {
		return nil, err
	}

	response := ToAchatResponse(achat)
	return &response, nil
}

// GetByID retrieves a purchase by ID
func (s *AchatService) GetByID(ctx context.Context, achatID uuid.UUID) (*AchatResponse, error) {
	achat, err := s.achatRepo.FindByID(ctx, achatID)
	if err != nil {
		return nil, err
	}
	response := ToAchatResponse(achat)
	return &response, nil
}

// GetByNumero retrieves a purchase by its number
func (s *AchatService) GetByNumero(ctx context.Context, numero string) (*AchatResponse, error) {
	achat, err := s.achatRepo.FindByNumero(ctx, numero)
	if err != nil {
		return nil, err
	}
	response := ToAchatResponse(achat)
	return &response, nil
}

// List retrieves purchases with filtering and pagination
func (s *AchatService) List(ctx context.Context, filter AchatListFilter) ([]AchatResponse, int64, error) {
	domainFilter := buildAchatFilter(filter)

	achats, err := s.achatRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.achatRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToAchatResponses(achats), total, nil
}

// ListByChantier retrieves the purchases of one chantier
func (s *AchatService) ListByChantier(ctx context.Context, chantierID uuid.UUID, filter AchatListFilter) ([]AchatResponse, int64, error) {
	filter.ChantierID = &chantierID
	return s.List(ctx, filter)
}

// ConfirmerCommande confirms a purchase with a supplier, DEMANDE -> COMMANDE
func (s *AchatService) ConfirmerCommande(ctx context.Context, achatID uuid.UUID, req ConfirmerCommandeRequest) (*AchatResponse, error) {
	achat, err := s.achatRepo.FindByID(ctx, achatID)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, achat.ChantierID); err != nil {
		return nil, err
	}

	fournisseur, err := s.fournisseurRepo.FindByID(ctx, req.FournisseurID)
	if err != nil {
		return nil, err
	}

	old := achatAuditValues(achat)

	if req.DateLivraisonPrevue != nil {
		if err := achat.DefinirDateLivraisonPrevue(*req.DateLivraisonPrevue); err != nil {
			return nil, err
		}
	}
	if err := achat.ConfirmerCommande(fournisseur, req.DateCommande); err != nil {
		return nil, err
	}

	if err := s.saveAndAudit(ctx, achat, req.ActorID, audit.ActionTransition, old); err != nil {
		return nil, err
	}

	response := ToAchatResponse(achat)
	return &response, nil
}

// MarquerLivre records delivery, COMMANDE -> LIVRE
func (s *AchatService) MarquerLivre(ctx context.Context, achatID uuid.UUID, req TransitionAchatRequest) (*AchatResponse, error) {
	return s.transition(ctx, achatID, req, (*purchasing.Achat).MarquerLivre)
}

// MarquerFacture records the supplier invoice, LIVRE -> FACTURE
func (s *AchatService) MarquerFacture(ctx context.Context, achatID uuid.UUID, req TransitionAchatRequest) (*AchatResponse, error) {
	return s.transition(ctx, achatID, req, (*purchasing.Achat).MarquerFacture)
}

// MarquerPaye records payment, FACTURE -> PAYE
func (s *AchatService) MarquerPaye(ctx context.Context, achatID uuid.UUID, req TransitionAchatRequest) (*AchatResponse, error) {
	return s.transition(ctx, achatID, req, (*purchasing.Achat).MarquerPaye)
}

// Annuler cancels a purchase from any non-terminal status
func (s *AchatService) Annuler(ctx context.Context, achatID uuid.UUID, req AnnulerAchatRequest) (*AchatResponse, error) {
	achat, err := s.achatRepo.FindByID(ctx, achatID)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, achat.ChantierID); err != nil {
		return nil, err
	}

	old := achatAuditValues(achat)
	if err := achat.Annuler(req.Motif); err != nil {
		return nil, err
	}

	if err := s.saveAndAudit(ctx, achat, req.ActorID, audit.ActionCancel, old); err != nil {
		return nil, err
	}

	// Cancellation removes the purchase from the committed amount
	if err := s.recompute(ctx, achat.ChantierID); err != nil {
		return nil, err
	}

	response := ToAchatResponse(achat)
	return &response, nil
}

// DefinirTauxTVA sets or replaces the VAT rate of a purchase
func (s *AchatService) DefinirTauxTVA(ctx context.Context, achatID uuid.UUID, req DefinirTauxTVARequest) (*AchatResponse, error) {
	achat, err := s.achatRepo.FindByID(ctx, achatID)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, achat.ChantierID); err != nil {
		return nil, err
	}

	taux, err := valueobject.NewVatRate(req.TauxTVA)
	if err != nil {
		return nil, err
	}

	old := achatAuditValues(achat)
	if err := achat.DefinirTauxTVA(taux); err != nil {
		return nil, err
	}

	if err := s.saveAndAudit(ctx, achat, req.ActorID, audit.ActionUpdate, old); err != nil {
		return nil, err
	}

	response := ToAchatResponse(achat)
	return &response, nil
}

// transition runs a date-stamped status transition with the shared
// guard / save / audit sequence
func (s *AchatService) transition(ctx context.Context, achatID uuid.UUID, req TransitionAchatRequest,
	apply func(*purchasing.Achat, time.Time) error) (*AchatResponse, error) {

	achat, err := s.achatRepo.FindByID(ctx, achatID)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, achat.ChantierID); err != nil {
		return nil, err
	}

	old := achatAuditValues(achat)
	if err := apply(achat, req.Date); err != nil {
		return nil, err
	}

	if err := s.saveAndAudit(ctx, achat, req.ActorID, audit.ActionTransition, old); err != nil {
		return nil, err
	}

	response := ToAchatResponse(achat)
	return &response, nil
}

// saveAndAudit persists the aggregate, its pending events and its audit
// entry in one repository transaction
func (s *AchatService) saveAndAudit(ctx context.Context, achat *purchasing.Achat,
	actorID *uuid.UUID, action string, old audit.Values) error {

	events := achat.GetDomainEvents()
	if actorID != nil {
		for _, event := range events {
			if be, ok := event.(interface{ SetActor(*uuid.UUID) }); ok {
				be.SetActor(actorID)
			}
		}
	}
	achat.ClearDomainEvents()

	entry, err := audit.NewLogEntry("Achat", achat.ID, action, old, achatAuditValues(achat), actorID)
	if err != nil {
		return err
	}
	return s.achatRepo.SaveWithLockAndEvents(ctx, achat, events, entry)
}

func (s *AchatService) recompute(ctx context.Context, chantierID uuid.UUID) error {
	if s.engagement == nil {
		return nil
	}
	return s.engagement.RecomputeEngagement(ctx, chantierID)
}

// achatAuditValues flattens the audited fields of a purchase
func achatAuditValues(a *purchasing.Achat) audit.Values {
	values := audit.Values{
		"numero":      a.Numero,
		"chantier_id": a.ChantierID.String(),
		"type_achat":  a.TypeAchat.String(),
		"statut":      a.Statut.String(),
		"montant_ht":  a.MontantHT.String(),
	}
	if a.TauxTVA != nil {
		values["taux_tva"] = a.TauxTVA.String()
	}
	if a.FournisseurID != nil {
		values["fournisseur_id"] = a.FournisseurID.String()
	}
	if a.MotifAnnulation != "" {
		values["motif_annulation"] = a.MotifAnnulation
	}
	return values
}

// buildAchatFilter maps the API filter onto the domain filter
func buildAchatFilter(filter AchatListFilter) shared.Filter {
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
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.ChantierID != nil {
		domainFilter.Filters["chantier_id"] = *filter.ChantierID
	}
	if filter.FournisseurID != nil {
		domainFilter.Filters["fournisseur_id"] = *filter.FournisseurID
	}
	if filter.Statut != nil {
		domainFilter.Filters["statut"] = *filter.Statut
	}
	if filter.TypeAchat != nil {
		domainFilter.Filters["type_achat"] = *filter.TypeAchat
	}
	return domainFilter
}
