package purchasing

import (
	"context"

	"github.com/google/uuid"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/purchasing"
	"github.com/chantier/backend/internal/domain/shared"
)

// FournisseurService handles supplier business operations
type FournisseurService struct {
	fournisseurRepo purchasing.FournisseurRepository
}

// NewFournisseurService creates a new FournisseurService
func NewFournisseurService(fournisseurRepo purchasing.FournisseurRepository) *FournisseurService {
	return &FournisseurService{
		fournisseurRepo: fournisseurRepo,
	}
}

// Creer creates a new supplier
func (s *FournisseurService) Creer(ctx context.Context, req CreateFournisseurRequest) (*FournisseurResponse, error) {
	fournisseur, err := purchasing.NewFournisseur(req.Nom, purchasing.FournisseurType(req.Type))
	if err != nil {
		return nil, err
	}
	fournisseur.Siret = req.Siret
	fournisseur.UpdateContact(req.Email, req.Telephone, req.Adresse)
	if req.ActorID != nil {
		fournisseur.SetCreatedBy(*req.ActorID)
	}

	entry, err := audit.NewLogEntry("Fournisseur", fournisseur.ID, audit.ActionCreate,
		nil, fournisseurAuditValues(fournisseur), req.ActorID)
	if err != nil {
		return nil, err
	}
	if err := s.fournisseurRepo.Save(ctx, fournisseur, entry); err != nil {
		return nil, err
	}

	response := ToFournisseurResponse(fournisseur)
	return &response, nil
}

// GetByID retrieves a supplier by ID
func (s *FournisseurService) GetByID(ctx context.Context, id uuid.UUID) (*FournisseurResponse, error) {
	fournisseur, err := s.fournisseurRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToFournisseurResponse(fournisseur)
	return &response, nil
}

// List retrieves suppliers with filtering and pagination
func (s *FournisseurService) List(ctx context.Context, filter FournisseurListFilter) ([]FournisseurResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "nom"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Type != nil {
		domainFilter.Filters["type"] = *filter.Type
	}

	fournisseurs, err := s.fournisseurRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.fournisseurRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToFournisseurResponses(fournisseurs), total, nil
}

// UpdateContact updates the contact details of a supplier
func (s *FournisseurService) UpdateContact(ctx context.Context, id uuid.UUID, req UpdateFournisseurContactRequest) (*FournisseurResponse, error) {
	fournisseur, err := s.fournisseurRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := fournisseurAuditValues(fournisseur)
	fournisseur.UpdateContact(req.Email, req.Telephone, req.Adresse)

	entry, err := audit.NewLogEntry("Fournisseur", fournisseur.ID, audit.ActionUpdate,
		old, fournisseurAuditValues(fournisseur), req.ActorID)
	if err != nil {
		return nil, err
	}
	if err := s.fournisseurRepo.Save(ctx, fournisseur, entry); err != nil {
		return nil, err
	}

	response := ToFournisseurResponse(fournisseur)
	return &response, nil
}

// Desactiver marks a supplier inactive; existing purchases keep the reference
func (s *FournisseurService) Desactiver(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*FournisseurResponse, error) {
	fournisseur, err := s.fournisseurRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := fournisseurAuditValues(fournisseur)
	fournisseur.Desactiver()

	entry, err := audit.NewLogEntry("Fournisseur", fournisseur.ID, audit.ActionUpdate,
		old, fournisseurAuditValues(fournisseur), actorID)
	if err != nil {
		return nil, err
	}
	if err := s.fournisseurRepo.Save(ctx, fournisseur, entry); err != nil {
		return nil, err
	}

	response := ToFournisseurResponse(fournisseur)
	return &response, nil
}

// fournisseurAuditValues flattens the audited fields of a supplier
func fournisseurAuditValues(f *purchasing.Fournisseur) audit.Values {
	return audit.Values{
		"nom":       f.Nom,
		"type":      f.Type.String(),
		"siret":     f.Siret,
		"email":     f.Email,
		"telephone": f.Telephone,
		"adresse":   f.Adresse,
		"actif":     f.Actif,
	}
}
