package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/purchasing"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// ==================== Achat DTOs ====================

// CreateAchatRequest represents a request to create a purchase
type CreateAchatRequest struct {
	ChantierID     uuid.UUID        `json:"chantier_id" binding:"required"`
	TypeAchat      string           `json:"type_achat" binding:"required"`
	Designation    string           `json:"designation" binding:"required,min=1,max=500"`
	Quantite       decimal.Decimal  `json:"quantite" binding:"required"`
	PrixUnitaireHT decimal.Decimal  `json:"prix_unitaire_ht" binding:"required"`
	TauxTVA        *decimal.Decimal `json:"taux_tva"`
	ActorID        *uuid.UUID       `json:"-"`
}

// ConfirmerCommandeRequest represents a request to confirm a purchase order
type ConfirmerCommandeRequest struct {
	FournisseurID       uuid.UUID  `json:"fournisseur_id" binding:"required"`
	DateCommande        time.Time  `json:"date_commande" binding:"required"`
	DateLivraisonPrevue *time.Time `json:"date_livraison_prevue"`
	ActorID             *uuid.UUID `json:"-"`
}

// TransitionAchatRequest carries the effective date of a delivery, invoice
// or payment transition. A zero date defaults to now.
type TransitionAchatRequest struct {
	Date    time.Time  `json:"date"`
	ActorID *uuid.UUID `json:"-"`
}

// AnnulerAchatRequest represents a request to cancel a purchase
type AnnulerAchatRequest struct {
	Motif   string     `json:"motif" binding:"required,min=1,max=500"`
	ActorID *uuid.UUID `json:"-"`
}

// DefinirTauxTVARequest represents a request to set the VAT rate of a purchase
type DefinirTauxTVARequest struct {
	TauxTVA decimal.Decimal `json:"taux_tva" binding:"required"`
	ActorID *uuid.UUID      `json:"-"`
}

// AchatListFilter represents filter options for the purchase list
type AchatListFilter struct {
	Search        string     `form:"search"`
	ChantierID    *uuid.UUID `form:"chantier_id"`
	FournisseurID *uuid.UUID `form:"fournisseur_id"`
	Statut        *string    `form:"statut"`
	TypeAchat     *string    `form:"type_achat"`
	Page          int        `form:"page" binding:"min=0"`
	PageSize      int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy       string     `form:"order_by"`
	OrderDir      string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// AchatResponse represents a purchase in API responses.
// Amounts are rounded to 2 decimal places at this edge only.
type AchatResponse struct {
	ID                      uuid.UUID        `json:"id"`
	Numero                  string           `json:"numero"`
	ChantierID              uuid.UUID        `json:"chantier_id"`
	TypeAchat               string           `json:"type_achat"`
	Designation             string           `json:"designation"`
	Quantite                decimal.Decimal  `json:"quantite"`
	PrixUnitaireHT          decimal.Decimal  `json:"prix_unitaire_ht"`
	MontantHT               decimal.Decimal  `json:"montant_ht"`
	TauxTVA                 *decimal.Decimal `json:"taux_tva,omitempty"`
	MontantTVA              decimal.Decimal  `json:"montant_tva"`
	MontantTTC              decimal.Decimal  `json:"montant_ttc"`
	Autoliquide             bool             `json:"autoliquide"`
	Statut                  string           `json:"statut"`
	FournisseurID           *uuid.UUID       `json:"fournisseur_id,omitempty"`
	FournisseurNom          string           `json:"fournisseur_nom,omitempty"`
	FournisseurSousTraitant bool             `json:"fournisseur_sous_traitant"`
	DateCommande            *time.Time       `json:"date_commande,omitempty"`
	DateLivraisonPrevue     *time.Time       `json:"date_livraison_prevue,omitempty"`
	DateLivraison           *time.Time       `json:"date_livraison,omitempty"`
	DateFacture             *time.Time       `json:"date_facture,omitempty"`
	DatePaiement            *time.Time       `json:"date_paiement,omitempty"`
	AnnuleLe                *time.Time       `json:"annule_le,omitempty"`
	MotifAnnulation         string           `json:"motif_annulation,omitempty"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
	Version                 int              `json:"version"`
}

// ToAchatResponse converts a purchase aggregate to its API representation
func ToAchatResponse(a *purchasing.Achat) AchatResponse {
	resp := AchatResponse{
		ID:                      a.ID,
		Numero:                  a.Numero,
		ChantierID:              a.ChantierID,
		TypeAchat:               a.TypeAchat.String(),
		Designation:             a.Designation,
		Quantite:                a.Quantite,
		PrixUnitaireHT:          a.PrixUnitaireHT,
		MontantHT:               valueobject.ArrondirMontant(a.MontantHT),
		MontantTVA:              valueobject.ArrondirMontant(a.MontantTVA()),
		MontantTTC:              valueobject.ArrondirMontant(a.MontantTTC()),
		Autoliquide:             a.EstAutoliquide(),
		Statut:                  a.Statut.String(),
		FournisseurID:           a.FournisseurID,
		FournisseurNom:          a.FournisseurNom,
		FournisseurSousTraitant: a.FournisseurSousTraitant,
		DateCommande:            a.DateCommande,
		DateLivraisonPrevue:     a.DateLivraisonPrevue,
		DateLivraison:           a.DateLivraison,
		DateFacture:             a.DateFacture,
		DatePaiement:            a.DatePaiement,
		AnnuleLe:                a.AnnuleLe,
		MotifAnnulation:         a.MotifAnnulation,
		CreatedAt:               a.CreatedAt,
		UpdatedAt:               a.UpdatedAt,
		Version:                 a.Version,
	}
	if a.TauxTVA != nil {
		taux := a.TauxTVA.Value()
		resp.TauxTVA = &taux
	}
	return resp
}

// ToAchatResponses converts a slice of purchases
func ToAchatResponses(achats []purchasing.Achat) []AchatResponse {
	responses := make([]AchatResponse, len(achats))
	for i := range achats {
		responses[i] = ToAchatResponse(&achats[i])
	}
	return responses
}

// ==================== Fournisseur DTOs ====================

// CreateFournisseurRequest represents a request to create a supplier
type CreateFournisseurRequest struct {
	Nom       string     `json:"nom" binding:"required,min=1,max=200"`
	Type      string     `json:"type" binding:"required"`
	Siret     string     `json:"siret" binding:"omitempty,len=14"`
	Email     string     `json:"email" binding:"omitempty,email"`
	Telephone string     `json:"telephone" binding:"omitempty,max=30"`
	Adresse   string     `json:"adresse" binding:"omitempty,max=500"`
	ActorID   *uuid.UUID `json:"-"`
}

// UpdateFournisseurContactRequest represents a contact details update
type UpdateFournisseurContactRequest struct {
	Email     string     `json:"email" binding:"omitempty,email"`
	Telephone string     `json:"telephone" binding:"omitempty,max=30"`
	Adresse   string     `json:"adresse" binding:"omitempty,max=500"`
	ActorID   *uuid.UUID `json:"-"`
}

// FournisseurListFilter represents filter options for the supplier list
type FournisseurListFilter struct {
	Search   string  `form:"search"`
	Type     *string `form:"type"`
	Page     int     `form:"page" binding:"min=0"`
	PageSize int     `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string  `form:"order_by"`
	OrderDir string  `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// FournisseurResponse represents a supplier in API responses
type FournisseurResponse struct {
	ID           uuid.UUID `json:"id"`
	Nom          string    `json:"nom"`
	Type         string    `json:"type"`
	SousTraitant bool      `json:"sous_traitant"`
	Siret        string    `json:"siret,omitempty"`
	Email        string    `json:"email,omitempty"`
	Telephone    string    `json:"telephone,omitempty"`
	Adresse      string    `json:"adresse,omitempty"`
	Actif        bool      `json:"actif"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToFournisseurResponse converts a supplier aggregate to its API representation
func ToFournisseurResponse(f *purchasing.Fournisseur) FournisseurResponse {
	return FournisseurResponse{
		ID:           f.ID,
		Nom:          f.Nom,
		Type:         f.Type.String(),
		SousTraitant: f.EstSousTraitant(),
		Siret:        f.Siret,
		Email:        f.Email,
		Telephone:    f.Telephone,
		Adresse:      f.Adresse,
		Actif:        f.Actif,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ToFournisseurResponses converts a slice of suppliers
func ToFournisseurResponses(fournisseurs []purchasing.Fournisseur) []FournisseurResponse {
	responses := make([]FournisseurResponse, len(fournisseurs))
	for i := range fournisseurs {
		responses[i] = ToFournisseurResponse(&fournisseurs[i])
	}
	return responses
}
