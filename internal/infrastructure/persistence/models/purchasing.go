package models

import (
	"time"

	"github.com/chantier/backend/internal/domain/purchasing"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AchatModel is the persistence model for the Achat aggregate root.
// The VAT rate is stored as a raw percentage and revalidated against the
// legal set on load.
type AchatModel struct {
	AuditedAggregateModel
	Numero                  string                 `gorm:"type:varchar(20);not null;uniqueIndex"`
	ChantierID              uuid.UUID              `gorm:"type:uuid;not null;index"`
	TypeAchat               purchasing.TypeAchat   `gorm:"type:varchar(30);not null"`
	Designation             string                 `gorm:"type:varchar(500);not null"`
	Quantite                decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	PrixUnitaireHT          decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	MontantHT               decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	TauxTVA                 *decimal.Decimal       `gorm:"type:decimal(9,4)"`
	Statut                  purchasing.StatutAchat `gorm:"type:varchar(20);not null;default:'DEMANDE';index"`
	FournisseurID           *uuid.UUID             `gorm:"type:uuid;index"`
	FournisseurNom          string                 `gorm:"type:varchar(200)"`
	FournisseurSousTraitant bool                   `gorm:"not null;default:false"`
	DateCommande            *time.Time
	DateLivraisonPrevue     *time.Time
	DateLivraison           *time.Time
	DateFacture             *time.Time
	DatePaiement            *time.Time
	AnnuleLe                *time.Time
	MotifAnnulation         string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (AchatModel) TableName() string {
	return "achats"
}

// ToDomain converts the persistence model to a domain Achat aggregate
func (m *AchatModel) ToDomain() (*purchasing.Achat, error) {
	achat := &purchasing.Achat{
		Numero:                  m.Numero,
		ChantierID:              m.ChantierID,
		TypeAchat:               m.TypeAchat,
		Designation:             m.Designation,
		Quantite:                m.Quantite,
		PrixUnitaireHT:          m.PrixUnitaireHT,
		MontantHT:               m.MontantHT,
		Statut:                  m.Statut,
		FournisseurID:           m.FournisseurID,
		FournisseurNom:          m.FournisseurNom,
		FournisseurSousTraitant: m.FournisseurSousTraitant,
		DateCommande:            m.DateCommande,
		DateLivraisonPrevue:     m.DateLivraisonPrevue,
		DateLivraison:           m.DateLivraison,
		DateFacture:             m.DateFacture,
		DatePaiement:            m.DatePaiement,
		AnnuleLe:                m.AnnuleLe,
		MotifAnnulation:         m.MotifAnnulation,
	}
	m.PopulateAuditedAggregateRoot(&achat.AuditedAggregateRoot)
	if m.TauxTVA != nil {
		taux, err := valueobject.NewVatRate(*m.TauxTVA)
		if err != nil {
			return nil, err
		}
		achat.TauxTVA = &taux
	}
	return achat, nil
}

// FromDomain populates the persistence model from a domain Achat aggregate
func (m *AchatModel) FromDomain(a *purchasing.Achat) {
	m.FromDomainAuditedAggregateRoot(a.AuditedAggregateRoot)
	m.Numero = a.Numero
	m.ChantierID = a.ChantierID
	m.TypeAchat = a.TypeAchat
	m.Designation = a.Designation
	m.Quantite = a.Quantite
	m.PrixUnitaireHT = a.PrixUnitaireHT
	m.MontantHT = a.MontantHT
	m.Statut = a.Statut
	m.FournisseurID = a.FournisseurID
	m.FournisseurNom = a.FournisseurNom
	m.FournisseurSousTraitant = a.FournisseurSousTraitant
	m.DateCommande = a.DateCommande
	m.DateLivraisonPrevue = a.DateLivraisonPrevue
	m.DateLivraison = a.DateLivraison
	m.DateFacture = a.DateFacture
	m.DatePaiement = a.DatePaiement
	m.AnnuleLe = a.AnnuleLe
	m.MotifAnnulation = a.MotifAnnulation
	m.TauxTVA = nil
	if a.TauxTVA != nil {
		v := a.TauxTVA.Value()
		m.TauxTVA = &v
	}
}

// AchatModelFromDomain creates a new persistence model from a domain Achat aggregate
func AchatModelFromDomain(a *purchasing.Achat) *AchatModel {
	m := &AchatModel{}
	m.FromDomain(a)
	return m
}

// FournisseurModel is the persistence model for the Fournisseur aggregate root.
type FournisseurModel struct {
	AuditedAggregateModel
	Nom       string                     `gorm:"type:varchar(200);not null"`
	Type      purchasing.FournisseurType `gorm:"type:varchar(30);not null;index"`
	Siret     string                     `gorm:"type:varchar(14)"`
	Email     string                     `gorm:"type:varchar(200)"`
	Telephone string                     `gorm:"type:varchar(30)"`
	Adresse   string                     `gorm:"type:varchar(500)"`
	Actif     bool                       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (FournisseurModel) TableName() string {
	return "fournisseurs"
}

// ToDomain converts the persistence model to a domain Fournisseur aggregate
func (m *FournisseurModel) ToDomain() *purchasing.Fournisseur {
	fournisseur := &purchasing.Fournisseur{
		Nom:       m.Nom,
		Type:      m.Type,
		Siret:     m.Siret,
		Email:     m.Email,
		Telephone: m.Telephone,
		Adresse:   m.Adresse,
		Actif:     m.Actif,
	}
	m.PopulateAuditedAggregateRoot(&fournisseur.AuditedAggregateRoot)
	return fournisseur
}

// FromDomain populates the persistence model from a domain Fournisseur aggregate
func (m *FournisseurModel) FromDomain(f *purchasing.Fournisseur) {
	m.FromDomainAuditedAggregateRoot(f.AuditedAggregateRoot)
	m.Nom = f.Nom
	m.Type = f.Type
	m.Siret = f.Siret
	m.Email = f.Email
	m.Telephone = f.Telephone
	m.Adresse = f.Adresse
	m.Actif = f.Actif
}

// FournisseurModelFromDomain creates a new persistence model from a domain Fournisseur aggregate
func FournisseurModelFromDomain(f *purchasing.Fournisseur) *FournisseurModel {
	m := &FournisseurModel{}
	m.FromDomain(f)
	return m
}
