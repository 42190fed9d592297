package purchasing

import (
	"github.com/chantier/backend/internal/domain/shared"
)

// FournisseurType classifies a supplier by trade category
type FournisseurType string

const (
	FournisseurTypeNegoceMateriaux FournisseurType = "NEGOCE_MATERIAUX"
	FournisseurTypeLoueur          FournisseurType = "LOUEUR"
	FournisseurTypeService         FournisseurType = "SERVICE"
	FournisseurTypeSousTraitant    FournisseurType = "SOUS_TRAITANT"
)

// IsValid checks if the type is a valid FournisseurType
func (t FournisseurType) IsValid() bool {
	switch t {
	case FournisseurTypeNegoceMateriaux, FournisseurTypeLoueur,
		FournisseurTypeService, FournisseurTypeSousTraitant:
		return true
	}
	return false
}

// String returns the string representation of FournisseurType
func (t FournisseurType) String() string {
	return string(t)
}

// EstSousTraitant reports whether the category triggers VAT autoliquidation
func (t FournisseurType) EstSousTraitant() bool {
	return t == FournisseurTypeSousTraitant
}

// Fournisseur represents a supplier referenced by purchases.
// Its category drives the VAT autoliquidation rule on subcontracted work.
type Fournisseur struct {
	shared.AuditedAggregateRoot
	Nom       string          `gorm:"type:varchar(200);not null"`
	Type      FournisseurType `gorm:"type:varchar(30);not null;index"`
	Siret     string          `gorm:"type:varchar(14)"`
	Email     string          `gorm:"type:varchar(200)"`
	Telephone string          `gorm:"type:varchar(30)"`
	Adresse   string          `gorm:"type:varchar(500)"`
	Actif     bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Fournisseur) TableName() string {
	return "fournisseurs"
}

// NewFournisseur creates a new supplier
func NewFournisseur(nom string, typeFournisseur FournisseurType) (*Fournisseur, error) {
	if nom == "" {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Le nom du fournisseur est obligatoire")
	}
	if len(nom) > 200 {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Le nom du fournisseur ne peut pas depasser 200 caracteres")
	}
	if !typeFournisseur.IsValid() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation,
			"Type de fournisseur invalide : les types admis sont NEGOCE_MATERIAUX, LOUEUR, SERVICE et SOUS_TRAITANT")
	}

	return &Fournisseur{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		Nom:                  nom,
		Type:                 typeFournisseur,
		Actif:                true,
	}, nil
}

// EstSousTraitant reports whether the supplier is a subcontractor
func (f *Fournisseur) EstSousTraitant() bool {
	return f.Type.EstSousTraitant()
}

// UpdateContact updates the supplier contact details
func (f *Fournisseur) UpdateContact(email, telephone, adresse string) {
	f.Email = email
	f.Telephone = telephone
	f.Adresse = adresse
	f.IncrementVersion()
}

// Desactiver marks the supplier as inactive; existing purchases keep the reference
func (f *Fournisseur) Desactiver() {
	f.Actif = false
	f.IncrementVersion()
}
