package purchasing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

// StatutAchat represents the lifecycle status of a purchase
type StatutAchat string

const (
	StatutAchatDemande  StatutAchat = "DEMANDE"
	StatutAchatCommande StatutAchat = "COMMANDE"
	StatutAchatLivre    StatutAchat = "LIVRE"
	StatutAchatFacture  StatutAchat = "FACTURE"
	StatutAchatPaye     StatutAchat = "PAYE"
	StatutAchatAnnule   StatutAchat = "ANNULE"
)

// IsValid checks if the status is a valid StatutAchat
func (s StatutAchat) IsValid() bool {
	switch s {
	case StatutAchatDemande, StatutAchatCommande, StatutAchatLivre,
		StatutAchatFacture, StatutAchatPaye, StatutAchatAnnule:
		return true
	}
	return false
}

// String returns the string representation of StatutAchat
func (s StatutAchat) String() string {
	return string(s)
}

// EstTerminal reports whether the status is terminal
func (s StatutAchat) EstTerminal() bool {
	return s == StatutAchatPaye || s == StatutAchatAnnule
}

// CanTransitionTo checks if the status can transition to the target status.
// The forward chain is strict: each status only reaches its immediate
// successor. Cancellation is legal from any non-terminal status.
func (s StatutAchat) CanTransitionTo(target StatutAchat) bool {
	if target == StatutAchatAnnule {
		return !s.EstTerminal()
	}
	switch s {
	case StatutAchatDemande:
		return target == StatutAchatCommande
	case StatutAchatCommande:
		return target == StatutAchatLivre
	case StatutAchatLivre:
		return target == StatutAchatFacture
	case StatutAchatFacture:
		return target == StatutAchatPaye
	case StatutAchatPaye, StatutAchatAnnule:
		return false
	}
	return false
}

// TypeAchat classifies a purchase by nature
type TypeAchat string

const (
	TypeAchatMateriaux     TypeAchat = "MATERIAUX"
	TypeAchatLocation      TypeAchat = "LOCATION_MATERIEL"
	TypeAchatPrestation    TypeAchat = "PRESTATION_SERVICE"
	TypeAchatSousTraitance TypeAchat = "SOUS_TRAITANCE"
)

// IsValid checks if the type is a valid TypeAchat
func (t TypeAchat) IsValid() bool {
	switch t {
	case TypeAchatMateriaux, TypeAchatLocation, TypeAchatPrestation, TypeAchatSousTraitance:
		return true
	}
	return false
}

// String returns the string representation of TypeAchat
func (t TypeAchat) String() string {
	return string(t)
}

// EstSousTraitance reports whether the purchase type triggers autoliquidation
func (t TypeAchat) EstSousTraitance() bool {
	return t == TypeAchatSousTraitance
}

// NewTransitionStatutInvalideError builds the error raised on an illegal
// status transition, carrying the current and attempted status
func NewTransitionStatutInvalideError(from, to StatutAchat) *shared.DomainError {
	return shared.NewDomainError(
		shared.ErrCodeTransitionInvalide,
		fmt.Sprintf("Transition de statut invalide : %s -> %s", from, to),
	)
}

// NewAchatValidationError builds a purchase business-rule violation error
func NewAchatValidationError(message string) *shared.DomainError {
	return shared.NewDomainError(shared.ErrCodeAchatValidation, message)
}

// Achat represents a purchase raised against a chantier, from request to
// payment. The chantier is referenced by id only (no cross-module ownership).
type Achat struct {
	shared.AuditedAggregateRoot
	Numero                  string               `gorm:"type:varchar(20);not null;uniqueIndex"`
	ChantierID              uuid.UUID            `gorm:"type:uuid;not null;index"`
	TypeAchat               TypeAchat            `gorm:"type:varchar(30);not null"`
	Designation             string               `gorm:"type:varchar(500);not null"`
	Quantite                decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PrixUnitaireHT          decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	MontantHT               decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TauxTVA                 *valueobject.VatRate `gorm:"-"`
	Statut                  StatutAchat          `gorm:"type:varchar(20);not null;default:'DEMANDE'"`
	FournisseurID           *uuid.UUID           `gorm:"type:uuid;index"`
	FournisseurNom          string               `gorm:"type:varchar(200)"`
	FournisseurSousTraitant bool                 `gorm:"not null;default:false"`
	DateCommande            *time.Time
	DateLivraisonPrevue     *time.Time
	DateLivraison           *time.Time
	DateFacture             *time.Time
	DatePaiement            *time.Time
	AnnuleLe                *time.Time
	MotifAnnulation         string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Achat) TableName() string {
	return "achats"
}

// NewAchat creates a purchase in DEMANDE status.
// tauxTVA may be nil while the purchase is a request; it becomes mandatory
// (and legal) before confirmation. When supplied it is validated immediately,
// including the autoliquidation rule for subcontracted work.
func NewAchat(chantierID uuid.UUID, numero string, typeAchat TypeAchat, designation string,
	quantite, prixUnitaireHT decimal.Decimal, tauxTVA *valueobject.VatRate) (*Achat, error) {

	if chantierID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "L'identifiant du chantier est obligatoire")
	}
	if numero == "" {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Le numero d'achat est obligatoire")
	}
	if !typeAchat.IsValid() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation,
			fmt.Sprintf("Type d'achat %q invalide", string(typeAchat)))
	}
	if designation == "" {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "La designation est obligatoire")
	}
	if quantite.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "La quantite doit etre strictement positive")
	}
	if prixUnitaireHT.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Le prix unitaire HT ne peut pas etre negatif")
	}

	achat := &Achat{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		Numero:               numero,
		ChantierID:           chantierID,
		TypeAchat:            typeAchat,
		Designation:          designation,
		Quantite:             quantite,
		PrixUnitaireHT:       prixUnitaireHT,
		MontantHT:            quantite.Mul(prixUnitaireHT),
		TauxTVA:              tauxTVA,
		Statut:               StatutAchatDemande,
	}

	if err := achat.validerTVA(); err != nil {
		return nil, err
	}

	achat.AddDomainEvent(NewAchatCreatedEvent(achat))

	return achat, nil
}

// MontantHTMoney returns the pre-tax amount as a Money value object
func (a *Achat) MontantHTMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(a.MontantHT)
}

// MontantTVA returns the VAT amount for the purchase, zero when no rate is set.
// Full precision is kept; rounding happens at the presentation edge.
func (a *Achat) MontantTVA() decimal.Decimal {
	if a.TauxTVA == nil {
		return decimal.Zero
	}
	return a.MontantHT.Mul(a.TauxTVA.Value()).Div(decimal.NewFromInt(100))
}

// MontantTTC returns the tax-inclusive amount
func (a *Achat) MontantTTC() decimal.Decimal {
	return a.MontantHT.Add(a.MontantTVA())
}

// EstAutoliquide reports whether the purchase falls under VAT reverse charge
func (a *Achat) EstAutoliquide() bool {
	return a.TypeAchat.EstSousTraitance() || a.FournisseurSousTraitant
}

// validerTVA re-validates the VAT rate against the autoliquidation rule.
// Runs on every state-affecting write, never only at creation.
func (a *Achat) validerTVA() error {
	if a.TauxTVA == nil {
		return nil
	}
	if a.EstAutoliquide() && !a.TauxTVA.IsAutoliquidation() {
		return NewAchatValidationError(fmt.Sprintf(
			"Autoliquidation de la TVA : un achat en sous-traitance exige un taux de 0%%, taux fourni %s%%",
			a.TauxTVA.Value().String()))
	}
	return nil
}

// exigerTVA ensures a VAT rate is present before the purchase leaves DEMANDE
func (a *Achat) exigerTVA() error {
	if a.TauxTVA == nil {
		return NewAchatValidationError("Le taux de TVA est obligatoire avant la commande")
	}
	return a.validerTVA()
}

// DefinirTauxTVA sets or replaces the VAT rate, re-validating the
// autoliquidation rule. Only allowed before the purchase is invoiced.
func (a *Achat) DefinirTauxTVA(taux valueobject.VatRate) error {
	if a.Statut != StatutAchatDemande && a.Statut != StatutAchatCommande {
		return shared.NewDomainError(shared.ErrCodeValidation,
			fmt.Sprintf("Le taux de TVA ne peut plus etre modifie au statut %s", a.Statut))
	}
	previous := a.TauxTVA
	a.TauxTVA = &taux
	if err := a.validerTVA(); err != nil {
		a.TauxTVA = previous
		return err
	}
	a.Touch()
	a.IncrementVersion()
	return nil
}

// DefinirDateLivraisonPrevue sets the expected delivery date.
// Once an order date exists the expected delivery cannot precede it.
func (a *Achat) DefinirDateLivraisonPrevue(date time.Time) error {
	if a.DateCommande != nil && date.Before(*a.DateCommande) {
		return shared.NewDomainError(shared.ErrCodeValidation,
			"La date de livraison prevue ne peut pas preceder la date de commande")
	}
	a.DateLivraisonPrevue = &date
	a.Touch()
	a.IncrementVersion()
	return nil
}

// ConfirmerCommande confirms the purchase with a supplier and an order date,
// moving DEMANDE -> COMMANDE. The supplier category is captured so the
// autoliquidation rule keeps holding on later writes.
func (a *Achat) ConfirmerCommande(fournisseur *Fournisseur, dateCommande time.Time) error {
	if a.Statut != StatutAchatDemande {
		return NewTransitionStatutInvalideError(a.Statut, StatutAchatCommande)
	}
	if fournisseur == nil {
		return NewAchatValidationError("Le fournisseur est obligatoire pour confirmer la commande")
	}
	if dateCommande.IsZero() {
		return NewAchatValidationError("La date de commande est obligatoire pour confirmer la commande")
	}
	if a.DateLivraisonPrevue != nil && a.DateLivraisonPrevue.Before(dateCommande) {
		return NewAchatValidationError("La date de livraison prevue ne peut pas preceder la date de commande")
	}

	// Capture the supplier category before VAT re-validation so a
	// subcontractor purchase with a non-zero rate is caught here
	previousSousTraitant := a.FournisseurSousTraitant
	a.FournisseurSousTraitant = fournisseur.EstSousTraitant()
	if err := a.exigerTVA(); err != nil {
		a.FournisseurSousTraitant = previousSousTraitant
		return err
	}

	a.FournisseurID = &fournisseur.ID
	a.FournisseurNom = fournisseur.Nom
	a.DateCommande = &dateCommande
	a.changerStatut(StatutAchatCommande)

	return nil
}

// MarquerLivre records delivery, moving COMMANDE -> LIVRE
func (a *Achat) MarquerLivre(dateLivraison time.Time) error {
	if a.Statut != StatutAchatCommande {
		return NewTransitionStatutInvalideError(a.Statut, StatutAchatLivre)
	}
	if err := a.validerTVA(); err != nil {
		return err
	}
	if dateLivraison.IsZero() {
		dateLivraison = time.Now()
	}
	a.DateLivraison = &dateLivraison
	a.changerStatut(StatutAchatLivre)
	return nil
}

// MarquerFacture records the supplier invoice, moving LIVRE -> FACTURE
func (a *Achat) MarquerFacture(dateFacture time.Time) error {
	if a.Statut != StatutAchatLivre {
		return NewTransitionStatutInvalideError(a.Statut, StatutAchatFacture)
	}
	if err := a.validerTVA(); err != nil {
		return err
	}
	if dateFacture.IsZero() {
		dateFacture = time.Now()
	}
	a.DateFacture = &dateFacture
	a.changerStatut(StatutAchatFacture)
	return nil
}

// MarquerPaye records payment, moving FACTURE -> PAYE (terminal)
func (a *Achat) MarquerPaye(datePaiement time.Time) error {
	if a.Statut != StatutAchatFacture {
		return NewTransitionStatutInvalideError(a.Statut, StatutAchatPaye)
	}
	if err := a.validerTVA(); err != nil {
		return err
	}
	if datePaiement.IsZero() {
		datePaiement = time.Now()
	}
	a.DatePaiement = &datePaiement
	a.changerStatut(StatutAchatPaye)
	return nil
}

// Annuler cancels the purchase from any non-terminal status (terminal)
func (a *Achat) Annuler(motif string) error {
	if !a.Statut.CanTransitionTo(StatutAchatAnnule) {
		return NewTransitionStatutInvalideError(a.Statut, StatutAchatAnnule)
	}
	now := time.Now()
	a.AnnuleLe = &now
	a.MotifAnnulation = motif
	a.changerStatut(StatutAchatAnnule)
	return nil
}

// changerStatut applies a transition already validated by the caller and
// raises the status-change event
func (a *Achat) changerStatut(target StatutAchat) {
	ancien := a.Statut
	a.Statut = target
	a.Touch()
	a.IncrementVersion()
	a.AddDomainEvent(NewAchatStatutChangeEvent(a, ancien))
}
