package acl

import (
	"github.com/google/uuid"

	"github.com/chantier/backend/internal/domain/shared"
)

// StatutChantier is the ledger's local view of a chantier lifecycle state.
// Only the states the ledger reacts to are modeled; any unknown value
// coming from the owning system is treated as open.
type StatutChantier string

const (
	StatutChantierEnPreparation StatutChantier = "EN_PREPARATION"
	StatutChantierEnCours       StatutChantier = "EN_COURS"
	StatutChantierSuspendu      StatutChantier = "SUSPENDU"
	StatutChantierFerme         StatutChantier = "FERME"
)

// EstFerme reports whether the state refuses financial mutations
func (s StatutChantier) EstFerme() bool {
	return s == StatutChantierFerme
}

// String returns the string representation
func (s StatutChantier) String() string {
	return string(s)
}

// ChantierRef is a value object wrapping the identifier of a chantier
// owned by an external context. It provides type safety and prevents
// accidental mixing with other UUID-based identifiers.
type ChantierRef struct {
	value uuid.UUID
}

// NewChantierRef creates a ChantierRef from a UUID.
// Returns an error if the UUID is nil.
func NewChantierRef(id uuid.UUID) (ChantierRef, error) {
	if id == uuid.Nil {
		return ChantierRef{}, shared.NewDomainError("INVALID_CHANTIER_ID", "L'identifiant du chantier est obligatoire")
	}
	return ChantierRef{value: id}, nil
}

// ParseChantierRef parses a string into a ChantierRef
func ParseChantierRef(s string) (ChantierRef, error) {
	if s == "" {
		return ChantierRef{}, shared.NewDomainError("INVALID_CHANTIER_ID", "L'identifiant du chantier est obligatoire")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return ChantierRef{}, shared.NewDomainError("INVALID_CHANTIER_ID", "L'identifiant du chantier n'est pas un UUID valide")
	}
	return NewChantierRef(id)
}

// MustNewChantierRef creates a ChantierRef, panicking if the ID is invalid.
// Use only when the ID is guaranteed valid (e.g. from database).
func MustNewChantierRef(id uuid.UUID) ChantierRef {
	ref, err := NewChantierRef(id)
	if err != nil {
		panic(err)
	}
	return ref
}

// UUID returns the underlying UUID value
func (r ChantierRef) UUID() uuid.UUID {
	return r.value
}

// String returns the string representation
func (r ChantierRef) String() string {
	return r.value.String()
}

// IsEmpty returns true when the reference holds a nil UUID
func (r ChantierRef) IsEmpty() bool {
	return r.value == uuid.Nil
}

// Equals checks identity equality of two references
func (r ChantierRef) Equals(other ChantierRef) bool {
	return r.value == other.value
}

// DevisRef is a weak reference to the devis a budget was initialized from.
// The devis lives in the external quoting context; the ledger stores the
// identifier for traceability only and never dereferences it.
type DevisRef struct {
	value uuid.UUID
}

// NewDevisRef creates a DevisRef from a UUID
func NewDevisRef(id uuid.UUID) (DevisRef, error) {
	if id == uuid.Nil {
		return DevisRef{}, shared.NewDomainError("INVALID_DEVIS_ID", "L'identifiant du devis est obligatoire")
	}
	return DevisRef{value: id}, nil
}

// UUID returns the underlying UUID value
func (r DevisRef) UUID() uuid.UUID {
	return r.value
}

// String returns the string representation
func (r DevisRef) String() string {
	return r.value.String()
}

// IsEmpty returns true when the reference holds a nil UUID
func (r DevisRef) IsEmpty() bool {
	return r.value == uuid.Nil
}
