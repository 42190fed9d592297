package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrChantierFerme       = NewDomainError("CHANTIER_FERME", "Les mutations financieres sont interdites sur un chantier ferme")
	ErrBudgetNotFound      = NewDomainError("BUDGET_NOT_FOUND", "Aucun budget n'existe pour ce chantier")
)

// Error codes raised by the financial ledger. Constructors in the owning
// packages attach the precise message (which rate, which transition).
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeAchatValidation      = "ACHAT_VALIDATION"
	ErrCodeTransitionInvalide   = "TRANSITION_STATUT_INVALIDE"
	ErrCodeSituationRegression  = "SITUATION_REGRESSION"
	ErrCodeFactureAlreadyExists = "FACTURE_ALREADY_EXISTS"
	ErrCodeChantierFerme        = "CHANTIER_FERME"
	ErrCodeBudgetNotFound       = "BUDGET_NOT_FOUND"
)
