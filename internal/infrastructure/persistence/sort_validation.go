package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// AchatSortFields contains allowed sort fields for purchases
var AchatSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"numero":         true,
	"chantier_id":    true,
	"type_achat":     true,
	"statut":         true,
	"montant_ht":     true,
	"fournisseur_id": true,
	"date_commande":  true,
	"date_livraison": true,
	"date_paiement":  true,
}

// FournisseurSortFields contains allowed sort fields for suppliers
var FournisseurSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"nom":        true,
	"type":       true,
	"siret":      true,
	"actif":      true,
}

// BudgetSortFields contains allowed sort fields for budgets
var BudgetSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"chantier_id":        true,
	"montant_initial_ht": true,
}

// SituationSortFields contains allowed sort fields for situations de travaux
var SituationSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"chantier_id":        true,
	"numero_situation":   true,
	"montant_periode_ht": true,
	"montant_cumule_ht":  true,
}

// FactureSortFields contains allowed sort fields for client invoices
var FactureSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"numero_facture": true,
	"chantier_id":    true,
	"situation_id":   true,
	"statut":         true,
	"montant_ht":     true,
	"net_a_payer":    true,
	"emise_le":       true,
	"payee_le":       true,
}

// AlerteSortFields contains allowed sort fields for budget alerts
var AlerteSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"chantier_id": true,
	"niveau":      true,
	"statut":      true,
	"ratio_pct":   true,
	"resolue_le":  true,
}

// AuditLogSortFields contains allowed sort fields for audit trail entries
var AuditLogSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"entity_type": true,
	"entity_id":   true,
	"action":      true,
	"actor_id":    true,
}
