package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty defaults to DESC", "", "DESC"},
		{"uppercase ASC", "ASC", "ASC"},
		{"lowercase asc", "asc", "ASC"},
		{"uppercase DESC", "DESC", "DESC"},
		{"mixed case", "Desc", "DESC"},
		{"garbage defaults to DESC", "SIDEWAYS", "DESC"},
		{"injection defaults to DESC", "ASC; DROP TABLE achats;--", "DESC"},
		{"whitespace only defaults to DESC", "   ", "DESC"},
		{"surrounding whitespace is trimmed", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	allowed := map[string]bool{
		"id":         true,
		"numero":     true,
		"montant_ht": true,
		"created_at": true,
	}

	tests := []struct {
		name         string
		input        string
		defaultField string
		expected     string
	}{
		{"empty returns default", "", "created_at", "created_at"},
		{"allowed field passes", "numero", "created_at", "numero"},
		{"allowed field id passes", "id", "created_at", "id"},
		{"unknown field returns default", "tva", "created_at", "created_at"},
		{"injection returns default", "id; DROP TABLE achats;--", "created_at", "created_at"},
		{"whitelist is case sensitive", "NUMERO", "created_at", "created_at"},
		{"whitespace only returns default", "   ", "created_at", "created_at"},
		{"surrounding whitespace is trimmed", "  numero  ", "created_at", "numero"},
		{"embedded space returns default", "numero achats", "created_at", "created_at"},
		{"quote returns default", "numero'--", "created_at", "created_at"},
		{"empty default with allowed field", "numero", "", "numero"},
		{"empty default with unknown field", "tva", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, allowed, tt.defaultField))
		})
	}
}

func TestSortFieldWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"AchatSortFields":       AchatSortFields,
		"FournisseurSortFields": FournisseurSortFields,
		"BudgetSortFields":      BudgetSortFields,
		"SituationSortFields":   SituationSortFields,
		"FactureSortFields":     FactureSortFields,
		"AlerteSortFields":      AlerteSortFields,
	}

	for name, whitelist := range whitelists {
		t.Run(name, func(t *testing.T) {
			// Every aggregate is sortable on its audit columns.
			for _, field := range []string{"id", "created_at", "updated_at"} {
				assert.True(t, whitelist[field], "%s should allow %q", name, field)
			}
			// And on at least one domain column beyond them.
			assert.Greater(t, len(whitelist), 3, "%s lists only the audit columns", name)
		})
	}
}

func TestSortValidation_RejectsInjectionPayloads(t *testing.T) {
	payloads := []string{
		"id; DROP TABLE achats;--",
		"id' OR '1'='1",
		"id\"; DROP TABLE achats;--",
		"id UNION SELECT * FROM utilisateurs",
		"id ORDER BY 1",
		"id, (SELECT password FROM utilisateurs)",
		"CASE WHEN 1=1 THEN id ELSE numero END",
		"id/**/;DROP TABLE achats",
		"id\n; DROP TABLE achats",
		"id\t; DROP TABLE achats",
		"' OR ''='",
		"1; EXEC xp_cmdshell('dir')",
	}

	for _, payload := range payloads {
		label := payload[:min(len(payload), 30)]

		t.Run("field "+label, func(t *testing.T) {
			assert.Equal(t, "created_at", ValidateSortField(payload, AchatSortFields, "created_at"))
		})
		t.Run("order "+label, func(t *testing.T) {
			assert.Equal(t, "DESC", ValidateSortOrder(payload))
		})
	}
}
