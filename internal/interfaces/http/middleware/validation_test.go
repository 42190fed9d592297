package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chantier/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestFormatValidationErrors(t *testing.T) {
	type createAchatRequest struct {
		FournisseurID string `json:"fournisseur_id" binding:"required,uuid"`
		MontantHT     string `json:"montant_ht" binding:"required,numeric"`
	}

	SetupValidator()

	router := gin.New()
	router.POST("/api/v1/achats", func(c *gin.Context) {
		var req createAchatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	t.Run("returns per-field details for invalid input", func(t *testing.T) {
		body := strings.NewReader(`{"fournisseur_id": "pas-un-uuid", "montant_ht": "douze"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/achats", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		assert.Len(t, resp.Error.Details, 2)

		// field names come from the json tags, not the Go field names
		fields := []string{resp.Error.Details[0].Field, resp.Error.Details[1].Field}
		assert.Contains(t, fields, "fournisseur_id")
		assert.Contains(t, fields, "montant_ht")
	})

	t.Run("passes valid input through", func(t *testing.T) {
		body := strings.NewReader(`{"fournisseur_id": "70c8ff90-3b3f-43f9-89ee-8120f9f67b11", "montant_ht": "12500.00"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/achats", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetValidationMessage(t *testing.T) {
	type achatInput struct {
		Designation   string `binding:"required"`
		ContactEmail  string `binding:"email"`
		Numero        string `binding:"min=5"`
		Reference     string `binding:"max=10"`
		CodePostal    string `binding:"len=5"`
		ChantierID    string `binding:"uuid"`
		Statut        string `binding:"oneof=brouillon confirme livre"`
		Quantite      int    `binding:"gte=10"`
		TauxTVA       int    `binding:"lte=100"`
		MontantHT     int    `binding:"gt=0"`
		DelaiJours    int    `binding:"lt=1000"`
		SiteWeb       string `binding:"url"`
		NumeroFacture string `binding:"numeric"`
	}

	v := validator.New()

	tests := []struct {
		field    string
		expected string
	}{
		{"Designation", "This field is required"},
		{"ContactEmail", "Invalid email format"},
		{"Numero", "Must be at least 5 characters"},
		{"Reference", "Must be at most 10 characters"},
		{"CodePostal", "Must be exactly 5 characters"},
		{"ChantierID", "Invalid UUID format"},
		{"Statut", "Must be one of: brouillon confirme livre"},
		{"SiteWeb", "Invalid URL format"},
	}

	err := v.Struct(achatInput{
		ContactEmail:  "invalid",
		Numero:        "ab",
		Reference:     "this is way too long",
		CodePostal:    "691",
		ChantierID:    "invalid",
		Statut:        "annule",
		SiteWeb:       "invalid",
		NumeroFacture: "FC-12",
	})
	require.Error(t, err)
	validationErrs := err.(validator.ValidationErrors)

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			for _, e := range validationErrs {
				if e.Field() == tt.field {
					assert.Equal(t, tt.expected, getValidationMessage(e))
					return
				}
			}
			t.Fatalf("no validation error recorded for field %s", tt.field)
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	type input struct {
		Designation string `json:"designation" binding:"required"`
	}

	router := gin.New()
	router.POST("/api/v1/achats", func(c *gin.Context) {
		var in input
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/achats", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
}
