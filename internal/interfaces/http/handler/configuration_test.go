package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	companyapp "github.com/chantier/backend/internal/application/company"
	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/company"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockConfigurationRepository implements company.ConfigurationRepository for testing
type MockConfigurationRepository struct {
	mock.Mock
}

func (m *MockConfigurationRepository) FindByAnnee(ctx context.Context, annee int) (*company.ConfigurationEntreprise, error) {
	args := m.Called(ctx, annee)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.ConfigurationEntreprise), args.Error(1)
}

func (m *MockConfigurationRepository) FindLatest(ctx context.Context) (*company.ConfigurationEntreprise, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.ConfigurationEntreprise), args.Error(1)
}

func (m *MockConfigurationRepository) FindAll(ctx context.Context) ([]company.ConfigurationEntreprise, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]company.ConfigurationEntreprise), args.Error(1)
}

func (m *MockConfigurationRepository) Upsert(ctx context.Context, configuration *company.ConfigurationEntreprise, entry *audit.LogEntry) error {
	args := m.Called(ctx, configuration, entry)
	return args.Error(0)
}

func createTestConfiguration(t *testing.T, annee int) *company.ConfigurationEntreprise {
	t.Helper()
	config, err := company.NewConfigurationEntreprise(company.ConfigurationParams{
		Annee:                  annee,
		CoutsFixesAnnuels:      decimal.NewFromInt(250000),
		CoeffFraisGeneraux:     decimal.NewFromInt(12),
		CoeffChargesPatronales: decimal.NewFromInt(45),
		CoeffHeuresSup:         decimal.NewFromInt(25),
	})
	require.NoError(t, err)
	return config
}

func setupConfigurationHandler(configs *MockConfigurationRepository) *ConfigurationHandler {
	service := companyapp.NewConfigurationService(configs)
	return NewConfigurationHandler(service)
}

// Tests

func TestConfigurationHandler_Upsert_Success(t *testing.T) {
	configs := new(MockConfigurationRepository)
	handler := setupConfigurationHandler(configs)

	configs.On("FindByAnnee", mock.Anything, 2026).Return(nil, shared.ErrNotFound)
	configs.On("Upsert", mock.Anything, mock.AnythingOfType("*company.ConfigurationEntreprise"),
		mock.AnythingOfType("*audit.LogEntry")).Return(nil)

	router := setupTestRouter()
	router.PUT("/configurations", handler.Upsert)

	reqBody := companyapp.UpsertConfigurationRequest{
		Annee:                  2026,
		CoutsFixesAnnuels:      decimal.NewFromInt(250000),
		CoeffFraisGeneraux:     decimal.NewFromInt(12),
		CoeffChargesPatronales: decimal.NewFromInt(45),
		CoeffHeuresSup:         decimal.NewFromInt(25),
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPut, "/configurations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2026), data["annee"])
	configs.AssertExpectations(t)
}

func TestConfigurationHandler_Upsert_AnneeOutOfRange(t *testing.T) {
	configs := new(MockConfigurationRepository)
	handler := setupConfigurationHandler(configs)

	router := setupTestRouter()
	router.PUT("/configurations", handler.Upsert)

	reqBody := companyapp.UpsertConfigurationRequest{
		Annee:                  1995,
		CoutsFixesAnnuels:      decimal.NewFromInt(250000),
		CoeffFraisGeneraux:     decimal.NewFromInt(12),
		CoeffChargesPatronales: decimal.NewFromInt(45),
		CoeffHeuresSup:         decimal.NewFromInt(25),
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPut, "/configurations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	configs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfigurationHandler_GetByAnnee_InvalidYear(t *testing.T) {
	handler := setupConfigurationHandler(new(MockConfigurationRepository))

	router := setupTestRouter()
	router.GET("/configurations/:annee", handler.GetByAnnee)

	req := httptest.NewRequest(http.MethodGet, "/configurations/abcd", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigurationHandler_GetCourante_Success(t *testing.T) {
	configs := new(MockConfigurationRepository)
	handler := setupConfigurationHandler(configs)

	currentYear := time.Now().Year()
	config := createTestConfiguration(t, currentYear)
	configs.On("FindByAnnee", mock.Anything, currentYear).Return(config, nil)

	router := setupTestRouter()
	router.GET("/configurations/courante", handler.GetCourante)

	req := httptest.NewRequest(http.MethodGet, "/configurations/courante", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	configs.AssertExpectations(t)
}

func TestConfigurationHandler_GetCourante_FallsBackToLatest(t *testing.T) {
	configs := new(MockConfigurationRepository)
	handler := setupConfigurationHandler(configs)

	currentYear := time.Now().Year()
	config := createTestConfiguration(t, currentYear-1)
	configs.On("FindByAnnee", mock.Anything, currentYear).Return(nil, shared.ErrNotFound)
	configs.On("FindLatest", mock.Anything).Return(config, nil)

	router := setupTestRouter()
	router.GET("/configurations/courante", handler.GetCourante)

	req := httptest.NewRequest(http.MethodGet, "/configurations/courante", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(currentYear-1), data["annee"])
	configs.AssertExpectations(t)
}
