package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	auditapp "github.com/chantier/backend/internal/application/audit"
	"github.com/chantier/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestLogEntry(t *testing.T, entityType string, entityID uuid.UUID) *audit.LogEntry {
	t.Helper()
	actorID := uuid.New()
	entry, err := audit.NewLogEntry(entityType, entityID, audit.ActionCreate,
		nil, audit.Values{"statut": "DEMANDE"}, &actorID)
	require.NoError(t, err)
	return entry
}

func setupAuditHandler(trail *MockTrailRepository) *AuditHandler {
	service := auditapp.NewTrailService(trail)
	return NewAuditHandler(service)
}

// Tests

func TestAuditHandler_GetByEntity_Success(t *testing.T) {
	trail := new(MockTrailRepository)
	handler := setupAuditHandler(trail)

	entityID := uuid.New()
	entry := createTestLogEntry(t, "Achat", entityID)
	trail.On("FindByEntity", mock.Anything, "Achat", entityID).
		Return([]audit.LogEntry{*entry}, nil)

	router := setupTestRouter()
	router.GET("/audit/:entity_type/:entity_id", handler.GetByEntity)

	req := httptest.NewRequest(http.MethodGet, "/audit/Achat/"+entityID.String(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "CREATE", first["action"])
	trail.AssertExpectations(t)
}

func TestAuditHandler_GetByEntity_InvalidEntityID(t *testing.T) {
	trail := new(MockTrailRepository)
	handler := setupAuditHandler(trail)

	router := setupTestRouter()
	router.GET("/audit/:entity_type/:entity_id", handler.GetByEntity)

	req := httptest.NewRequest(http.MethodGet, "/audit/Achat/not-a-uuid", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	trail.AssertNotCalled(t, "FindByEntity", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuditHandler_List_Success(t *testing.T) {
	trail := new(MockTrailRepository)
	handler := setupAuditHandler(trail)

	entry := createTestLogEntry(t, "Budget", uuid.New())
	trail.On("FindAll", mock.Anything, mock.AnythingOfType("shared.Filter")).
		Return([]audit.LogEntry{*entry}, nil)
	trail.On("Count", mock.Anything, mock.AnythingOfType("shared.Filter")).Return(int64(1), nil)

	router := setupTestRouter()
	router.GET("/audit", handler.List)

	req := httptest.NewRequest(http.MethodGet, "/audit?entity_type=Budget&page=1&page_size=20", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp["meta"])
	trail.AssertExpectations(t)
}
