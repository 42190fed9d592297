package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chantier/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveSystem invokes one SystemHandler endpoint and decodes the wrapper.
func serveSystem(t *testing.T, call func(h *SystemHandler, c *gin.Context)) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/system", nil)

	call(NewSystemHandler(), c)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data payload should be an object")
	return w.Code, data
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	code, data := serveSystem(t, func(h *SystemHandler, c *gin.Context) {
		h.GetSystemInfo(c)
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Chantier Ledger API", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])

	startedAt, err := time.Parse(time.RFC3339, data["started_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), startedAt, time.Minute)
}

func TestSystemHandler_Ping(t *testing.T) {
	code, data := serveSystem(t, func(h *SystemHandler, c *gin.Context) {
		h.Ping(c)
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong", data["message"])

	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}
