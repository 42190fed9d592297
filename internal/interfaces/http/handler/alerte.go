package handler

import (
	alertingapp "github.com/chantier/backend/internal/application/alerting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AlerteHandler handles budget alert API endpoints
type AlerteHandler struct {
	BaseHandler
	alerteService *alertingapp.AlerteService
}

// NewAlerteHandler creates a new AlerteHandler
func NewAlerteHandler(alerteService *alertingapp.AlerteService) *AlerteHandler {
	return &AlerteHandler{
		alerteService: alerteService,
	}
}

// GetOpenByChantier godoc
// @Summary      Get open alert of a chantier
// @Description  Retrieve the currently open budget alert of a chantier, if any
// @Tags         alertes
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Success      200 {object} dto.Response{data=alerting.AlerteResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/alertes/ouverte [get]
func (h *AlerteHandler) GetOpenByChantier(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	alerte, err := h.alerteService.GetOpenByChantier(c.Request.Context(), chantierID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, alerte)
}

// List godoc
// @Summary      List alerts
// @Description  Retrieve a paginated list of budget alerts with optional filtering
// @Tags         alertes
// @Produce      json
// @Param        chantier_id query string false "Chantier ID" format(uuid)
// @Param        statut query string false "Alert status" Enums(OUVERTE, RESOLUE)
// @Param        niveau query string false "Alert level" Enums(WARNING, CRITIQUE)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]alerting.AlerteResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /alertes [get]
func (h *AlerteHandler) List(c *gin.Context) {
	var filter alertingapp.AlerteListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	alertes, total, err := h.alerteService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, alertes, total, filter.Page, filter.PageSize)
}
