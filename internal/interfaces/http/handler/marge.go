package handler

import (
	costingapp "github.com/chantier/backend/internal/application/costing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MargeHandler handles margin costing API endpoints
type MargeHandler struct {
	BaseHandler
	margeService *costingapp.MargeService
}

// NewMargeHandler creates a new MargeHandler
func NewMargeHandler(margeService *costingapp.MargeService) *MargeHandler {
	return &MargeHandler{
		margeService: margeService,
	}
}

// GetByChantier godoc
// @Summary      Get chantier margin
// @Description  Compute the margin position of a chantier from invoiced revenue and committed costs
// @Tags         marge
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Success      200 {object} dto.Response{data=costing.MargeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/marge [get]
func (h *MargeHandler) GetByChantier(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	marge, err := h.margeService.GetMargeChantier(c.Request.Context(), chantierID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, marge)
}
