package handler

import (
	billingapp "github.com/chantier/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SituationHandler handles situation de travaux API endpoints
type SituationHandler struct {
	BaseHandler
	situationService *billingapp.SituationService
}

// NewSituationHandler creates a new SituationHandler
func NewSituationHandler(situationService *billingapp.SituationService) *SituationHandler {
	return &SituationHandler{
		situationService: situationService,
	}
}

// Create godoc
// @Summary      Create a situation de travaux
// @Description  Record a monthly progress statement. The cumulative amount must never regress.
// @Tags         situations
// @Accept       json
// @Produce      json
// @Param        request body billing.CreateSituationRequest true "Situation creation request"
// @Success      201 {object} dto.Response{data=billing.SituationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /situations [post]
func (h *SituationHandler) Create(c *gin.Context) {
	var req billingapp.CreateSituationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	situation, err := h.situationService.Creer(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, situation)
}

// GetByID godoc
// @Summary      Get situation by ID
// @Description  Retrieve a situation de travaux by its ID
// @Tags         situations
// @Produce      json
// @Param        id path string true "Situation ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.SituationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /situations/{id} [get]
func (h *SituationHandler) GetByID(c *gin.Context) {
	situationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid situation ID format")
		return
	}

	situation, err := h.situationService.GetByID(c.Request.Context(), situationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, situation)
}

// ListByChantier godoc
// @Summary      List situations of a chantier
// @Description  Retrieve the situations de travaux of a chantier, ordered by numero
// @Tags         situations
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]billing.SituationResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/situations [get]
func (h *SituationHandler) ListByChantier(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	var filter billingapp.SituationListFilter
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

	situations, total, err := h.situationService.ListByChantier(c.Request.Context(), chantierID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, situations, total, filter.Page, filter.PageSize)
}
