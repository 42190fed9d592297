package handler

import (
	auditapp "github.com/chantier/backend/internal/application/audit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditHandler handles audit trail API endpoints
type AuditHandler struct {
	BaseHandler
	trailService *auditapp.TrailService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(trailService *auditapp.TrailService) *AuditHandler {
	return &AuditHandler{
		trailService: trailService,
	}
}

// GetByEntity godoc
// @Summary      Get audit trail of an entity
// @Description  Retrieve the full audit history of one entity, most recent first
// @Tags         audit
// @Produce      json
// @Param        entity_type path string true "Entity type" Enums(achat, budget, situation, facture, fournisseur, configuration)
// @Param        entity_id path string true "Entity ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]audit.LogEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /audit/{entity_type}/{entity_id} [get]
func (h *AuditHandler) GetByEntity(c *gin.Context) {
	entityType := c.Param("entity_type")
	if entityType == "" {
		h.BadRequest(c, "Entity type is required")
		return
	}

	entityID, err := uuid.Parse(c.Param("entity_id"))
	if err != nil {
		h.BadRequest(c, "Invalid entity ID format")
		return
	}

	entries, err := h.trailService.GetByEntity(c.Request.Context(), entityType, entityID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}

// List godoc
// @Summary      List audit trail entries
// @Description  Retrieve a paginated view of the audit trail with optional filtering
// @Tags         audit
// @Produce      json
// @Param        entity_type query string false "Entity type"
// @Param        entity_id query string false "Entity ID" format(uuid)
// @Param        action query string false "Action" Enums(CREATE, UPDATE, DELETE, TRANSITION)
// @Param        actor_id query string false "Actor ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]audit.LogEntryResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter auditapp.TrailListFilter
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

	entries, total, err := h.trailService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}
