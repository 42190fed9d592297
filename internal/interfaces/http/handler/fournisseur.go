package handler

import (
	purchasingapp "github.com/chantier/backend/internal/application/purchasing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FournisseurHandler handles supplier-related API endpoints
type FournisseurHandler struct {
	BaseHandler
	fournisseurService *purchasingapp.FournisseurService
}

// NewFournisseurHandler creates a new FournisseurHandler
func NewFournisseurHandler(fournisseurService *purchasingapp.FournisseurService) *FournisseurHandler {
	return &FournisseurHandler{
		fournisseurService: fournisseurService,
	}
}

// Create godoc
// @Summary      Create a new fournisseur
// @Description  Register a supplier (fournisseur, sous-traitant or loueur)
// @Tags         fournisseurs
// @Accept       json
// @Produce      json
// @Param        request body purchasing.CreateFournisseurRequest true "Fournisseur creation request"
// @Success      201 {object} dto.Response{data=purchasing.FournisseurResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fournisseurs [post]
func (h *FournisseurHandler) Create(c *gin.Context) {
	var req purchasingapp.CreateFournisseurRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	fournisseur, err := h.fournisseurService.Creer(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, fournisseur)
}

// GetByID godoc
// @Summary      Get fournisseur by ID
// @Description  Retrieve a supplier by its ID
// @Tags         fournisseurs
// @Produce      json
// @Param        id path string true "Fournisseur ID" format(uuid)
// @Success      200 {object} dto.Response{data=purchasing.FournisseurResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fournisseurs/{id} [get]
func (h *FournisseurHandler) GetByID(c *gin.Context) {
	fournisseurID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid fournisseur ID format")
		return
	}

	fournisseur, err := h.fournisseurService.GetByID(c.Request.Context(), fournisseurID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, fournisseur)
}

// List godoc
// @Summary      List fournisseurs
// @Description  Retrieve a paginated list of suppliers with optional filtering
// @Tags         fournisseurs
// @Produce      json
// @Param        search query string false "Search term (nom, siret)"
// @Param        type query string false "Fournisseur type" Enums(FOURNISSEUR, SOUS_TRAITANT, LOUEUR)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(nom)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(asc)
// @Success      200 {object} dto.Response{data=[]purchasing.FournisseurResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fournisseurs [get]
func (h *FournisseurHandler) List(c *gin.Context) {
	var filter purchasingapp.FournisseurListFilter
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

	fournisseurs, total, err := h.fournisseurService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, fournisseurs, total, filter.Page, filter.PageSize)
}

// UpdateContact godoc
// @Summary      Update fournisseur contact details
// @Description  Update the email, telephone and adresse of a supplier
// @Tags         fournisseurs
// @Accept       json
// @Produce      json
// @Param        id path string true "Fournisseur ID" format(uuid)
// @Param        request body purchasing.UpdateFournisseurContactRequest true "Contact update request"
// @Success      200 {object} dto.Response{data=purchasing.FournisseurResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fournisseurs/{id}/contact [put]
func (h *FournisseurHandler) UpdateContact(c *gin.Context) {
	fournisseurID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid fournisseur ID format")
		return
	}

	var req purchasingapp.UpdateFournisseurContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	fournisseur, err := h.fournisseurService.UpdateContact(c.Request.Context(), fournisseurID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, fournisseur)
}

// Desactiver godoc
// @Summary      Deactivate a fournisseur
// @Description  Deactivate a supplier; it no longer appears in default listings
// @Tags         fournisseurs
// @Produce      json
// @Param        id path string true "Fournisseur ID" format(uuid)
// @Success      200 {object} dto.Response{data=purchasing.FournisseurResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /fournisseurs/{id}/desactiver [post]
func (h *FournisseurHandler) Desactiver(c *gin.Context) {
	fournisseurID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid fournisseur ID format")
		return
	}

	fournisseur, err := h.fournisseurService.Desactiver(c.Request.Context(), fournisseurID, getActorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, fournisseur)
}
