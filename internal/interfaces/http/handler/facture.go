package handler

import (
	billingapp "github.com/chantier/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FactureHandler handles client invoice API endpoints
type FactureHandler struct {
	BaseHandler
	factureService *billingapp.FactureService
}

// NewFactureHandler creates a new FactureHandler
func NewFactureHandler(factureService *billingapp.FactureService) *FactureHandler {
	return &FactureHandler{
		factureService: factureService,
	}
}

// Emettre godoc
// @Summary      Issue a facture
// @Description  Issue a client invoice from a situation de travaux. One facture per situation.
// @Tags         factures
// @Accept       json
// @Produce      json
// @Param        request body billing.EmettreFactureRequest true "Facture emission request"
// @Success      201 {object} dto.Response{data=billing.FactureResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /factures [post]
func (h *FactureHandler) Emettre(c *gin.Context) {
	var req billingapp.EmettreFactureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	facture, err := h.factureService.Emettre(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, facture)
}

// GetByID godoc
// @Summary      Get facture by ID
// @Description  Retrieve a client invoice by its ID
// @Tags         factures
// @Produce      json
// @Param        id path string true "Facture ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.FactureResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /factures/{id} [get]
func (h *FactureHandler) GetByID(c *gin.Context) {
	factureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid facture ID format")
		return
	}

	facture, err := h.factureService.GetByID(c.Request.Context(), factureID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, facture)
}

// ListByChantier godoc
// @Summary      List factures of a chantier
// @Description  Retrieve the client invoices of a chantier
// @Tags         factures
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Param        statut query string false "Facture status" Enums(EMISE, PAYEE, ANNULEE)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]billing.FactureResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/factures [get]
func (h *FactureHandler) ListByChantier(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	var filter billingapp.FactureListFilter
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

	factures, total, err := h.factureService.ListByChantier(c.Request.Context(), chantierID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, factures, total, filter.Page, filter.PageSize)
}

// MarquerPayee godoc
// @Summary      Mark facture as paid
// @Description  Record the payment of an issued invoice
// @Tags         factures
// @Accept       json
// @Produce      json
// @Param        id path string true "Facture ID" format(uuid)
// @Param        request body billing.PayerFactureRequest true "Payment date"
// @Success      200 {object} dto.Response{data=billing.FactureResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /factures/{id}/payer [post]
func (h *FactureHandler) MarquerPayee(c *gin.Context) {
	factureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid facture ID format")
		return
	}

	var req billingapp.PayerFactureRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}
	req.ActorID = getActorID(c)

	facture, err := h.factureService.MarquerPayee(c.Request.Context(), factureID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, facture)
}

// Annuler godoc
// @Summary      Cancel a facture
// @Description  Cancel an issued invoice. Paid invoices cannot be cancelled.
// @Tags         factures
// @Produce      json
// @Param        id path string true "Facture ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.FactureResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /factures/{id}/annuler [post]
func (h *FactureHandler) Annuler(c *gin.Context) {
	factureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid facture ID format")
		return
	}

	facture, err := h.factureService.Annuler(c.Request.Context(), factureID, getActorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, facture)
}
