package handler

import (
	"context"

	purchasingapp "github.com/chantier/backend/internal/application/purchasing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AchatHandler handles purchase-related API endpoints
type AchatHandler struct {
	BaseHandler
	achatService *purchasingapp.AchatService
}

// NewAchatHandler creates a new AchatHandler
func NewAchatHandler(achatService *purchasingapp.AchatService) *AchatHandler {
	return &AchatHandler{
		achatService: achatService,
	}
}

// Create godoc
// @Summary      Create a new achat
// @Description  Register a purchase in DEMANDE state for a chantier
// @Tags         achats
// @Accept       json
// @Produce      json
// @Param        request body purchasing.CreateAchatRequest true "Achat creation request"
// @Success      201 {object} dto.Response{data=purchasing.AchatResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats [post]
func (h *AchatHandler) Create(c *gin.Context) {
	var req purchasingapp.CreateAchatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	achat, err := h.achatService.Creer(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, achat)
}

// GetByID godoc
// @Summary      Get achat by ID
// @Description  Retrieve a purchase by its ID
// @Tags         achats
// @Produce      json
// @Param        id path string true "Achat ID" format(uuid)
// @Success      200 {object} dto.Response{data=purchasing.AchatResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats/{id} [get]
func (h *AchatHandler) GetByID(c *gin.Context) {
	achatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid achat ID format")
		return
	}

	achat, err := h.achatService.GetByID(c.Request.Context(), achatID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, achat)
}

// GetByNumero godoc
// @Summary      Get achat by numero
// @Description  Retrieve a purchase by its sequential numero (e.g. ACH-2026-00042)
// @Tags         achats
// @Produce      json
// @Param        numero path string true "Achat numero"
// @Success      200 {object} dto.Response{data=purchasing.AchatResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats/numero/{numero} [get]
func (h *AchatHandler) GetByNumero(c *gin.Context) {
	numero := c.Param("numero")
	if numero == "" {
		h.BadRequest(c, "Achat numero is required")
		return
	}

	achat, err := h.achatService.GetByNumero(c.Request.Context(), numero)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, achat)
}

// List godoc
// @Summary      List achats
// @Description  Retrieve a paginated list of purchases with optional filtering
// @Tags         achats
// @Produce      json
// @Param        search query string false "Search term (numero, designation)"
// @Param        chantier_id query string false "Chantier ID" format(uuid)
// @Param        fournisseur_id query string false "Fournisseur ID" format(uuid)
// @Param        statut query string false "Achat status" Enums(BROUILLON, COMMANDE, LIVRE, FACTURE, PAYE, ANNULE)
// @Param        type_achat query string false "Achat type" Enums(MATERIAUX, LOCATION, SOUS_TRAITANCE, FRAIS_GENERAUX)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]purchasing.AchatResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats [get]
func (h *AchatHandler) List(c *gin.Context) {
	var filter purchasingapp.AchatListFilter
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

	achats, total, err := h.achatService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, achats, total, filter.Page, filter.PageSize)
}

// ListByChantier godoc
// @Summary      List achats of a chantier
// @Description  Retrieve a paginated list of purchases scoped to one chantier
// @Tags         achats
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Param        statut query string false "Achat status" Enums(BROUILLON, COMMANDE, LIVRE, FACTURE, PAYE, ANNULE)
// @Param        type_achat query string false "Achat type" Enums(MATERIAUX, LOCATION, SOUS_TRAITANCE, FRAIS_GENERAUX)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]purchasing.AchatResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/achats [get]
func (h *AchatHandler) ListByChantier(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	var filter purchasingapp.AchatListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	achats, total, err := h.achatService.ListByChantier(c.Request.Context(), chantierID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, achats, total, filter.Page, filter.PageSize)
}

// ConfirmerCommande godoc
// @Summary      Confirm an achat order
// @Description  Transition a BROUILLON achat to COMMANDE, binding it to a fournisseur
// @Tags         achats
// @Accept       json
// @Produce      json
// @Param        id path string true "Achat ID" format(uuid)
// @Param        request body purchasing.ConfirmerCommandeRequest true "Order confirmation request"
// @Success      200 {object} dto.Response{data=purchasing.AchatResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats/{id}/commander [post]
func (h *AchatHandler) ConfirmerCommande(c *gin.Context) {
	achatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid achat ID format")
		return
	}

	var req purchasingapp.ConfirmerCommandeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	achat, err := h.achatService.ConfirmerCommande(c.Request.Context(), achatID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, achat)
}

// MarquerLivre godoc
// @Summary      Mark achat as delivered
// @Description  Transition a COMMANDE achat to LIVRE
// @Tags         achats
// @Accept       json
// @Produce      json
// @Param        id path string true "Achat ID" format(uuid)
// @Param        request body purchasing.TransitionAchatRequest true "Delivery date"
// @Success      200 {object} dto.Response{data=purchasing.AchatResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats/{id}/livrer [post]
func (h *AchatHandler) MarquerLivre(c *gin.Context) {
	h.transition(c, h.achatService.MarquerLivre)
}

// MarquerFacture godoc
// @Summary      Mark achat as invoiced
// @Description  Transition a LIVRE achat to FACTURE
// @Tags         achats
// @Accept       json
// @Produce      json
// @Param        id path string true "Achat ID" format(uuid)
// @Param        request body purchasing.TransitionAchatRequest true "Invoice date"
// @Success      200 {object} dto.Response{data=purchasing.AchatResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats/{id}/facturer [post]
func (h *AchatHandler) MarquerFacture(c *gin.Context) {
	h.transition(c, h.achatService.MarquerFacture)
}

// MarquerPaye godoc
// @Summary      Mark achat as paid
// @Description  Transition a FACTURE achat to PAYE
// @Tags         achats
// @Accept       json
// @Produce      json
// @Param        id path string true "Achat ID" format(uuid)
// @Param        request body purchasing.TransitionAchatRequest true "Payment date"
// @Success      200 {object} dto.Response{data=purchasing.AchatResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats/{id}/payer [post]
func (h *AchatHandler) MarquerPaye(c *gin.Context) {
	h.transition(c, h.achatService.MarquerPaye)
}

// Annuler godoc
// @Summary      Cancel an achat
// @Description  Transition an achat to ANNULE with a mandatory motif. PAYE achats cannot be cancelled.
// @Tags         achats
// @Accept       json
// @Produce      json
// @Param        id path string true "Achat ID" format(uuid)
// @Param        request body purchasing.AnnulerAchatRequest true "Cancellation motif"
// @Success      200 {object} dto.Response{data=purchasing.AchatResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats/{id}/annuler [post]
func (h *AchatHandler) Annuler(c *gin.Context) {
	achatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid achat ID format")
		return
	}

	var req purchasingapp.AnnulerAchatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	achat, err := h.achatService.Annuler(c.Request.Context(), achatID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, achat)
}

// DefinirTauxTVA godoc
// @Summary      Set achat VAT rate
// @Description  Override the VAT rate of an achat (10%, 20% or custom)
// @Tags         achats
// @Accept       json
// @Produce      json
// @Param        id path string true "Achat ID" format(uuid)
// @Param        request body purchasing.DefinirTauxTVARequest true "VAT rate"
// @Success      200 {object} dto.Response{data=purchasing.AchatResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /achats/{id}/taux-tva [put]
func (h *AchatHandler) DefinirTauxTVA(c *gin.Context) {
	achatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid achat ID format")
		return
	}

	var req purchasingapp.DefinirTauxTVARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	achat, err := h.achatService.DefinirTauxTVA(c.Request.Context(), achatID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, achat)
}

// transition factors the shared shape of the livrer/facturer/payer endpoints.
// The body is optional; an empty body means "now".
func (h *AchatHandler) transition(c *gin.Context, fn func(ctx context.Context, achatID uuid.UUID, req purchasingapp.TransitionAchatRequest) (*purchasingapp.AchatResponse, error)) {
	achatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid achat ID format")
		return
	}

	var req purchasingapp.TransitionAchatRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}
	req.ActorID = getActorID(c)

	achat, err := fn(c.Request.Context(), achatID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, achat)
}
