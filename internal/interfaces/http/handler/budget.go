package handler

import (
	budgetapp "github.com/chantier/backend/internal/application/budget"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BudgetHandler handles budget and engagement API endpoints
type BudgetHandler struct {
	BaseHandler
	ledgerService *budgetapp.LedgerService
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(ledgerService *budgetapp.LedgerService) *BudgetHandler {
	return &BudgetHandler{
		ledgerService: ledgerService,
	}
}

// Create godoc
// @Summary      Create a chantier budget
// @Description  Create the budget of a chantier, optionally decomposed into lots
// @Tags         budget
// @Accept       json
// @Produce      json
// @Param        request body budget.CreateBudgetRequest true "Budget creation request"
// @Success      201 {object} dto.Response{data=budget.BudgetResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /budgets [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	var req budgetapp.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	budget, err := h.ledgerService.Creer(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, budget)
}

// GetByChantier godoc
// @Summary      Get chantier budget
// @Description  Retrieve the budget of a chantier with its lots
// @Tags         budget
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Success      200 {object} dto.Response{data=budget.BudgetResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/budget [get]
func (h *BudgetHandler) GetByChantier(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	budget, err := h.ledgerService.GetByChantier(c.Request.Context(), chantierID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// AddLot godoc
// @Summary      Add a budget lot
// @Description  Add a lot to the chantier budget
// @Tags         budget
// @Accept       json
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Param        request body budget.AddLotRequest true "Lot creation request"
// @Success      200 {object} dto.Response{data=budget.BudgetResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/budget/lots [post]
func (h *BudgetHandler) AddLot(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	var req budgetapp.AddLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	budget, err := h.ledgerService.AddLot(c.Request.Context(), chantierID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// RemoveLot godoc
// @Summary      Remove a budget lot
// @Description  Remove a lot from the chantier budget
// @Tags         budget
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Param        lot_id path string true "Lot ID" format(uuid)
// @Success      200 {object} dto.Response{data=budget.BudgetResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/budget/lots/{lot_id} [delete]
func (h *BudgetHandler) RemoveLot(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	lotID, err := uuid.Parse(c.Param("lot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid lot ID format")
		return
	}

	budget, err := h.ledgerService.RemoveLot(c.Request.Context(), chantierID, lotID, getActorID(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// UpdateMontantInitial godoc
// @Summary      Update the initial budget amount
// @Description  Revise the montant initial HT of the chantier budget
// @Tags         budget
// @Accept       json
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Param        request body budget.UpdateMontantInitialRequest true "New montant initial HT"
// @Success      200 {object} dto.Response{data=budget.BudgetResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/budget/montant-initial [put]
func (h *BudgetHandler) UpdateMontantInitial(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	var req budgetapp.UpdateMontantInitialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	budget, err := h.ledgerService.UpdateMontantInitial(c.Request.Context(), chantierID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// GetEngagement godoc
// @Summary      Get chantier engagement
// @Description  Retrieve the committed-cost position of a chantier. Served from cache when fresh; a degraded flag marks stale reads.
// @Tags         budget
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Success      200 {object} dto.Response{data=budget.EngagementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/engagement [get]
func (h *BudgetHandler) GetEngagement(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	engagement, err := h.ledgerService.GetEngagement(c.Request.Context(), chantierID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, engagement)
}

// RecomputeEngagement godoc
// @Summary      Recompute chantier engagement
// @Description  Force a full recomputation of the committed-cost position from the achat ledger
// @Tags         budget
// @Produce      json
// @Param        chantier_id path string true "Chantier ID" format(uuid)
// @Success      200 {object} dto.Response{data=budget.EngagementResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /chantiers/{chantier_id}/engagement/recompute [post]
func (h *BudgetHandler) RecomputeEngagement(c *gin.Context) {
	chantierID, err := uuid.Parse(c.Param("chantier_id"))
	if err != nil {
		h.BadRequest(c, "Invalid chantier ID format")
		return
	}

	if err := h.ledgerService.RecomputeEngagement(c.Request.Context(), chantierID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	engagement, err := h.ledgerService.GetEngagement(c.Request.Context(), chantierID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, engagement)
}
