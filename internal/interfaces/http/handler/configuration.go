package handler

import (
	"strconv"

	companyapp "github.com/chantier/backend/internal/application/company"
	"github.com/gin-gonic/gin"
)

// ConfigurationHandler handles company configuration API endpoints
type ConfigurationHandler struct {
	BaseHandler
	configurationService *companyapp.ConfigurationService
}

// NewConfigurationHandler creates a new ConfigurationHandler
func NewConfigurationHandler(configurationService *companyapp.ConfigurationService) *ConfigurationHandler {
	return &ConfigurationHandler{
		configurationService: configurationService,
	}
}

// Upsert godoc
// @Summary      Upsert a fiscal year configuration
// @Description  Create or replace the company configuration for a fiscal year (coefficients, alert thresholds)
// @Tags         configurations
// @Accept       json
// @Produce      json
// @Param        request body company.UpsertConfigurationRequest true "Configuration upsert request"
// @Success      200 {object} dto.Response{data=company.ConfigurationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /configurations [put]
func (h *ConfigurationHandler) Upsert(c *gin.Context) {
	var req companyapp.UpsertConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	configuration, err := h.configurationService.Upsert(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, configuration)
}

// GetByAnnee godoc
// @Summary      Get configuration by fiscal year
// @Description  Retrieve the company configuration of a given fiscal year
// @Tags         configurations
// @Produce      json
// @Param        annee path int true "Fiscal year" example(2026)
// @Success      200 {object} dto.Response{data=company.ConfigurationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /configurations/{annee} [get]
func (h *ConfigurationHandler) GetByAnnee(c *gin.Context) {
	annee, err := strconv.Atoi(c.Param("annee"))
	if err != nil {
		h.BadRequest(c, "Invalid fiscal year")
		return
	}

	configuration, err := h.configurationService.GetByAnnee(c.Request.Context(), annee)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, configuration)
}

// GetCourante godoc
// @Summary      Get current configuration
// @Description  Retrieve the company configuration applicable today, falling back to the most recent year
// @Tags         configurations
// @Produce      json
// @Success      200 {object} dto.Response{data=company.ConfigurationResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /configurations/courante [get]
func (h *ConfigurationHandler) GetCourante(c *gin.Context) {
	configuration, err := h.configurationService.GetCourante(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, configuration)
}

// List godoc
// @Summary      List configurations
// @Description  Retrieve all fiscal year configurations, most recent first
// @Tags         configurations
// @Produce      json
// @Success      200 {object} dto.Response{data=[]company.ConfigurationResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /configurations [get]
func (h *ConfigurationHandler) List(c *gin.Context) {
	configurations, err := h.configurationService.List(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, configurations)
}
