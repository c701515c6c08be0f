package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/crm-service/internal/model"
	"github.com/psds-microservice/crm-service/internal/service"
)

type SettingsHandler struct {
	svc   *service.SettingsService
	stats *service.StatsService
}

func NewSettingsHandler(svc *service.SettingsService, stats *service.StatsService) *SettingsHandler {
	return &SettingsHandler{svc: svc, stats: stats}
}

func (h *SettingsHandler) GetSupport(c *gin.Context) {
	s, err := h.svc.Support(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *SettingsHandler) PutSupport(c *gin.Context) {
	var req model.SupportSettings
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.svc.SaveSupport(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Stats — счётчики для дашборда.
func (h *SettingsHandler) Stats(c *gin.Context) {
	s, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
