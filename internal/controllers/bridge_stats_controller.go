package controllers

import (
	"net/http"

	"github.com/osvaldoandrade/songbridge/internal/services"

	"github.com/gin-gonic/gin"
)

type bridgeStatsController struct{ svc services.StatsService }

func NewBridgeStatsController(svc services.StatsService) *bridgeStatsController {
	return &bridgeStatsController{svc: svc}
}

func (h *bridgeStatsController) Handle(c *gin.Context) {
	out, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}
