package controllers

import (
	"net/http"
	"strings"

	"github.com/osvaldoandrade/songbridge/internal/services"

	"github.com/gin-gonic/gin"
)

type coverStatusController struct{ svc services.CoverService }

func NewCoverStatusController(svc services.CoverService) *coverStatusController {
	return &coverStatusController{svc: svc}
}

func (h *coverStatusController) Handle(c *gin.Context) {
	taskID := strings.TrimSpace(c.Param("taskId"))
	if taskID == "" {
		failure(c, http.StatusBadRequest, "Task ID cannot be empty")
		return
	}
	rec, err := h.svc.Latest(c.Request.Context(), taskID)
	if err != nil {
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}
