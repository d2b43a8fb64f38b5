package controllers

import (
	"net/http"
	"strings"

	"github.com/osvaldoandrade/songbridge/internal/middleware"
	"github.com/osvaldoandrade/songbridge/internal/services"

	"github.com/gin-gonic/gin"
)

type taskStatusController struct{ svc services.GenerationService }

func NewTaskStatusController(svc services.GenerationService) *taskStatusController {
	return &taskStatusController{svc: svc}
}

func (h *taskStatusController) Handle(c *gin.Context) {
	taskID := strings.TrimSpace(c.Param("taskId"))
	if taskID == "" {
		failure(c, http.StatusBadRequest, "Task ID cannot be empty")
		return
	}
	raw, err := h.svc.Status(c.Request.Context(), taskID)
	if err != nil {
		middleware.LoggerFrom(c).Error("get status error", "task_id", taskID, "err", err)
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": raw})
}
