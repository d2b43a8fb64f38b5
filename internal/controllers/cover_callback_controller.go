package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/osvaldoandrade/songbridge/internal/middleware"
	"github.com/osvaldoandrade/songbridge/internal/services"

	"github.com/gin-gonic/gin"
)

type coverCallbackController struct {
	callbacks services.CallbackService
	covers    services.CoverService
}

func NewCoverCallbackController(callbacks services.CallbackService, covers services.CoverService) *coverCallbackController {
	return &coverCallbackController{callbacks: callbacks, covers: covers}
}

// Handle stores a cover result posted by the provider.
func (h *coverCallbackController) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process cover callback"})
		return
	}
	ack, err := h.callbacks.ReceiveCover(c.Request.Context(), body)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, ack)
	case errors.Is(err, services.ErrMissingTaskID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback data: missing taskId"})
	default:
		middleware.LoggerFrom(c).Error("cover callback processing error", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process cover callback"})
	}
}

// Poll returns the latest stored cover result, or the in-progress placeholder.
func (h *coverCallbackController) Poll(c *gin.Context) {
	taskID := strings.TrimSpace(c.Query("taskId"))
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId parameter is required"})
		return
	}
	rec, err := h.covers.Latest(c.Request.Context(), taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get cover result"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
