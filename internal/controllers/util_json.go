package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/osvaldoandrade/songbridge/internal/middleware"
	"github.com/osvaldoandrade/songbridge/internal/services"
	"github.com/osvaldoandrade/songbridge/pkg/domain"
)

// writeAck maps a callback outcome onto the provider-facing response.
func writeAck(c *gin.Context, kind domain.TaskKind, ack *domain.CallbackAck, err error) {
	if err == nil {
		c.JSON(http.StatusOK, ack)
		return
	}
	if errors.Is(err, services.ErrMissingTaskID) {
		middleware.LoggerFrom(c).Warn("callback missing taskId", "kind", kind)
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId is required"})
		return
	}
	middleware.LoggerFrom(c).Error("callback processing error", "kind", kind, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":       "Internal server error",
		"success":     false,
		"processedAt": domain.FormatProcessedAt(time.Now()),
	})
}

func failure(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg, "success": false})
}
