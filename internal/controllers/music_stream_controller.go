package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/osvaldoandrade/songbridge/internal/middleware"
	"github.com/osvaldoandrade/songbridge/internal/services"
	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

const connectedMessage = "Waiting for music generation completion..."

type musicStreamController struct{ svc services.DispatcherService }

func NewMusicStreamController(svc services.DispatcherService) *musicStreamController {
	return &musicStreamController{svc: svc}
}

// Handle holds an event stream open for one task. The first frame confirms the
// subscription; at most one more frame follows, after which the stream ends.
// The stream stays open until delivery or client disconnect.
func (h *musicStreamController) Handle(c *gin.Context) {
	taskID := strings.TrimSpace(c.Query("taskId"))
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId is required"})
		return
	}
	sub, err := h.svc.Subscribe(taskID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer h.svc.Unsubscribe(sub)

	logger := middleware.LoggerFrom(c).With("task_id", taskID)

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	hello, _ := json.Marshal(domain.Notification{
		Type:    domain.EventConnected,
		TaskID:  taskID,
		Message: connectedMessage,
	})
	if err := writeFrame(w, hello); err != nil {
		logger.Warn("stream write failed", "err", err)
		return
	}

	select {
	case payload, ok := <-sub.Events():
		if !ok {
			logger.Info("stream closed without event")
			return
		}
		if err := writeFrame(w, payload); err != nil {
			logger.Warn("stream write failed", "err", err)
		}
	case <-c.Request.Context().Done():
		logger.Info("stream client disconnected")
	}
}

func writeFrame(w gin.ResponseWriter, payload []byte) error {
	if err := sse.Encode(w, sse.Event{Data: string(payload)}); err != nil {
		return err
	}
	w.Flush()
	return nil
}
