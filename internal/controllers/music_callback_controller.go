package controllers

import (
	"github.com/osvaldoandrade/songbridge/internal/services"
	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/gin-gonic/gin"
)

type musicCallbackController struct{ svc services.CallbackService }

func NewMusicCallbackController(svc services.CallbackService) *musicCallbackController {
	return &musicCallbackController{svc: svc}
}

func (h *musicCallbackController) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeAck(c, domain.KindMusic, nil, err)
		return
	}
	ack, err := h.svc.ReceiveMusic(c.Request.Context(), body)
	writeAck(c, domain.KindMusic, ack, err)
}
