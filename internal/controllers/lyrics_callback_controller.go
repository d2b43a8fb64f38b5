package controllers

import (
	"github.com/osvaldoandrade/songbridge/internal/services"
	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/gin-gonic/gin"
)

type lyricsCallbackController struct{ svc services.CallbackService }

func NewLyricsCallbackController(svc services.CallbackService) *lyricsCallbackController {
	return &lyricsCallbackController{svc: svc}
}

func (h *lyricsCallbackController) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeAck(c, domain.KindLyrics, nil, err)
		return
	}
	ack, err := h.svc.ReceiveLyrics(c.Request.Context(), body)
	writeAck(c, domain.KindLyrics, ack, err)
}
