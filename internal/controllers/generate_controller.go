package controllers

import (
	"errors"
	"net/http"

	"github.com/osvaldoandrade/songbridge/internal/middleware"
	"github.com/osvaldoandrade/songbridge/internal/services"
	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/gin-gonic/gin"
)

type generateMusicController struct{ svc services.GenerationService }

func NewGenerateMusicController(svc services.GenerationService) *generateMusicController {
	return &generateMusicController{svc: svc}
}

func (h *generateMusicController) Handle(c *gin.Context) {
	var req domain.GenerateMusicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid body")
		return
	}
	tk, err := h.svc.GenerateMusic(c.Request.Context(), req)
	respondTicket(c, "music", tk, err)
}

type generateLyricsController struct{ svc services.GenerationService }

func NewGenerateLyricsController(svc services.GenerationService) *generateLyricsController {
	return &generateLyricsController{svc: svc}
}

func (h *generateLyricsController) Handle(c *gin.Context) {
	var req domain.GenerateLyricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "Please provide a prompt for lyrics generation")
		return
	}
	tk, err := h.svc.GenerateLyrics(c.Request.Context(), req)
	if errors.Is(err, services.ErrEmptyPrompt) {
		failure(c, http.StatusBadRequest, "Please provide a prompt for lyrics generation")
		return
	}
	respondTicket(c, "lyrics", tk, err)
}

type generateCoverController struct{ svc services.GenerationService }

func NewGenerateCoverController(svc services.GenerationService) *generateCoverController {
	return &generateCoverController{svc: svc}
}

func (h *generateCoverController) Handle(c *gin.Context) {
	var req domain.GenerateCoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "Prompt is required and must be a non-empty string")
		return
	}
	tk, err := h.svc.GenerateCover(c.Request.Context(), req)
	if errors.Is(err, services.ErrEmptyPrompt) {
		failure(c, http.StatusBadRequest, "Prompt is required and must be a non-empty string")
		return
	}
	respondTicket(c, "cover", tk, err)
}

func respondTicket(c *gin.Context, what string, tk *domain.GenerationTicket, err error) {
	if err != nil {
		middleware.LoggerFrom(c).Error(what+" generation error", "err", err)
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tk})
}
