package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/songbridge/internal/providers"
	"github.com/osvaldoandrade/songbridge/pkg/domain"
)

var ErrEmptyPrompt = errors.New("prompt is required")

// CallbackURLs are the addresses the provider reports back to, one per task kind.
type CallbackURLs struct {
	Music  string
	Lyrics string
	Cover  string
}

// GenerationService starts provider tasks. With mock enabled no provider call is made
// and a local task id is minted, which lets the stream and callback endpoints be
// exercised without spending credits.
type GenerationService interface {
	GenerateMusic(ctx context.Context, req domain.GenerateMusicRequest) (*domain.GenerationTicket, error)
	GenerateLyrics(ctx context.Context, req domain.GenerateLyricsRequest) (*domain.GenerationTicket, error)
	GenerateCover(ctx context.Context, req domain.GenerateCoverRequest) (*domain.GenerationTicket, error)
	Status(ctx context.Context, taskID string) (json.RawMessage, error)
}

type generationService struct {
	client    providers.SunoClient
	callbacks CallbackURLs
	mock      bool
	logger    *slog.Logger
}

func NewGenerationService(client providers.SunoClient, callbacks CallbackURLs, mock bool, logger *slog.Logger) GenerationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &generationService{client: client, callbacks: callbacks, mock: mock, logger: logger}
}

func (s *generationService) GenerateMusic(ctx context.Context, req domain.GenerateMusicRequest) (*domain.GenerationTicket, error) {
	params := BuildMusicParams(req, s.callbacks.Music)
	s.logger.Info("music generation requested", "mode", req.Mode, "custom_mode", params.CustomMode, "instrumental", params.Instrumental)
	if s.mock {
		return s.mockTicket(domain.KindMusic), nil
	}
	taskID, err := s.client.GenerateMusic(ctx, params)
	if err != nil {
		return nil, err
	}
	return ticket(taskID), nil
}

func (s *generationService) GenerateLyrics(ctx context.Context, req domain.GenerateLyricsRequest) (*domain.GenerationTicket, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if s.mock {
		return s.mockTicket(domain.KindLyrics), nil
	}
	taskID, err := s.client.GenerateLyrics(ctx, prompt, s.callbacks.Lyrics)
	if err != nil {
		return nil, err
	}
	return ticket(taskID), nil
}

func (s *generationService) GenerateCover(ctx context.Context, req domain.GenerateCoverRequest) (*domain.GenerationTicket, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if s.mock {
		return s.mockTicket(domain.KindCover), nil
	}
	taskID, err := s.client.GenerateCover(ctx, prompt, s.callbacks.Cover)
	if err != nil {
		return nil, err
	}
	return ticket(taskID), nil
}

func (s *generationService) Status(ctx context.Context, taskID string) (json.RawMessage, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, ErrMissingTaskID
	}
	if s.mock {
		return json.RawMessage(`{"code":200,"msg":"success","data":{"taskId":` + quote(taskID) + `,"status":"PENDING"}}`), nil
	}
	return s.client.RecordInfo(ctx, taskID)
}

func (s *generationService) mockTicket(kind domain.TaskKind) *domain.GenerationTicket {
	id := "mock-task-" + uuid.NewString()
	s.logger.Info("mock task minted", "kind", kind, "task_id", id)
	return ticket(id)
}

func ticket(taskID string) *domain.GenerationTicket {
	return &domain.GenerationTicket{TaskID: taskID, Status: domain.TicketGenerating}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
