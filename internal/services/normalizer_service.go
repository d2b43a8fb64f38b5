package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/domain"
)

const (
	msgMusicFailed      = "Music generation failed"
	msgLyricsFailed     = "Lyrics generation failed"
	msgLyricsAllFailed  = "All lyrics generation attempts failed"
	lyricsVariantOK     = "complete"
	lyricsCallbackFinal = "complete"
)

// NormalizerService turns provider callback bodies into notification events and stored results.
type NormalizerService interface {
	// NormalizeMusic returns nil, nil for intermediate stages that carry no result.
	NormalizeMusic(cb domain.MusicCallback) (*domain.Notification, error)
	NormalizeLyrics(cb domain.LyricsCallback) (*domain.Notification, error)
	NormalizeCover(cb domain.CoverCallback, at time.Time) (domain.CoverResult, error)
}

type normalizerService struct{}

func NewNormalizerService() NormalizerService {
	return normalizerService{}
}

type musicResponse struct {
	SunoData []map[string]any `json:"sunoData"`
	Data     []map[string]any `json:"data"`
}

func (normalizerService) NormalizeMusic(cb domain.MusicCallback) (*domain.Notification, error) {
	taskID := cb.TaskID.String()
	switch {
	case cb.Type == domain.StageComplete && cb.Status == domain.ProviderStatusSuccess:
		tracks, err := musicTracks(cb.Data)
		if err != nil {
			return nil, err
		}
		if len(tracks) == 0 {
			return musicError(taskID), nil
		}
		return &domain.Notification{
			Type:   domain.EventComplete,
			TaskID: taskID,
			Status: domain.ProviderStatusSuccess,
			Music:  tracks,
			Count:  len(tracks),
		}, nil
	case cb.Type == domain.StageError || cb.Status == domain.ProviderStatusFailure:
		return musicError(taskID), nil
	}
	return nil, nil
}

func musicError(taskID string) *domain.Notification {
	return &domain.Notification{
		Type:   domain.EventError,
		TaskID: taskID,
		Status: domain.ProviderStatusFailure,
		Error:  msgMusicFailed,
	}
}

// musicTracks reads the track list from data.response, which arrives either as an
// object or as a string holding the JSON of one. sunoData wins over data when present.
func musicTracks(body json.RawMessage) ([]map[string]any, error) {
	if isNull(body) {
		return nil, nil
	}
	var data domain.MusicCallbackData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode music callback data: %w", err)
	}
	if isNull(data.Response) {
		return nil, nil
	}
	raw := []byte(data.Response)
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("decode music response string: %w", err)
		}
		if encoded == "" {
			return nil, nil
		}
		raw = []byte(encoded)
	}
	var resp musicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode music response: %w", err)
	}
	if resp.SunoData != nil {
		return resp.SunoData, nil
	}
	return resp.Data, nil
}

func (normalizerService) NormalizeLyrics(cb domain.LyricsCallback) (*domain.Notification, error) {
	var data domain.LyricsCallbackData
	if !isNull(cb.Data) {
		if err := json.Unmarshal(cb.Data, &data); err != nil {
			return nil, fmt.Errorf("decode lyrics callback data: %w", err)
		}
	}
	taskID := data.TaskID.String()
	fail := func(msg string) *domain.Notification {
		return &domain.Notification{
			Type:   domain.EventLyricsError,
			TaskID: taskID,
			Status: domain.ProviderStatusFailure,
			Error:  msg,
		}
	}
	providerMsg := cb.Msg.String()
	if providerMsg == "" {
		providerMsg = msgLyricsFailed
	}

	if !isCode(cb.Code, 200) || data.CallbackType != lyricsCallbackFinal || len(data.Data) == 0 {
		return fail(providerMsg), nil
	}
	for _, v := range data.Data {
		if v.Status == lyricsVariantOK {
			return &domain.Notification{
				Type:   domain.EventLyricsComplete,
				TaskID: taskID,
				Status: domain.ProviderStatusSuccess,
				Lyrics: &domain.LyricsText{Title: v.Title, Text: v.Text},
			}, nil
		}
	}
	return fail(msgLyricsAllFailed), nil
}

func (normalizerService) NormalizeCover(cb domain.CoverCallback, at time.Time) (domain.CoverResult, error) {
	rec := domain.CoverResult{
		Code:      domain.CoverCodeSuccess,
		Msg:       cb.Msg.String(),
		Timestamp: at.UnixMilli(),
	}
	if n, ok := cb.Code.(json.Number); ok {
		if v, err := n.Int64(); err == nil && v != 0 {
			rec.Code = int(v)
		}
	}
	if rec.Msg == "" {
		rec.Msg = "success"
	}
	if !isNull(cb.Data) {
		var data domain.CoverCallbackData
		if err := json.Unmarshal(cb.Data, &data); err != nil {
			return domain.CoverResult{}, fmt.Errorf("decode cover callback data: %w", err)
		}
		rec.Data.TaskID = data.TaskID.String()
		rec.Data.Images = data.Images
	}
	return rec, nil
}

// isCode reports whether code is the JSON number want. A string "200" is not success.
func isCode(code any, want int64) bool {
	n, ok := code.(json.Number)
	if !ok {
		return false
	}
	if v, err := n.Int64(); err == nil {
		return v == want
	}
	f, err := n.Float64()
	return err == nil && f == float64(want)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
