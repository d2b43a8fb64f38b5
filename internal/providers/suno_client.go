package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/osvaldoandrade/songbridge/internal/metrics"
	"github.com/osvaldoandrade/songbridge/internal/tracing"
	"github.com/osvaldoandrade/songbridge/pkg/domain"
)

const (
	pathGenerate   = "/api/v1/generate"
	pathLyrics     = "/api/v1/lyrics"
	pathCover      = "/api/v1/generate/cover"
	pathRecordInfo = "/api/v1/generate/record-info"
)

var ErrProviderRejected = errors.New("provider rejected request")

// SunoClient talks to the generation provider. Every generate call returns the
// provider task id; results arrive later on the configured callback URL.
type SunoClient interface {
	GenerateMusic(ctx context.Context, params domain.MusicParams) (string, error)
	GenerateLyrics(ctx context.Context, prompt, callbackURL string) (string, error)
	GenerateCover(ctx context.Context, prompt, callbackURL string) (string, error)
	RecordInfo(ctx context.Context, taskID string) (json.RawMessage, error)
}

type sunoClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewSunoClient(baseURL, apiKey string, timeout time.Duration) SunoClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &sunoClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// envelope is the provider's common response wrapper.
type envelope struct {
	Code json.Number     `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type taskData struct {
	TaskID string `json:"taskId"`
}

func (c *sunoClient) GenerateMusic(ctx context.Context, params domain.MusicParams) (string, error) {
	return c.submit(ctx, "generate_music", pathGenerate, params)
}

func (c *sunoClient) GenerateLyrics(ctx context.Context, prompt, callbackURL string) (string, error) {
	return c.submit(ctx, "generate_lyrics", pathLyrics, map[string]string{
		"prompt":      prompt,
		"callBackUrl": callbackURL,
	})
}

func (c *sunoClient) GenerateCover(ctx context.Context, prompt, callbackURL string) (string, error) {
	return c.submit(ctx, "generate_cover", pathCover, map[string]string{
		"prompt":      prompt,
		"callBackUrl": callbackURL,
	})
}

// RecordInfo returns the provider's status document for taskID unchanged.
func (c *sunoClient) RecordInfo(ctx context.Context, taskID string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("taskId", taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathRecordInfo+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, "record_info")
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		metrics.ProviderRequestsTotal.WithLabelValues("record_info", "failure").Inc()
		return nil, fmt.Errorf("record info: invalid JSON response")
	}
	metrics.ProviderRequestsTotal.WithLabelValues("record_info", "success").Inc()
	return json.RawMessage(body), nil
}

func (c *sunoClient) submit(ctx context.Context, op, path string, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req, op)
	if err != nil {
		return "", err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "failure").Inc()
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if code, _ := env.Code.Int64(); code != http.StatusOK {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "rejected").Inc()
		msg := env.Msg
		if msg == "" {
			msg = "Unknown error"
		}
		return "", fmt.Errorf("%w (%s): %s", ErrProviderRejected, env.Code.String(), msg)
	}
	var data taskData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(op, "failure").Inc()
			return "", fmt.Errorf("%s: decode task data: %w", op, err)
		}
	}
	if data.TaskID == "" {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "failure").Inc()
		return "", fmt.Errorf("%s: response has no taskId", op)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(op, "success").Inc()
	return data.TaskID, nil
}

// do sends req with auth and trace headers and returns the body of a 2xx response.
func (c *sunoClient) do(req *http.Request, op string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	tracing.InjectHeaders(req.Context(), req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "failure").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "failure").Inc()
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ProviderRequestsTotal.WithLabelValues(op, "failure").Inc()
		return nil, fmt.Errorf("%s: %s - %s", op, resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
