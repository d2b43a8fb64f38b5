package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/config"
	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig(providerURL string) *config.Config {
	return &config.Config{
		Port:                          0,
		LogLevel:                      "error",
		LogFormat:                     "json",
		Env:                           "test",
		PersistenceProvider:           "memory",
		ProviderBaseURL:               providerURL,
		ProviderAPIKey:                "test-key",
		ProviderTimeoutSeconds:        5,
		MusicCallbackURL:              "https://studio.example/api/suno-callback",
		LyricsCallbackURL:             "https://studio.example/api/lyrics-callback",
		CoverCallbackURL:              "https://studio.example/api/cover-callback",
		ProcessedClearThreshold:       1000,
		ProcessedSweepIntervalSeconds: 3600,
		CoverResultRetentionSeconds:   3600,
		ShutdownDrainSeconds:          2,
	}
}

func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/generate":
			_, _ = io.WriteString(w, `{"code":200,"msg":"success","data":{"taskId":"music-1"}}`)
		case "/api/v1/generate/cover":
			_, _ = io.WriteString(w, `{"code":200,"msg":"success","data":{"taskId":"cover-1"}}`)
		case "/api/v1/generate/record-info":
			_, _ = io.WriteString(w, `{"code":200,"data":{"taskId":"`+r.URL.Query().Get("taskId")+`","status":"PENDING"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func startApp(t *testing.T, cfg *config.Config, opts ...ApplicationOption) *httptest.Server {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	app, err := NewApplication(cfg, opts...)
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	SetupMappings(app)
	server := httptest.NewServer(app.Engine)
	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = app.Close(ctx)
	})
	return server
}

func TestHTTPIntegrationMusicFlow(t *testing.T) {
	provider := fakeProvider(t)
	server := startApp(t, testConfig(provider.URL))

	var gen struct {
		Success bool                    `json:"success"`
		Data    domain.GenerationTicket `json:"data"`
	}
	postJSON(t, server.URL+"/api/generate-music", `{"mode":"basic","mood":"chill"}`, http.StatusOK, &gen)
	if !gen.Success || gen.Data.TaskID != "music-1" || gen.Data.Status != "generating" {
		t.Fatalf("generate = %+v", gen)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/music-stream?taskId=music-1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	events := readEvents(resp.Body)

	if ev := nextEvent(t, events); ev.Type != domain.EventConnected {
		t.Fatalf("first event = %+v", ev)
	}

	// intermediate stages produce no event
	postJSON(t, server.URL+"/api/suno-callback", `{"taskId":"music-1","status":"PENDING","type":"text"}`, http.StatusOK, nil)

	callback := `{"taskId":"music-1","status":"SUCCESS","type":"complete","data":{"response":"{\"sunoData\":[{\"id\":\"a\",\"audioUrl\":\"https://cdn/a.mp3\"},{\"id\":\"b\"}]}"}}`
	var ack map[string]any
	postJSON(t, server.URL+"/api/suno-callback", callback, http.StatusOK, &ack)
	if ack["success"] != true || ack["message"] != "Callback received" || ack["taskId"] != "music-1" {
		t.Fatalf("ack = %v", ack)
	}

	ev := nextEvent(t, events)
	if ev.Type != domain.EventComplete || ev.Count != 2 || ev.Music[0]["audioUrl"] != "https://cdn/a.mp3" {
		t.Fatalf("complete event = %+v", ev)
	}
	if _, open := <-events; open {
		t.Fatal("stream should close after the terminal event")
	}

	postJSON(t, server.URL+"/api/suno-callback", callback, http.StatusOK, &ack)
	if ack["message"] != "Already processed" {
		t.Fatalf("duplicate ack = %v", ack)
	}

	var status map[string]any
	getJSON(t, server.URL+"/api/status/music-1", http.StatusOK, &status)
	if status["success"] != true {
		t.Fatalf("status = %v", status)
	}
}

func TestHTTPIntegrationCoverFlow(t *testing.T) {
	provider := fakeProvider(t)
	server := startApp(t, testConfig(provider.URL))

	var gen struct {
		Data domain.GenerationTicket `json:"data"`
	}
	postJSON(t, server.URL+"/api/generate-cover", `{"prompt":"sunset over the bay"}`, http.StatusOK, &gen)
	if gen.Data.TaskID != "cover-1" {
		t.Fatalf("generate cover = %+v", gen)
	}

	var pending domain.CoverResult
	getJSON(t, server.URL+"/api/cover-callback?taskId=cover-1", http.StatusOK, &pending)
	if pending.Code != 202 || pending.Data.Images != nil {
		t.Fatalf("pending = %+v", pending)
	}

	postJSON(t, server.URL+"/api/cover-callback", `{"code":200,"msg":"success","data":{"taskId":"cover-1","images":["https://cdn/1.png"]}}`, http.StatusOK, nil)

	var wrapped struct {
		Success bool               `json:"success"`
		Data    domain.CoverResult `json:"data"`
	}
	getJSON(t, server.URL+"/api/cover-status/cover-1", http.StatusOK, &wrapped)
	if !wrapped.Success || wrapped.Data.Code != 200 || len(wrapped.Data.Data.Images) != 1 || wrapped.Data.Timestamp == 0 {
		t.Fatalf("cover status = %+v", wrapped)
	}

	var stats domain.BridgeStats
	getJSON(t, server.URL+"/api/bridge-stats", http.StatusOK, &stats)
	if stats.PendingSubscriptions != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestHTTPIntegrationRateLimitedGenerate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	provider := fakeProvider(t)
	cfg := testConfig(provider.URL)
	cfg.RedisAddr = mr.Addr()
	cfg.RateLimit.Generate = config.RateLimitBucketConfig{RequestsPerMinute: 1, BurstSize: 1}
	server := startApp(t, cfg)

	postJSON(t, server.URL+"/api/generate-cover", `{"prompt":"one"}`, http.StatusOK, nil)

	var denied map[string]any
	postJSON(t, server.URL+"/api/generate-cover", `{"prompt":"two"}`, http.StatusTooManyRequests, &denied)
	if denied["scope"] != "generate" || denied["kind"] != "cover" {
		t.Fatalf("denied = %v", denied)
	}

	// music generation spends its own budget
	postJSON(t, server.URL+"/api/generate-music", `{"mode":"basic","mood":"chill"}`, http.StatusOK, nil)

	// callbacks are never throttled
	postJSON(t, server.URL+"/api/cover-callback", `{"code":200,"data":{"taskId":"cover-1","images":[]}}`, http.StatusOK, nil)
}

func TestHTTPIntegrationHealthAndMetrics(t *testing.T) {
	provider := fakeProvider(t)
	server := startApp(t, testConfig(provider.URL))

	getJSON(t, server.URL+"/healthz", http.StatusOK, nil)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "songbridge_pending_subscriptions") {
		t.Fatal("metrics output missing state gauges")
	}
}

func postJSON(t *testing.T, url, body string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	decodeResponse(t, resp, wantStatus, out)
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	decodeResponse(t, resp, wantStatus, out)
}

func decodeResponse(t *testing.T, resp *http.Response, wantStatus int, out any) {
	t.Helper()
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, wantStatus, b)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			t.Fatalf("decode %s: %v", b, err)
		}
	}
}

func readEvents(r io.Reader) <-chan domain.Notification {
	ch := make(chan domain.Notification, 4)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var n domain.Notification
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &n) == nil {
				ch <- n
			}
		}
	}()
	return ch
}

func nextEvent(t *testing.T, ch <-chan domain.Notification) domain.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		if !ok {
			t.Fatal("stream closed early")
		}
		return n
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stream event")
	}
	return domain.Notification{}
}
