package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLoadConfigOptional_EmptyPath tests loading when file path is empty
func TestLoadConfigOptional_EmptyPath(t *testing.T) {
	t.Setenv("PORT", "9999")

	cfg, err := LoadConfigOptional("")
	if err != nil {
		t.Fatalf("LoadConfigOptional with empty path should not error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected non-nil config")
	}
	if cfg.Port != 9999 {
		t.Errorf("Expected Port=9999 from env, got %d", cfg.Port)
	}
}

func TestLoadConfigOptional_WhitespacePath(t *testing.T) {
	cfg, err := LoadConfigOptional("   ")
	if err != nil {
		t.Fatalf("LoadConfigOptional with whitespace path should not error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected non-nil config")
	}
}

func TestLoadConfigOptional_FileNotExist(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "config-does-not-exist.yaml")

	cfg, err := LoadConfigOptional(nonExistentPath)
	if err != nil {
		t.Fatalf("LoadConfigOptional with non-existent file should not error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected non-nil config")
	}
}

func TestLoadConfigOptional_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
port: 8080
redisAddr: "localhost:6379"
  invalid indentation here
  more bad yaml
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadConfigOptional(configPath); err == nil {
		t.Fatal("Expected error when loading invalid YAML, got nil")
	}
}

func TestLoadConfigOptional_ValidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "valid.yaml")

	validYAML := `
port: 8080
redisAddr: "localhost:6379"
redisPassword: "secret"
persistenceProvider: "redis"
providerBaseUrl: "https://provider.example"
musicCallbackUrl: "https://studio.example/api/suno-callback"
processedClearThreshold: 50
rateLimit:
  generate:
    requestsPerMinute: 10
    burstSize: 2
  kinds:
    music:
      requestsPerMinute: 2
      burstSize: 1
env: "test"
`
	if err := os.WriteFile(configPath, []byte(validYAML), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	cfg, err := LoadConfigOptional(configPath)
	if err != nil {
		t.Fatalf("LoadConfigOptional with valid config should not error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected Port=8080, got %d", cfg.Port)
	}
	if cfg.RedisPassword != "secret" {
		t.Errorf("Expected RedisPassword='secret', got %q", cfg.RedisPassword)
	}
	if cfg.PersistenceProvider != "redis" {
		t.Errorf("Expected PersistenceProvider='redis', got %q", cfg.PersistenceProvider)
	}
	if cfg.MusicCallbackURL != "https://studio.example/api/suno-callback" {
		t.Errorf("Expected MusicCallbackURL from file, got %q", cfg.MusicCallbackURL)
	}
	if cfg.ProcessedClearThreshold != 50 {
		t.Errorf("Expected ProcessedClearThreshold=50, got %d", cfg.ProcessedClearThreshold)
	}
	if cfg.RateLimit.Generate.RequestsPerMinute != 10 || cfg.RateLimit.Generate.BurstSize != 2 {
		t.Errorf("Expected generate bucket 10/2, got %+v", cfg.RateLimit.Generate)
	}
	if got := cfg.RateLimit.Kinds["music"]; got.RequestsPerMinute != 2 || got.BurstSize != 1 {
		t.Errorf("Expected music bucket 2/1, got %+v", got)
	}
	if cfg.Env != "test" {
		t.Errorf("Expected Env='test', got %q", cfg.Env)
	}
}

func TestLoadConfigOptional_EnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configYAML := `
port: 8080
redisAddr: "localhost:6379"
providerApiKey: "file-key"
lyricsCallbackUrl: "https://file.example/api/lyrics-callback"
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "env-redis:6380")
	t.Setenv("SUNO_API_KEY", "env-key")
	t.Setenv("LYRICS_CALLBACK_URL", "https://env.example/api/lyrics-callback")
	t.Setenv("PROVIDER_MOCK", "true")

	cfg, err := LoadConfigOptional(configPath)
	if err != nil {
		t.Fatalf("LoadConfigOptional should not error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Expected Port=9090 from env, got %d", cfg.Port)
	}
	if cfg.RedisAddr != "env-redis:6380" {
		t.Errorf("Expected RedisAddr='env-redis:6380' from env, got %q", cfg.RedisAddr)
	}
	if cfg.ProviderAPIKey != "env-key" {
		t.Errorf("Expected ProviderAPIKey='env-key' from env, got %q", cfg.ProviderAPIKey)
	}
	if cfg.LyricsCallbackURL != "https://env.example/api/lyrics-callback" {
		t.Errorf("Expected LyricsCallbackURL from env, got %q", cfg.LyricsCallbackURL)
	}
	if !cfg.ProviderMock {
		t.Error("Expected ProviderMock=true from env")
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfigOptional("")
	if err != nil {
		t.Fatalf("LoadConfigOptional: %v", err)
	}
	if cfg.ProcessedClearThreshold != 1000 {
		t.Errorf("ProcessedClearThreshold = %d, want 1000", cfg.ProcessedClearThreshold)
	}
	if cfg.ProcessedSweepIntervalSeconds != 3600 {
		t.Errorf("ProcessedSweepIntervalSeconds = %d, want 3600", cfg.ProcessedSweepIntervalSeconds)
	}
	if cfg.CoverResultRetentionSeconds != 86400 {
		t.Errorf("CoverResultRetentionSeconds = %d, want 86400", cfg.CoverResultRetentionSeconds)
	}
	if cfg.PersistenceProvider != "memory" {
		t.Errorf("PersistenceProvider = %q, want memory", cfg.PersistenceProvider)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		applyDefaults(c)
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"dev defaults are valid", func(c *Config) {}, ""},
		{"unknown persistence", func(c *Config) { c.PersistenceProvider = "postgres" }, "persistenceProvider"},
		{"bad provider url", func(c *Config) { c.ProviderBaseURL = "ftp://x" }, "providerBaseUrl"},
		{"prod requires api key", func(c *Config) { c.Env = "prod" }, "providerApiKey"},
		{"prod mock needs no key", func(c *Config) { c.Env = "prod"; c.ProviderMock = true }, ""},
		{"bad callback url", func(c *Config) { c.CoverCallbackURL = "not a url" }, "coverCallbackUrl"},
		{"known rate limit kind", func(c *Config) {
			c.RateLimit.Kinds = map[string]RateLimitBucketConfig{"Cover": {RequestsPerMinute: 1, BurstSize: 1}}
		}, ""},
		{"unknown rate limit kind", func(c *Config) {
			c.RateLimit.Kinds = map[string]RateLimitBucketConfig{"video": {RequestsPerMinute: 1, BurstSize: 1}}
		}, `unknown generation kind "video"`},
		{"negative rate limit bucket", func(c *Config) {
			c.RateLimit.Kinds = map[string]RateLimitBucketConfig{"music": {RequestsPerMinute: -1}}
		}, "rateLimit.kinds.music"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
