package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"gopkg.in/yaml.v3"
)

type RateLimitBucketConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	BurstSize         int `yaml:"burstSize"`
}

// RateLimitConfig throttles the generate endpoints. Generate is the budget each
// client gets per generation kind; Kinds overrides it for music, lyrics or cover.
type RateLimitConfig struct {
	Generate RateLimitBucketConfig            `yaml:"generate"`
	Kinds    map[string]RateLimitBucketConfig `yaml:"kinds"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	OTLPInsecure bool    `yaml:"otlpInsecure"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

type Config struct {
	Port          int    `yaml:"port"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	LogLevel      string `yaml:"logLevel"`
	LogFormat     string `yaml:"logFormat"`
	Env           string `yaml:"env"`

	// PersistenceProvider selects where the processed-callback set and cover results live: memory or redis.
	PersistenceProvider string `yaml:"persistenceProvider"`

	ProviderBaseURL        string `yaml:"providerBaseUrl"`
	ProviderAPIKey         string `yaml:"providerApiKey"`
	ProviderMock           bool   `yaml:"providerMock"`
	ProviderTimeoutSeconds int    `yaml:"providerTimeoutSeconds"`
	MusicCallbackURL       string `yaml:"musicCallbackUrl"`
	LyricsCallbackURL      string `yaml:"lyricsCallbackUrl"`
	CoverCallbackURL       string `yaml:"coverCallbackUrl"`

	ProcessedClearThreshold       int `yaml:"processedClearThreshold"`
	ProcessedSweepIntervalSeconds int `yaml:"processedSweepIntervalSeconds"`
	CoverResultRetentionSeconds   int `yaml:"coverResultRetentionSeconds"`
	ShutdownDrainSeconds          int `yaml:"shutdownDrainSeconds"`

	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// LoadConfigOptional loads filePath when it exists; a blank or missing path yields env + defaults.
func LoadConfigOptional(filePath string) (*Config, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return finalize(&Config{}), nil
	}
	cfg, err := LoadConfig(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return finalize(&Config{}), nil
	}
	return cfg, err
}

func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return finalize(&c), nil
}

func finalize(c *Config) *Config {
	applyEnv(c)
	applyDefaults(c)
	log.Printf("Songbridge Config: {Port:%d Persistence:%s Redis:%s Provider:%s Mock:%t Env:%s}\n",
		c.Port, c.PersistenceProvider, c.RedisAddr, c.ProviderBaseURL, c.ProviderMock, c.Env)
	return c
}

func applyEnv(c *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("PERSISTENCE_PROVIDER"); v != "" {
		c.PersistenceProvider = v
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		c.ProviderBaseURL = v
	}
	if v := os.Getenv("SUNO_API_KEY"); v != "" {
		c.ProviderAPIKey = v
	}
	if v := os.Getenv("PROVIDER_MOCK"); v != "" {
		c.ProviderMock = parseBool(v)
	}
	if v := os.Getenv("SUNO_CALLBACK_URL"); v != "" {
		c.MusicCallbackURL = v
	}
	if v := os.Getenv("LYRICS_CALLBACK_URL"); v != "" {
		c.LyricsCallbackURL = v
	}
	if v := os.Getenv("COVER_CALLBACK_URL"); v != "" {
		c.CoverCallbackURL = v
	}
	if v := os.Getenv("PROCESSED_CLEAR_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ProcessedClearThreshold = n
		}
	}
	if v := os.Getenv("PROCESSED_SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ProcessedSweepIntervalSeconds = n
		}
	}
	if v := os.Getenv("COVER_RESULT_RETENTION_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CoverResultRetentionSeconds = n
		}
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		c.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.OTLPEndpoint = v
	}
}

func applyDefaults(c *Config) {
	if c.Port == 0 {
		c.Port = 3000
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.PersistenceProvider == "" {
		c.PersistenceProvider = "memory"
	}
	if c.ProviderBaseURL == "" {
		c.ProviderBaseURL = "https://api.kie.ai"
	}
	if c.ProviderTimeoutSeconds <= 0 {
		c.ProviderTimeoutSeconds = 30
	}
	if c.MusicCallbackURL == "" {
		c.MusicCallbackURL = "https://your-domain.com/api/suno-callback"
	}
	if c.LyricsCallbackURL == "" {
		c.LyricsCallbackURL = "https://your-domain.com/api/lyrics-callback"
	}
	if c.CoverCallbackURL == "" {
		c.CoverCallbackURL = "https://your-domain.com/api/cover-callback"
	}
	if c.ProcessedClearThreshold <= 0 {
		c.ProcessedClearThreshold = 1000
	}
	if c.ProcessedSweepIntervalSeconds <= 0 {
		c.ProcessedSweepIntervalSeconds = 3600
	}
	if c.CoverResultRetentionSeconds <= 0 {
		c.CoverResultRetentionSeconds = 24 * 3600
	}
	if c.ShutdownDrainSeconds <= 0 {
		c.ShutdownDrainSeconds = 10
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "songbridge"
	}
}

func (c *Config) Validate() error {
	var errs []string
	env := strings.ToLower(strings.TrimSpace(c.Env))
	dev := env == "dev"

	switch c.PersistenceProvider {
	case "memory", "redis":
	default:
		errs = append(errs, "persistenceProvider must be memory or redis")
	}

	u, err := url.Parse(c.ProviderBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "providerBaseUrl must be a valid http(s) URL")
	}
	if strings.TrimSpace(c.ProviderAPIKey) == "" && !c.ProviderMock && !dev {
		errs = append(errs, "providerApiKey is required in non-dev unless providerMock is set")
	}

	for name, raw := range map[string]string{
		"musicCallbackUrl":  c.MusicCallbackURL,
		"lyricsCallbackUrl": c.LyricsCallbackURL,
		"coverCallbackUrl":  c.CoverCallbackURL,
	} {
		cu, err := url.Parse(raw)
		if err != nil || (cu.Scheme != "http" && cu.Scheme != "https") || cu.Host == "" {
			errs = append(errs, name+" must be a valid http(s) URL")
		}
	}

	for kind, bucket := range c.RateLimit.Kinds {
		if _, ok := domain.ParseTaskKind(kind); !ok {
			errs = append(errs, fmt.Sprintf("rateLimit.kinds: unknown generation kind %q", kind))
		}
		if bucket.RequestsPerMinute < 0 || bucket.BurstSize < 0 {
			errs = append(errs, fmt.Sprintf("rateLimit.kinds.%s must not be negative", kind))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func parseBool(v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	return v == "true" || v == "1" || v == "yes" || v == "y" || v == "on"
}
