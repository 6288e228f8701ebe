package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	Gemini GeminiConfig

	// Storm alert sink.
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool

	// IP geolocation. An empty path disables lookups.
	GeoIPDBPath        string
	GeolocationTimeout time.Duration

	SessionTTL time.Duration
}

// GeminiConfig configures the generative model client. Loaded from GEMINI_*.
type GeminiConfig struct {
	APIKey           string        `envconfig:"API_KEY" required:"true"`
	BaseURL          string        `envconfig:"BASE_URL" default:"https://generativelanguage.googleapis.com"`
	AnalysisModel    string        `envconfig:"ANALYSIS_MODEL" default:"gemini-2.5-flash"`
	ImageModel       string        `envconfig:"IMAGE_MODEL" default:"gemini-3-pro-image-preview"`
	ImageEnabled     bool          `envconfig:"IMAGE_ENABLED" default:"true"`
	ImageAspectRatio string        `envconfig:"IMAGE_ASPECT_RATIO" default:"16:9"`
	ImageSize        string        `envconfig:"IMAGE_SIZE" default:"1K"`
	Timeout          time.Duration `envconfig:"TIMEOUT" default:"60s"`
}

// Load reads configuration from environment variables (and a local .env file
// when present), applying defaults where unset.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	var gemini GeminiConfig
	if err := envconfig.Process("GEMINI", &gemini); err != nil {
		return nil, fmt.Errorf("load gemini config: %w", err)
	}
	if gemini.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if gemini.Timeout <= 0 {
		return nil, errors.New("invalid GEMINI_TIMEOUT")
	}

	geoTimeout, err := parsePositiveDuration("GEOLOCATION_TIMEOUT", "3s")
	if err != nil {
		return nil, err
	}
	sessionTTL, err := parsePositiveDuration("SESSION_TTL", "30m")
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Gemini: gemini,

		KafkaBrokers:    brokers,
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "storm-proximity-alerts"),
		KafkaEnabled:    kafkaEnabled,

		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		GeolocationTimeout: geoTimeout,

		SessionTTL: sessionTTL,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
