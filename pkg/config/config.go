package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath        = "config.yaml"
	defaultAddr              = ":8080"
	defaultBaseURL           = "http://localhost:8080"
	defaultMaxBodyMB         = 512
	defaultRateLimit         = 5.0
	defaultRateBurst         = 20
	defaultTokenTTLMinutes   = 60
	defaultStorageBackend    = "gcs"
	defaultBucket            = "ai-video-summarizer-dev-bucket"
	defaultURLTTLMinutes     = 15
	defaultLocalDir          = "./data/bucket"
	defaultStagingDir        = "./data/staging"
	defaultS3Region          = "us-east-1"
	defaultQueueBackend      = "pubsub"
	defaultTopic             = "video-summary-requests"
	defaultRegistrySize      = 4096
	defaultUploadConcurrency = 4
)

var defaultAllowedDomains = []string{"productmadness.com", "aristocrat.com"}

type Config struct {
	APISecretKey       string
	GoogleClientID     string
	GoogleClientSecret string
	GCPProject         string
	S3AccessKey        string
	S3SecretKey        string

	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Queue    QueueConfig    `yaml:"queue"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	BaseURL      string   `yaml:"base_url"`
	CORSOrigins  []string `yaml:"cors_origins"`
	MaxBodyMB    int64    `yaml:"max_body_mb"`
	RateLimit    float64  `yaml:"rate_limit"` // requests per second per client IP
	RateBurst    int      `yaml:"rate_burst"`
	SecureCookie bool     `yaml:"secure_cookie"`
}

type AuthConfig struct {
	ProtectAPI      *bool    `yaml:"protect_api"`
	AllowedDomains  []string `yaml:"allowed_domains"`
	TokenTTLMinutes int      `yaml:"token_ttl_minutes"`
	RedirectURL     string   `yaml:"redirect_url"`
	SecretName      string   `yaml:"secret_name"`
}

type StorageConfig struct {
	Backend         string `yaml:"backend"` // "gcs", "s3" or "local"
	Bucket          string `yaml:"bucket"`
	DummySignedURLs bool   `yaml:"dummy_signed_urls"`
	URLTTLMinutes   int    `yaml:"url_ttl_minutes"`
	CredentialsFile string `yaml:"credentials_file"`
	LocalDir        string `yaml:"local_dir"`
	StagingDir      string `yaml:"staging_dir"`
	S3Endpoint      string `yaml:"s3_endpoint"`
	S3Region        string `yaml:"s3_region"`
}

type QueueConfig struct {
	Backend      string   `yaml:"backend"` // "pubsub", "kafka" or "log"
	Topic        string   `yaml:"topic"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	JournalPath  string   `yaml:"journal_path"`
}

type PipelineConfig struct {
	VerifyVideoIDs    bool   `yaml:"verify_video_ids"`
	RegistrySize      int    `yaml:"registry_size"`
	UploadConcurrency int    `yaml:"upload_concurrency"`
	PromptsPath       string `yaml:"prompts_path"`
}

func (a AuthConfig) ProtectAPIEnabled() bool {
	return a.ProtectAPI == nil || *a.ProtectAPI
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

func (s StorageConfig) URLTTL() time.Duration {
	return time.Duration(s.URLTTLMinutes) * time.Minute
}

func Load(ctx context.Context) (*Config, error) {
	return load(ctx, newSecretManagerAccessor)
}

func load(ctx context.Context, newAccessor accessorFactory) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APISecretKey:       os.Getenv("API_SECRET_KEY"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GCPProject:         os.Getenv("GOOGLE_CLOUD_PROJECT"),
		S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
	}

	if err := loadYAMLConfig(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := resolveSecrets(ctx, cfg, newAccessor); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadYAMLConfig(cfg *Config) error {
	data, err := os.ReadFile(defaultConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No config.yaml found, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config.yaml: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Storage.Bucket = getEnvOrDefault("GCS_BUCKET", cfg.Storage.Bucket)
	cfg.Queue.Topic = getEnvOrDefault("PUBSUB_TOPIC", cfg.Queue.Topic)
	cfg.Server.Addr = getEnvOrDefault("SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.BaseURL = getEnvOrDefault("BASE_URL", cfg.Server.BaseURL)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Queue.KafkaBrokers = strings.Split(brokers, ",")
	}
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(cfg)
	applyAuthDefaults(cfg)
	applyStorageDefaults(cfg)
	applyQueueDefaults(cfg)
	applyPipelineDefaults(cfg)
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaultBaseURL
	}
	cfg.Server.BaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/")
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{cfg.Server.BaseURL}
	}
	if cfg.Server.MaxBodyMB == 0 {
		cfg.Server.MaxBodyMB = defaultMaxBodyMB
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = defaultRateLimit
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = defaultRateBurst
	}
}

func applyAuthDefaults(cfg *Config) {
	if len(cfg.Auth.AllowedDomains) == 0 {
		cfg.Auth.AllowedDomains = append([]string(nil), defaultAllowedDomains...)
	}
	if cfg.Auth.TokenTTLMinutes == 0 {
		cfg.Auth.TokenTTLMinutes = defaultTokenTTLMinutes
	}
	if cfg.Auth.RedirectURL == "" {
		cfg.Auth.RedirectURL = cfg.Server.BaseURL + "/auth/google/callback"
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaultStorageBackend
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = defaultBucket
	}
	if cfg.Storage.URLTTLMinutes == 0 {
		cfg.Storage.URLTTLMinutes = defaultURLTTLMinutes
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = defaultLocalDir
	}
	if cfg.Storage.StagingDir == "" {
		cfg.Storage.StagingDir = defaultStagingDir
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = defaultS3Region
	}
}

func applyQueueDefaults(cfg *Config) {
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = defaultQueueBackend
	}
	if cfg.Queue.Topic == "" {
		cfg.Queue.Topic = defaultTopic
	}
}

func applyPipelineDefaults(cfg *Config) {
	if cfg.Pipeline.RegistrySize == 0 {
		cfg.Pipeline.RegistrySize = defaultRegistrySize
	}
	if cfg.Pipeline.UploadConcurrency == 0 {
		cfg.Pipeline.UploadConcurrency = defaultUploadConcurrency
	}
}

// Validate reports the first setting that would stop the service from
// starting.
func (c *Config) Validate() error {
	if c.APISecretKey == "" {
		return errors.New("API_SECRET_KEY is not set (or auth.secret_name could not be resolved)")
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is empty")
	}
	if c.Queue.Topic == "" {
		return errors.New("queue.topic is empty")
	}

	switch c.Storage.Backend {
	case "gcs", "local":
	case "s3":
		if c.Storage.S3Endpoint == "" && c.S3AccessKey == "" {
			slog.Warn("S3 backend without endpoint or static keys, using the default AWS credential chain")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.Queue.Backend {
	case "log":
	case "pubsub":
		if c.GCPProject == "" {
			return errors.New("GOOGLE_CLOUD_PROJECT is required for the pubsub queue backend")
		}
	case "kafka":
		if len(c.Queue.KafkaBrokers) == 0 {
			return errors.New("queue.kafka_brokers is required for the kafka queue backend")
		}
	default:
		return fmt.Errorf("unknown queue.backend %q", c.Queue.Backend)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
