package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/clipvault-dev/clipvault/internal/gate"
)

const (
	defaultMaxVideoBytes = 70 << 20
	defaultMaxImageBytes = 10 << 20
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Configuration
	HTTP HTTPConfig

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig

	// Media host configuration
	Media MediaConfig

	// Upload limits
	Upload UploadConfig

	// Auth configuration
	Auth AuthConfig

	// Access policy, frozen at load time
	Access *gate.Policy

	// Worker configuration
	Worker WorkerConfig
}

// HTTPConfig holds HTTP listener configuration
type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// MediaConfig selects and configures the external media host
type MediaConfig struct {
	Backend    string // cloudinary, minio
	Cloudinary CloudinaryConfig
	Minio      MinioConfig
}

// CloudinaryConfig holds Cloudinary API credentials
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string // upload API prefix; empty uses the SDK default
}

// MinioConfig holds S3-compatible object storage settings
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string // base URL used when rendering object links
}

// UploadConfig holds multipart upload limits
type UploadConfig struct {
	MaxVideoBytes int64
	MaxImageBytes int64
}

// AuthConfig holds identity resolution settings
type AuthConfig struct {
	ResolveTimeout time.Duration
	CookieSecure   bool
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	PurgeSchedule string        // cron expression for the soft-delete sweep
	PurgeGrace    time.Duration // minimum age of a soft-deleted video before re-enqueue
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	maxVideo, err := int64Env("MAX_VIDEO_BYTES", defaultMaxVideoBytes)
	if err != nil {
		return nil, err
	}
	maxImage, err := int64Env("MAX_IMAGE_BYTES", defaultMaxImageBytes)
	if err != nil {
		return nil, err
	}
	resolveTimeout, err := durationEnv("AUTH_RESOLVE_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}
	purgeGrace, err := durationEnv("PURGE_GRACE", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	policyCfg, err := LoadPolicyConfig(os.Getenv("ACCESS_POLICY_FILE"))
	if err != nil {
		return nil, err
	}
	policy, err := gate.NewPolicy(policyCfg)
	if err != nil {
		return nil, fmt.Errorf("invalid access policy: %w", err)
	}

	return &Config{
		HTTP: HTTPConfig{
			Addr:           stringEnv("HTTP_ADDR", ":8080"),
			AllowedOrigins: []string{stringEnv("CORS_ORIGIN", "http://localhost:5173")},
		},
		Database: DatabaseConfig{
			URL: stringEnv("DATABASE_URL", "clipvault.sqlite"),
		},
		Redis: RedisConfig{
			Address: stringEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
		Media: MediaConfig{
			Backend: stringEnv("MEDIA_BACKEND", "cloudinary"),
			Cloudinary: CloudinaryConfig{
				CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
				APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
				APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
				BaseURL:   os.Getenv("CLOUDINARY_API_URL"),
			},
			Minio: MinioConfig{
				Endpoint:  os.Getenv("MINIO_ENDPOINT"),
				AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				Bucket:    stringEnv("MINIO_BUCKET", "clipvault"),
				PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
			},
		},
		Upload: UploadConfig{
			MaxVideoBytes: maxVideo,
			MaxImageBytes: maxImage,
		},
		Auth: AuthConfig{
			ResolveTimeout: resolveTimeout,
			CookieSecure:   os.Getenv("COOKIE_SECURE") == "true",
		},
		Access: policy,
		Worker: WorkerConfig{
			PurgeSchedule: stringEnv("PURGE_SCHEDULE", "*/15 * * * *"),
			PurgeGrace:    purgeGrace,
		},
	}, nil
}

// LoadPolicyConfig reads the access policy YAML file at path. An empty path
// yields the default policy configuration.
func LoadPolicyConfig(path string) (gate.PolicyConfig, error) {
	cfg := gate.DefaultPolicyConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read access policy file: %w", err)
	}

	// Keys present in the file replace the defaults; absent keys keep them.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse access policy file: %w", err)
	}

	return cfg, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func int64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
