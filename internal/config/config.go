package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sreemahi-code/abbhack/internal/validate"
)

// #region config
// Config is the server's runtime configuration. Empty optional endpoints
// (Redis, RabbitMQ, S3) disable the component that uses them.
type Config struct {
	HTTPAddr    string
	AllowOrigin string
	DataDB      string

	Scorer          string // "http" | "grpc"
	MLServiceURL    string
	ScorerAddr      string
	ScoreTimeout    time.Duration
	ScoreMaxRetries int

	SimInterval    time.Duration
	BoundaryPolicy validate.BoundaryPolicy
	MaxUploadRows  int

	RedisAddr string
	RedisDB   int
	RateLimit int // requests per second per client, 0 disables

	RabbitMQURL string

	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Secure    bool
}
// #endregion config

// #region load
// Load reads envFile (if it exists) into the environment, then builds a
// Config from environment variables with defaults.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
			log.Printf("config: no %s file, using environment only", envFile)
		}
	}

	cfg := Config{
		HTTPAddr:     envOr("HTTP_ADDR", ":8080"),
		AllowOrigin:  envOr("ALLOW_ORIGIN", "http://localhost:4200"),
		DataDB:       envOr("DATA_DB", "abbhack.db"),
		Scorer:       envOr("SCORER", "http"),
		MLServiceURL: envOr("ML_SERVICE_URL", "http://localhost:8000"),
		ScorerAddr:   envOr("SCORER_ADDR", "localhost:50051"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitMQURL:  os.Getenv("RABBITMQ_URL"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3Bucket:     envOr("S3_BUCKET", "datasets"),
		S3AccessKey:  os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:  os.Getenv("S3_SECRET_KEY"),
	}

	var err error
	if cfg.ScoreTimeout, err = durationEnv("SCORE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SimInterval, err = durationEnv("SIM_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ScoreMaxRetries, err = intEnv("SCORE_MAX_RETRIES", 2); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadRows, err = intEnv("MAX_UPLOAD_ROWS", 0); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = intEnv("RATE_LIMIT", 10); err != nil {
		return Config{}, err
	}
	if cfg.S3Secure, err = boolEnv("S3_SECURE", false); err != nil {
		return Config{}, err
	}
	if cfg.BoundaryPolicy, err = validate.ParseBoundaryPolicy(envOr("BOUNDARY_POLICY", "inclusive")); err != nil {
		return Config{}, fmt.Errorf("BOUNDARY_POLICY: %w", err)
	}
	if cfg.Scorer != "http" && cfg.Scorer != "grpc" {
		return Config{}, fmt.Errorf("SCORER: unknown transport %q (want http or grpc)", cfg.Scorer)
	}
	if cfg.ScoreMaxRetries < 0 || cfg.MaxUploadRows < 0 || cfg.RateLimit < 0 {
		return Config{}, fmt.Errorf("SCORE_MAX_RETRIES, MAX_UPLOAD_ROWS and RATE_LIMIT must not be negative")
	}
	return cfg, nil
}
// #endregion load

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
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
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", key, d)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
// #endregion helpers
