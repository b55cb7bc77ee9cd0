package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the server. Values come from the
// environment (optionally seeded from a .env file).
type Config struct {
	Port            int    `validate:"min=1,max=65535"`
	StaticDirectory string `validate:"required"`
	LogDirectory    string `validate:"required"`
	LogMaxSizeMB    int    `validate:"min=1"`
	LogMaxBackups   int    `validate:"min=0"`

	// Frame source
	DeviceDriver    string `validate:"oneof=opencv udp"`
	DefaultDevice   string
	MaxProbeDevices int `validate:"min=1"`
	CamerasFile     string
	CamerasPort     int `validate:"min=1,max=65535"`

	// Classifier
	ModelPath           string `validate:"required"`
	ModelConfigPath     string
	ModelCacheDirectory string  `validate:"required"`
	InputSize           int     `validate:"min=1"`
	InputScale          float64 `validate:"gt=0"`

	// Capture loop
	PollIntervalMs     int `validate:"min=1"`
	InferenceTimeoutMs int `validate:"min=0"`

	// Prediction store
	StoreDriver    string `validate:"oneof=sqlite redis"`
	DatabasePath   string `validate:"required_if=StoreDriver sqlite"`
	RedisAddr      string `validate:"required_if=StoreDriver redis"`
	RedisKey       string `validate:"required_if=StoreDriver redis"`
	WriteQueueSize int    `validate:"min=1"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Port:            getEnvAsInt("PORT", 8080),
		StaticDirectory: getEnv("STATIC_DIR", filepath.Join(".", "static")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogMaxSizeMB:    getEnvAsInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups:   getEnvAsInt("LOG_MAX_BACKUPS", 3),

		DeviceDriver:    getEnv("DEVICE_DRIVER", "opencv"),
		DefaultDevice:   getEnv("DEFAULT_DEVICE", ""),
		MaxProbeDevices: getEnvAsInt("MAX_PROBE_DEVICES", 4),
		CamerasFile:     getEnv("CAMERAS_FILE", filepath.Join(".", "cameras.yaml")),
		CamerasPort:     getEnvAsInt("CAMERAS_PORT", 9000),

		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "model", "model.onnx")),
		ModelConfigPath:     getEnv("MODEL_CONFIG_PATH", ""),
		ModelCacheDirectory: getEnv("MODEL_CACHE_DIR", filepath.Join(".", "model", "cache")),
		InputSize:           getEnvAsInt("INPUT_SIZE", 224),
		InputScale:          getEnvAsFloat("INPUT_SCALE", 1.0), // raw 0-255 pixel values

		PollIntervalMs:     getEnvAsInt("POLL_INTERVAL_MS", 2000),
		InferenceTimeoutMs: getEnvAsInt("INFERENCE_TIMEOUT_MS", 0),

		StoreDriver:    getEnv("STORE_DRIVER", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", filepath.Join(".", "data", "predictions.db")),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisKey:       getEnv("REDIS_KEY", "predictions"),
		WriteQueueSize: getEnvAsInt("WRITE_QUEUE_SIZE", 64),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints declared in the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// PollInterval is the period between two capture ticks.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// InferenceTimeout is the watchdog applied to a single classification; zero disables it.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
