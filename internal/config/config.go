package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the JPEG payloads.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// DictionaryConfig holds settings for the collegiate dictionary lookup API.
type DictionaryConfig struct {
	APIKey     string
	BaseURL    string
	TimeoutSec int
}

// ClassifierConfig holds settings for the image classification pipeline.
// ServingURL points at a TensorFlow-Serving-style REST predict endpoint;
// LabelsPath is the ordinally-indexed class-name list loaded at start.
type ClassifierConfig struct {
	ServingURL string
	LabelsPath string
	InputSize  int
	TopK       int
}

// WorkerConfig holds the classification worker poll settings.
type WorkerConfig struct {
	PollIntervalSec int
	ErrorBackoffSec int
	MetricsPort     string
}

// AppConfig is the centralized configuration struct for both binaries.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port       string
	Database   DatabaseConfig
	MinIO      MinIOConfig
	Dictionary DictionaryConfig
	Classifier ClassifierConfig
	Worker     WorkerConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port: getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "captures"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Dictionary: DictionaryConfig{
			APIKey:     getEnv("MW_API_KEY", ""),
			BaseURL:    getEnv("MW_URL", "https://dictionaryapi.com/api/v3/references/collegiate/json"),
			TimeoutSec: getEnvInt("MW_TIMEOUT_SEC", 5),
		},
		Classifier: ClassifierConfig{
			ServingURL: getEnv("MODEL_SERVING_URL", "http://localhost:8501/v1/models/classifier:predict"),
			LabelsPath: getEnv("CLASS_LIST_PATH", "classlist.json"),
			InputSize:  getEnvInt("MODEL_INPUT_SIZE", 100),
			TopK:       getEnvInt("MODEL_TOP_K", 5),
		},
		Worker: WorkerConfig{
			PollIntervalSec: getEnvInt("WORKER_POLL_INTERVAL_SEC", 1),
			ErrorBackoffSec: getEnvInt("WORKER_ERROR_BACKOFF_SEC", 5),
			MetricsPort:     getEnv("WORKER_METRICS_PORT", "9090"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
