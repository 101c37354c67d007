package config

import (
	"os"
	"strconv"
	"strings"
	"time"
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

// MinIOConfig holds object storage settings for the S3-compatible backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// BucketConfig names the buckets each stage of the pipeline reads and writes.
type BucketConfig struct {
	// Pending receives raw shipment files uploaded by clients.
	Pending string
	// Packages holds the split package documents produced by the division service.
	Packages string
	// Images is the source bucket for shipment image objects.
	Images string
	// Zips holds the temporary ZIP archives served through presigned URLs.
	Zips string
}

// QueueConfig holds settings for the Postgres-backed message queue.
type QueueConfig struct {
	PollingInterval      time.Duration
	Concurrency          int
	VisibilityTimeoutSec int
	RetryIntervalSec     int
	MaximumReceives      int
}

// SMTPConfig holds outbound email settings.
type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
	FromName  string
	// NotifyTo receives completion emails; AdminEmail receives failure reports.
	NotifyTo   []string
	AdminEmail string
}

// RedisConfig holds settings for the optional event dedupe guard.
// An empty Addr disables deduplication.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ProcessingConfig holds the business limits for splitting and packaging.
type ProcessingConfig struct {
	MaxShipmentsPerPackage int
	SignedURLExpiryHours   int
	CleanupAfterHours      int
	ValidateImageURLs      bool
	ImageCheckConcurrency  int
	ImageCheckTimeoutSec   int
	BatchConcurrency       int
}

// AppConfig is the centralized configuration struct for all services.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppVersion string
	Port       string
	Database   DatabaseConfig
	MinIO      MinIOConfig
	Buckets    BucketConfig
	Queue      QueueConfig
	SMTP       SMTPConfig
	Redis      RedisConfig
	Processing ProcessingConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppVersion: getEnv("APP_VERSION", "2.0.0"),
		Port:       getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
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
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Buckets: BucketConfig{
			Pending:  getEnv("BUCKET_PENDING", "shipments-pending"),
			Packages: getEnv("BUCKET_PACKAGES", "shipments-packages"),
			Images:   getEnv("BUCKET_IMAGES", "shipments-images"),
			Zips:     getEnv("BUCKET_ZIPS", "shipments-zips"),
		},
		Queue: QueueConfig{
			PollingInterval:      time.Duration(getEnvInt("QUEUE_POLLING_INTERVAL_MS", 1000)) * time.Millisecond,
			Concurrency:          getEnvInt("QUEUE_CONCURRENCY", 3),
			VisibilityTimeoutSec: getEnvInt("QUEUE_VISIBILITY_TIMEOUT_SEC", 30),
			RetryIntervalSec:     getEnvInt("QUEUE_RETRY_INTERVAL_SEC", 1),
			MaximumReceives:      getEnvInt("QUEUE_MAXIMUM_RECEIVES", 5),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:       getEnvInt("SMTP_PORT", 587),
			User:       getEnv("SMTP_USER", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			FromEmail:  getEnv("FROM_EMAIL", "noreply@shipstream.local"),
			FromName:   getEnv("FROM_NAME", "Shipstream"),
			NotifyTo:   getEnvList("NOTIFY_EMAIL"),
			AdminEmail: getEnv("ADMIN_EMAIL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Processing: ProcessingConfig{
			MaxShipmentsPerPackage: getEnvInt("MAX_SHIPMENTS_PER_PACKAGE", 100),
			SignedURLExpiryHours:   getEnvInt("SIGNED_URL_EXPIRY_HOURS", 2),
			CleanupAfterHours:      getEnvInt("CLEANUP_AFTER_HOURS", 24),
			ValidateImageURLs:      getEnvBool("VALIDATE_IMAGE_URLS", false),
			ImageCheckConcurrency:  getEnvInt("IMAGE_CHECK_CONCURRENCY", 5),
			ImageCheckTimeoutSec:   getEnvInt("IMAGE_CHECK_TIMEOUT_SEC", 10),
			BatchConcurrency:       getEnvInt("BATCH_CONCURRENCY", 4),
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

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
