package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig is the flat environment mapping read by cleanenv.
//
//	PORT                    - Server port (default: "8080")
//	ENVIRONMENT             - Runtime environment (default: "development")
//	DATABASE_URL            - "memory" or a postgresql:// connection string
//	DB_SCHEMA               - Postgres schema (default: "contentgate")
//	STORAGE_URL             - "memory://" or "s3://bucket"
//	AWS_REGION              - S3 region (default: "us-east-1")
//	AWS_ACCESS_KEY_ID       - S3 credentials (default credential chain if empty)
//	AWS_SECRET_ACCESS_KEY   - S3 credentials
//	S3_ENDPOINT             - Custom endpoint for S3-compatible services
//	S3_USE_PATH_STYLE       - Path-style addressing for MinIO
//	S3_PRESIGN_DURATION     - Presigned URL lifetime in seconds
//	JWT_SECRET              - HMAC secret for bearer token verification
//	NOTIFY_INTERVAL_SECONDS - Outbox worker poll interval
//	NOTIFY_BATCH_SIZE       - Outbox worker batch size
type envConfig struct {
	Port        string `env:"PORT" env-default:""`
	Environment string `env:"ENVIRONMENT" env-default:""`

	DatabaseURL string `env:"DATABASE_URL" env-default:""`
	DBSchema    string `env:"DB_SCHEMA" env-default:""`

	StorageURL        string `env:"STORAGE_URL" env-default:""`
	S3Region          string `env:"AWS_REGION" env-default:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint        string `env:"S3_ENDPOINT" env-default:""`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3PresignDuration int    `env:"S3_PRESIGN_DURATION" env-default:"0"`

	JWTSecret string `env:"JWT_SECRET" env-default:""`

	NotifyIntervalSeconds int `env:"NOTIFY_INTERVAL_SECONDS" env-default:"0"`
	NotifyBatchSize       int `env:"NOTIFY_BATCH_SIZE" env-default:"0"`
}

// WithEnv applies environment variable overrides on top of the defaults.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if env.Port != "" {
			c.Port = env.Port
		}
		if env.Environment != "" {
			c.Environment = env.Environment
		}
		if env.DBSchema != "" {
			c.DBSchema = env.DBSchema
		}
		if env.JWTSecret != "" {
			c.JWTSecret = env.JWTSecret
		}
		if env.NotifyIntervalSeconds > 0 {
			c.NotifyInterval = time.Duration(env.NotifyIntervalSeconds) * time.Second
		}
		if env.NotifyBatchSize > 0 {
			c.NotifyBatchSize = env.NotifyBatchSize
		}

		if err := applyDatabaseEnv(env, c); err != nil {
			return err
		}
		return applyStorageEnv(env, c)
	}
}

// applyDatabaseEnv applies database configuration from environment
func applyDatabaseEnv(env envConfig, c *ServerConfig) error {
	dbURL := env.DatabaseURL

	if dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}

	// Auto-detect database type from URL
	if strings.HasPrefix(dbURL, "postgresql://") || strings.HasPrefix(dbURL, "postgres://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}
	return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
}

// applyStorageEnv applies storage configuration from environment
func applyStorageEnv(env envConfig, c *ServerConfig) error {
	storageURL := env.StorageURL

	if storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.StorageBackend = "memory"
		return nil
	}

	if strings.HasPrefix(storageURL, "s3://") {
		// Format: s3://bucket
		bucket := strings.TrimPrefix(storageURL, "s3://")
		if i := strings.IndexByte(bucket, '?'); i >= 0 {
			bucket = bucket[:i]
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}

		c.StorageBackend = "s3"
		c.S3Bucket = bucket
		if env.S3Region != "" {
			c.S3Region = env.S3Region
		}
		c.S3AccessKeyID = env.S3AccessKeyID
		c.S3SecretAccessKey = env.S3SecretAccessKey
		c.S3Endpoint = env.S3Endpoint
		c.S3UsePathStyle = env.S3UsePathStyle
		if env.S3PresignDuration > 0 {
			c.S3PresignDuration = env.S3PresignDuration
		}
		return nil
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://' or 's3://...')", storageURL)
}
