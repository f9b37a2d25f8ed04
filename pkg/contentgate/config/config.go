package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mediakit/contentgate/pkg/contentgate"
	"github.com/mediakit/contentgate/pkg/contentgate/repo/memory"
	repopg "github.com/mediakit/contentgate/pkg/contentgate/repo/postgres"
	memorystorage "github.com/mediakit/contentgate/pkg/contentgate/storage/memory"
	s3storage "github.com/mediakit/contentgate/pkg/contentgate/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:              "8080",
		Environment:       "development",
		DatabaseType:      "memory",
		DBSchema:          "contentgate",
		StorageBackend:    "memory",
		NotifyInterval:    5 * time.Second,
		NotifyBatchSize:   50,
		S3PresignDuration: 3600,
	}
}

// ServerConfig represents server configuration for the contentgate service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: contentgate)

	// Storage configuration
	StorageBackend    string // "memory", "s3"
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool
	S3PresignDuration int // seconds

	// Identity configuration
	JWTSecret string

	// Notification outbox worker
	NotifyInterval  time.Duration
	NotifyBatchSize int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.StorageBackend {
	case "memory":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3_bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.StorageBackend)
	}

	if c.NotifyBatchSize <= 0 {
		return errors.New("notify_batch_size must be positive")
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (contentgate.Service, error) {
	repo, err := c.BuildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	return c.BuildServiceWithRepository(repo)
}

// BuildServiceWithRepository creates a Service on an already-built repository.
// Callers that also run the notification worker must share one repository
// between the service and the worker so both see the same outbox.
func (c *ServerConfig) BuildServiceWithRepository(repo contentgate.Repository) (contentgate.Service, error) {
	store, err := c.buildBlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build blob store: %w", err)
	}

	return contentgate.New(
		contentgate.WithRepository(repo),
		contentgate.WithBlobStore(store),
	)
}

// BuildRepository creates a Repository based on the configuration
func (c *ServerConfig) BuildRepository() (contentgate.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			// set search_path for this session
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildBlobStore creates a BlobStore based on the configuration
func (c *ServerConfig) buildBlobStore() (contentgate.BlobStore, error) {
	switch c.StorageBackend {
	case "memory":
		return memorystorage.New(), nil
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			Endpoint:        c.S3Endpoint,
			UsePathStyle:    c.S3UsePathStyle,
			PresignDuration: c.S3PresignDuration,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", c.StorageBackend)
	}
}

// PingPostgres verifies connectivity to Postgres and optionally sets
// search_path for the session. It fails if the schema (when provided) does
// not exist.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
