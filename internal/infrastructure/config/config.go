package config

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// SyncWorkers is the number of sharded membership workers.
	SyncWorkers int `env:"SYNC_WORKERS, default=8"`

	Matrix MatrixConfig
	Vault  VaultConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

// MatrixConfig configures the homeserver connection. An empty HomeserverURL
// disables chat synchronization entirely: the service starts with a no-op
// sync boundary and the chat routes return 503.
type MatrixConfig struct {
	HomeserverURL string        `env:"MATRIX_HOMESERVER_URL"`
	ServerName    string        `env:"MATRIX_SERVER_NAME"`
	AdminToken    string        `env:"MATRIX_ADMIN_TOKEN"`
	MaxRetries    int           `env:"MATRIX_MAX_RETRIES,      default=3"`
	RetryBaseWait time.Duration `env:"MATRIX_RETRY_BASE_WAIT,  default=500ms"`
	Timeout       time.Duration `env:"MATRIX_TIMEOUT,          default=30s"`
}

// Enabled reports whether a homeserver is configured.
func (c MatrixConfig) Enabled() bool {
	return c.HomeserverURL != ""
}

// VaultConfig holds the credential encryption key as 64 hex characters
// (32 bytes, AES-256).
type VaultConfig struct {
	KeyHex string `env:"VAULT_KEY"`
}

// Key decodes the hex-encoded encryption key.
func (c VaultConfig) Key() ([]byte, error) {
	key, err := hex.DecodeString(c.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode vault key: %w", err)
	}
	return key, nil
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=chatsync"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Matrix.Enabled() {
		if cfg.Matrix.ServerName == "" {
			return nil, fmt.Errorf("MATRIX_SERVER_NAME is required when a homeserver is configured")
		}
		if cfg.Matrix.AdminToken == "" {
			return nil, fmt.Errorf("MATRIX_ADMIN_TOKEN is required when a homeserver is configured")
		}
		if cfg.Vault.KeyHex == "" {
			return nil, fmt.Errorf("VAULT_KEY is required when a homeserver is configured")
		}
	}
	return &cfg, nil
}
