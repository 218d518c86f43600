// Package config provides configuration management for docupdate services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/solatis/docupdate/internal/types"
)

// EnvPrefix is the prefix of every environment variable docupdate reads.
const EnvPrefix = "DU"

// ServerConfig holds configuration for the document service.
type ServerConfig struct {
	Host            string
	GRPCPort        int
	HTTPPort        int
	MaxConnections  int
	RequestTimeout  time.Duration
	MaxDocumentSize int
	MaxBatchSize    int
	Store           StoreConfig
}

// StoreConfig controls document persistence.
type StoreConfig struct {
	// MaxRetries bounds compare-and-swap attempts when writers race.
	MaxRetries int
	// Compress enables lz4 compression of stored document blobs.
	Compress bool
}

// DefaultServerConfig returns configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		GRPCPort:        50051,
		HTTPPort:        8080,
		MaxConnections:  1000,
		RequestTimeout:  30 * time.Second,
		MaxDocumentSize: types.MaxDocumentSize,
		MaxBatchSize:    types.MaxBatchOperations,
		Store: StoreConfig{
			MaxRetries: 5,
			Compress:   true,
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports DU_HMAC_SECRET (single) and DU_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)
	single := EnvPrefix + "_HMAC_SECRET"

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv(single); val != "" {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", single, err)
		}
		secrets[secretID] = decoded
	}

	// Numbered secrets keep old and new keys valid during rotation
	for i := 1; ; i++ {
		key := fmt.Sprintf("%s_%d", single, i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return nil, fmt.Errorf("duplicate secret_id '%s' found in environment variables (check %s and %s_* for conflicts)", secretID, single, single)
		}
		secrets[secretID] = decoded
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}

	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return secretID, secret, nil
}
