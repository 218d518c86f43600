package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*ServerConfig, error) {
	v := viper.New()
	def := DefaultServerConfig()

	v.SetDefault("server.host", def.Host)
	v.SetDefault("server.grpc_port", def.GRPCPort)
	v.SetDefault("server.http_port", def.HTTPPort)
	v.SetDefault("server.max_connections", def.MaxConnections)
	v.SetDefault("server.request_timeout", def.RequestTimeout.String())
	v.SetDefault("server.max_document_size", def.MaxDocumentSize)
	v.SetDefault("server.max_batch_size", def.MaxBatchSize)
	v.SetDefault("store.max_retries", def.Store.MaxRetries)
	v.SetDefault("store.compress", def.Store.Compress)

	// DU_SERVER_GRPC_PORT overrides server.grpc_port
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &ServerConfig{
		Host:            v.GetString("server.host"),
		GRPCPort:        v.GetInt("server.grpc_port"),
		HTTPPort:        v.GetInt("server.http_port"),
		MaxConnections:  v.GetInt("server.max_connections"),
		RequestTimeout:  v.GetDuration("server.request_timeout"),
		MaxDocumentSize: v.GetInt("server.max_document_size"),
		MaxBatchSize:    v.GetInt("server.max_batch_size"),
		Store: StoreConfig{
			MaxRetries: v.GetInt("store.max_retries"),
			Compress:   v.GetBool("store.compress"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port ranges and positive limits.
func validateConfig(cfg *ServerConfig) error {
	if cfg.GRPCPort <= 0 || cfg.GRPCPort > 65535 {
		return fmt.Errorf("grpc_port must be between 1 and 65535, got %d", cfg.GRPCPort)
	}
	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 0 and 65535, got %d", cfg.HTTPPort)
	}
	if cfg.HTTPPort != 0 && cfg.HTTPPort == cfg.GRPCPort {
		return fmt.Errorf("http_port and grpc_port must differ, both are %d", cfg.GRPCPort)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxDocumentSize <= 0 {
		return fmt.Errorf("max_document_size must be positive, got %d", cfg.MaxDocumentSize)
	}
	if cfg.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.MaxBatchSize)
	}
	if cfg.Store.MaxRetries <= 0 {
		return fmt.Errorf("store.max_retries must be positive, got %d", cfg.Store.MaxRetries)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use %s_HMAC_SECRET environment variable)", EnvPrefix)
	}
	return nil
}
