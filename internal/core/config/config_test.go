package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	testSecret1 = "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	testSecret2 = "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	testSecret3 = "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
)

func clearSecretEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DU_HMAC_SECRET", "DU_HMAC_SECRET_1", "DU_HMAC_SECRET_2"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHMACSecrets(t *testing.T) {
	t.Run("single secret", func(t *testing.T) {
		clearSecretEnv(t)
		t.Setenv("DU_HMAC_SECRET", testSecret1)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		clearSecretEnv(t)
		t.Setenv("DU_HMAC_SECRET_1", testSecret1)
		t.Setenv("DU_HMAC_SECRET_2", testSecret2)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("no secrets", func(t *testing.T) {
		clearSecretEnv(t)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 0 {
			t.Errorf("expected no secrets, got %d", len(secrets))
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		clearSecretEnv(t)
		t.Setenv("DU_HMAC_SECRET", "invalid_format")

		if _, err := HMACSecrets(); err == nil {
			t.Error("expected error for invalid format")
		}
	})

	t.Run("duplicate secret_id in numbered secrets", func(t *testing.T) {
		clearSecretEnv(t)
		t.Setenv("DU_HMAC_SECRET_1", testSecret1)
		t.Setenv("DU_HMAC_SECRET_2", testSecret3)

		if _, err := HMACSecrets(); err == nil {
			t.Error("expected error for duplicate secret_id")
		}
	})

	t.Run("duplicate secret_id between single and numbered", func(t *testing.T) {
		clearSecretEnv(t)
		t.Setenv("DU_HMAC_SECRET", testSecret1)
		t.Setenv("DU_HMAC_SECRET_1", testSecret3)

		if _, err := HMACSecrets(); err == nil {
			t.Error("expected error for duplicate secret_id between DU_HMAC_SECRET and DU_HMAC_SECRET_1")
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.Host)
		}
		if cfg.GRPCPort != 50051 {
			t.Errorf("expected grpc port 50051, got %d", cfg.GRPCPort)
		}
		if cfg.HTTPPort != 8080 {
			t.Errorf("expected http port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.RequestTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.RequestTimeout)
		}
		if cfg.MaxBatchSize != 256 {
			t.Errorf("expected max_batch_size 256, got %d", cfg.MaxBatchSize)
		}
		if cfg.Store.MaxRetries != 5 || !cfg.Store.Compress {
			t.Errorf("unexpected store config %+v", cfg.Store)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("DU_SERVER_GRPC_PORT", "9999")
		t.Setenv("DU_SERVER_HOST", "127.0.0.1")
		t.Setenv("DU_STORE_COMPRESS", "false")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.GRPCPort != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.GRPCPort)
		}
		if cfg.Host != "127.0.0.1" {
			t.Errorf("expected host 127.0.0.1, got %s", cfg.Host)
		}
		if cfg.Store.Compress {
			t.Error("expected compression disabled")
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, "server:\n  request_timeout: 5s\nstore:\n  max_retries: 9\n")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.RequestTimeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", cfg.RequestTimeout)
		}
		if cfg.Store.MaxRetries != 9 {
			t.Errorf("expected max_retries 9, got %d", cfg.Store.MaxRetries)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		t.Setenv("DU_SERVER_GRPC_PORT", "70000")

		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for port > 65535")
		}
	})

	t.Run("same port for both listeners", func(t *testing.T) {
		t.Setenv("DU_SERVER_GRPC_PORT", "8080")

		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for shared port")
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		t.Setenv("DU_STORE_MAX_RETRIES", "-1")

		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for negative max_retries")
		}
	})
}

func TestParseHMACSecretWithID(t *testing.T) {
	t.Run("valid format", func(t *testing.T) {
		secretID, secret, err := ParseHMACSecretWithID(testSecret1)
		if err != nil {
			t.Fatalf("ParseHMACSecretWithID failed: %v", err)
		}
		if secretID != "0123456789abcdef0123456789abcdef" {
			t.Errorf("unexpected secret_id: %s", secretID)
		}
		if len(secret) < 32 {
			t.Errorf("secret too short: %d bytes", len(secret))
		}
	})

	tests := []struct {
		name  string
		value string
	}{
		{"missing colon", "0123456789abcdef0123456789abcdef"},
		{"short secret_id", "tooshort:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"},
		{"non-hex secret_id", "0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"},
		{"invalid base64", "0123456789abcdef0123456789abcdef:not-valid-base64!!!"},
		{"secret too short", "0123456789abcdef0123456789abcdef:c2hvcnQ="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseHMACSecretWithID(tt.value); err == nil {
				t.Errorf("expected error for %q", tt.value)
			}
		})
	}
}
