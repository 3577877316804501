package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, DefaultBatchSize)
	}
	if cfg.GetBatchDelayDuration() != 50*time.Millisecond {
		t.Errorf("BatchDelay = %v, want 50ms", cfg.GetBatchDelayDuration())
	}
	if cfg.Transport.Type != TransportARM || cfg.Transport.URL != DefaultARMURL {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	if cfg.Transport.APIVersion != DefaultAPIVersion || cfg.Transport.BatchAPIVersion != DefaultBatchAPIVersion {
		t.Errorf("api versions = %q/%q", cfg.Transport.APIVersion, cfg.Transport.BatchAPIVersion)
	}
	if cfg.IsCacheEnabled() || cfg.IsCircuitBreakerEnabled() {
		t.Error("cache and circuit breaker should be off by default")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"bad json", `{`, "failed to parse"},
		{"negative batch size", `{"batchSize":-1}`, "batchSize"},
		{"negative delay", `{"batchDelay":-5}`, "batchDelay"},
		{"bad log level", `{"logLevel":"loud"}`, "logLevel"},
		{"bad transport", `{"transport":{"type":"grpc","url":"x"}}`, "transport.type"},
		{"jsonrpc without url", `{"transport":{"type":"jsonrpc"}}`, "transport.url"},
		{"cache without ttl", `{"cache":{"enabled":true,"size":10}}`, "cache.ttl"},
		{"cache without size", `{"cache":{"enabled":true,"ttl":10}}`, "cache.size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{
		"batchSize": 3,
		"transport": {"type": "jsonrpc", "url": "http://localhost:8545"},
		"cache": {"enabled": true, "ttl": 60, "size": 100},
		"resources": ["/a", "/b"]
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("ARM_TOKEN", "Bearer env")
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.BatchSize != 3 || len(cfg.Resources) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Cache.GetTTLDuration() != time.Minute {
		t.Errorf("TTL = %v", cfg.Cache.GetTTLDuration())
	}
	if cfg.Transport.Token != "Bearer env" {
		t.Errorf("Token = %q, want value from ARM_TOKEN", cfg.Transport.Token)
	}
}

func TestLoadWithDefaults_MissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Transport.URL != DefaultARMURL {
		t.Errorf("URL = %q", cfg.Transport.URL)
	}
}
