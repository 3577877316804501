package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadWithDefaults reads the configuration file, falling back to defaults
// when the file does not exist. The token can be supplied through ARM_TOKEN.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
		applyDefaults(cfg)
		err = nil
	}
	if err != nil {
		return nil, err
	}

	if cfg.Transport.Token == "" {
		cfg.Transport.Token = os.Getenv("ARM_TOKEN")
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes, defaults and validates configuration bytes
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.SimulatedSpreadMs == 0 {
		cfg.SimulatedSpreadMs = DefaultSimulatedSpreadMs
	}
	if cfg.Transport.Type == "" {
		cfg.Transport.Type = DefaultTransportType
	}
	if cfg.Transport.Type == TransportARM {
		if cfg.Transport.URL == "" {
			cfg.Transport.URL = DefaultARMURL
		}
		if cfg.Transport.APIVersion == "" {
			cfg.Transport.APIVersion = DefaultAPIVersion
		}
		if cfg.Transport.BatchAPIVersion == "" {
			cfg.Transport.BatchAPIVersion = DefaultBatchAPIVersion
		}
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batchSize must be positive")
	}
	if cfg.BatchDelay <= 0 {
		return fmt.Errorf("batchDelay must be positive")
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("requestTimeout must be non-negative")
	}
	if cfg.SimulatedSpreadMs < 0 {
		return fmt.Errorf("simulatedSpreadMs must be non-negative")
	}

	switch cfg.Transport.Type {
	case TransportARM, TransportJSONRPC, TransportJSONRPCWS:
	default:
		return fmt.Errorf("transport.type must be one of: arm, jsonrpc, jsonrpc-ws")
	}
	if cfg.Transport.URL == "" {
		return errors.New("transport.url is required")
	}

	if cfg.IsCircuitBreakerEnabled() {
		cb := cfg.CircuitBreaker
		if cb.FailureThreshold < 0 || cb.RecoveryTimeout < 0 || cb.HalfOpenMaxRequests < 0 {
			return fmt.Errorf("circuitBreaker values must be non-negative")
		}
	}

	if cfg.IsCacheEnabled() {
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive when cache is enabled")
		}
		if cfg.Cache.Size <= 0 {
			return fmt.Errorf("cache.size must be positive when cache is enabled")
		}
	}

	return nil
}
