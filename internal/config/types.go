package config

import "time"

// TransportType selects the batch endpoint protocol
type TransportType string

const (
	TransportARM       TransportType = "arm"
	TransportJSONRPC   TransportType = "jsonrpc"
	TransportJSONRPCWS TransportType = "jsonrpc-ws"
)

// Config represents the main configuration structure
type Config struct {
	LogLevel          string                `json:"logLevel"`
	BatchSize         int                   `json:"batchSize"`
	BatchDelay        int                   `json:"batchDelay"`     // ms - debounce window before a batch is sent
	RequestTimeout    int                   `json:"requestTimeout"` // ms - per physical batch call
	SimulatedSpreadMs int                   `json:"simulatedSpreadMs"`
	Transport         TransportConfig       `json:"transport"`
	CircuitBreaker    *CircuitBreakerConfig `json:"circuitBreaker,omitempty"`
	Cache             *CacheConfig          `json:"cache,omitempty"`
	Resources         []string              `json:"resources"`
}

// TransportConfig describes the remote batch endpoint
type TransportConfig struct {
	Type            TransportType `json:"type"`
	URL             string        `json:"url"`
	Token           string        `json:"token"`           // sent as Authorization header
	APIVersion      string        `json:"apiVersion"`      // ARM api-version of each request
	BatchAPIVersion string        `json:"batchApiVersion"` // ARM api-version of the batch endpoint
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled             bool `json:"enabled"`
	FailureThreshold    int  `json:"failureThreshold"`
	RecoveryTimeout     int  `json:"recoveryTimeout"` // ms
	HalfOpenMaxRequests int  `json:"halfOpenMaxRequests"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	Enabled bool `json:"enabled"`
	TTL     int  `json:"ttl"`  // seconds
	Size    int  `json:"size"` // number of entries
}

// Default values
const (
	DefaultLogLevel          = "info"
	DefaultBatchSize         = 20
	DefaultBatchDelay        = 50    // ms
	DefaultRequestTimeout    = 30000 // ms
	DefaultSimulatedSpreadMs = 5000  // ms
	DefaultTransportType     = TransportARM
	DefaultARMURL            = "https://management.azure.com"
	DefaultAPIVersion        = "2015-05-01"
	DefaultBatchAPIVersion   = "2015-11-01"
)

// GetBatchDelayDuration returns the debounce delay as time.Duration
func (c *Config) GetBatchDelayDuration() time.Duration {
	return time.Duration(c.BatchDelay) * time.Millisecond
}

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// GetSimulatedSpreadDuration returns the CLI start spread as time.Duration
func (c *Config) GetSimulatedSpreadDuration() time.Duration {
	return time.Duration(c.SimulatedSpreadMs) * time.Millisecond
}

// IsCacheEnabled returns true if cache is configured and enabled
func (c *Config) IsCacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled
}

// IsCircuitBreakerEnabled returns true if the circuit breaker is configured and enabled
func (c *Config) IsCircuitBreakerEnabled() bool {
	return c.CircuitBreaker != nil && c.CircuitBreaker.Enabled
}

// GetTTLDuration returns cache TTL as time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// GetRecoveryTimeoutDuration returns the breaker recovery timeout as time.Duration
func (c *CircuitBreakerConfig) GetRecoveryTimeoutDuration() time.Duration {
	return time.Duration(c.RecoveryTimeout) * time.Millisecond
}
