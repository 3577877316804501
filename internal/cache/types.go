package cache

// Cache stores raw batch item payloads keyed by logical request.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached payload and true if present and not expired
	Get(key string) ([]byte, bool)

	// Set stores a payload under key
	Set(key string, value []byte)

	// Close releases any resources held by the cache
	Close()
}
