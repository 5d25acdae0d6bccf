package auth

// Config holds HTTP-level limits for the auth endpoints.
type Config struct {
	// MaxBodyBytes caps the request body size accepted by the JSON decoder.
	MaxBodyBytes int64
}

// DefaultConfig returns the default auth HTTP limits.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: 1 << 20, // 1 MiB
	}
}

func (c Config) withDefaults() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	return c
}
