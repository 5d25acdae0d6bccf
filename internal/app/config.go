package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	// Token signing policy.
	TokenSecret string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration

	// Expiry sweep policy.
	SweepInterval time.Duration
	SweepHourUTC  int

	// Avatar storage. Backend is "local" or "s3".
	AvatarBackend string
	AvatarDir     string
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string

	MaxBodyBytes int64
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("BEACON_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("BEACON_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("BEACON_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BEACON_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BEACON_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BEACON_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("BEACON_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("BEACON_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("BEACON_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("BEACON_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("BEACON_MIGRATE_ON_START", true),

		ReadinessRequireDB: EnvBool("BEACON_READINESS_REQUIRE_DB", false),

		TokenSecret: EnvString("BEACON_TOKEN_SECRET", ""),
		AccessTTL:   EnvDuration("BEACON_ACCESS_TTL", 2*time.Minute),
		RefreshTTL:  EnvDuration("BEACON_REFRESH_TTL", 720*time.Hour),

		SweepInterval: EnvDuration("BEACON_SWEEP_INTERVAL", 24*time.Hour),
		SweepHourUTC:  EnvInt("BEACON_SWEEP_HOUR_UTC", 3),

		AvatarBackend: EnvString("BEACON_AVATAR_BACKEND", "local"),
		AvatarDir:     EnvString("BEACON_AVATAR_DIR", "./uploads/avatars"),
		S3Endpoint:    EnvString("BEACON_S3_ENDPOINT", ""),
		S3Region:      EnvString("BEACON_S3_REGION", "us-east-1"),
		S3Bucket:      EnvString("BEACON_S3_BUCKET", ""),
		S3AccessKey:   EnvString("BEACON_S3_ACCESS_KEY", ""),
		S3SecretKey:   EnvString("BEACON_S3_SECRET_KEY", ""),

		MaxBodyBytes: int64(EnvInt("BEACON_HTTP_MAX_BODY_BYTES", 1<<20)),
	}
}
