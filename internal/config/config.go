package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host        string
	Port        string
	Environment string
	LogLevel    string

	DatabasePath   string
	BackupPath     string
	BackupInterval time.Duration

	ClaimResolverURL     string
	ClaimResolverTimeout time.Duration

	WriteConcurrency  int
	WritePendingLimit int

	RedisURL     string
	ListCacheTTL time.Duration

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	ResendAPIKey    string
	FromEmail       string
	ModeratorEmails []string

	AdminJWTSecret string

	CORSOrigins     string
	ShutdownTimeout time.Duration

	// values that were set but could not be parsed; reported by Validate
	loadErrs []error
}

func Load() *Config {
	dbPath := getEnv("DATABASE_PATH", filepath.Join("database", "comments.db"))
	var loadErrs []error

	cfg := &Config{
		Host:        getEnv("HOST", "0.0.0.0"),
		Port:        getEnv("PORT", "5921"),
		Environment: getEnv("ENVIRONMENT", "production"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabasePath:   dbPath,
		BackupPath:     getEnv("BACKUP_PATH", BackupPathFor(dbPath)),
		BackupInterval: getDurationEnv("BACKUP_INTERVAL", time.Hour),

		ClaimResolverURL:     getEnv("CLAIM_RESOLVER_URL", "http://localhost:5279"),
		ClaimResolverTimeout: getDurationEnv("CLAIM_RESOLVER_TIMEOUT", 0),

		WriteConcurrency:  getStrictIntEnv("WRITE_CONCURRENCY", 1, &loadErrs),
		WritePendingLimit: getStrictIntEnv("WRITE_PENDING_LIMIT", 0, &loadErrs),

		RedisURL:     getEnv("REDIS_URL", ""),
		ListCacheTTL: getDurationEnv("LIST_CACHE_TTL", time.Minute),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "comment-backups"),
		MinIOUseSSL:    getBoolEnv("MINIO_USE_SSL", false),

		ResendAPIKey:    getEnv("RESEND_API_KEY", ""),
		FromEmail:       getEnv("FROM_EMAIL", "noreply@example.com"),
		ModeratorEmails: getListEnv("MODERATOR_EMAILS"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
	cfg.loadErrs = loadErrs
	return cfg
}

var dbSuffix = regexp.MustCompile(`\.db$`)

// BackupPathFor derives the sibling backup file of a database path:
// a trailing ".db" becomes ".backup.db", anything else gets ".backup" appended.
func BackupPathFor(dbPath string) string {
	if dbSuffix.MatchString(dbPath) {
		return dbSuffix.ReplaceAllString(dbPath, ".backup.db")
	}
	return dbPath + ".backup"
}

var ErrBackupIsPrimary = errors.New("backup path must differ from the database path")

// Validate rejects configurations the server cannot run with. It is called
// before any connection is opened.
func (c *Config) Validate() error {
	if err := errors.Join(c.loadErrs...); err != nil {
		return err
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH is required")
	}
	if c.BackupPath == "" {
		return errors.New("backup path is empty")
	}
	if samePath(c.DatabasePath, c.BackupPath) {
		return fmt.Errorf("%w: %s", ErrBackupIsPrimary, c.BackupPath)
	}
	if c.BackupInterval <= 0 {
		return errors.New("BACKUP_INTERVAL must be positive")
	}
	if c.WriteConcurrency < 1 {
		return errors.New("WRITE_CONCURRENCY must be at least 1")
	}
	if c.WritePendingLimit < 0 {
		return errors.New("WRITE_PENDING_LIMIT must not be negative")
	}
	if c.ClaimResolverURL == "" {
		return errors.New("CLAIM_RESOLVER_URL is required")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getStrictIntEnv reports a malformed value instead of falling back to the
// default.
func getStrictIntEnv(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
