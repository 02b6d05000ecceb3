package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Required values are enforced by must() and
// missing values cause the program to exit; policy knobs fall back to the
// documented defaults.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	MaxLoginAttempts int           // failed logins before lockout
	LockoutDuration  time.Duration // how long a locked account stays locked
	SessionTTL       time.Duration // absolute session lifetime
	HashIterations   int           // PBKDF2 iteration count
	ResetTokenTTL    time.Duration // password reset token lifetime
	AuditRetention   int           // max audit log rows kept
	SessionRetention time.Duration // session rows older than this are pruned
	SweepInterval    time.Duration // how often the background sweep runs
}

// Load reads configuration values from environment variables and returns a
// Config. Database settings are required; authentication policy values are
// optional with defaults matching the documented security posture
// (5 attempts / 15 min lockout, 24 h sessions, 100k PBKDF2 rounds).
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		MaxLoginAttempts: envInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutDuration:  envDur("LOCKOUT_DURATION", 15*time.Minute),
		SessionTTL:       envDur("SESSION_TTL", 24*time.Hour),
		HashIterations:   envInt("PBKDF2_ITERATIONS", 100000),
		ResetTokenTTL:    envDur("RESET_TOKEN_TTL", time.Hour),
		AuditRetention:   envInt("AUDIT_RETENTION_ROWS", 10000),
		SessionRetention: envDur("SESSION_RETENTION", 30*24*time.Hour),
		SweepInterval:    envDur("SWEEP_INTERVAL", 15*time.Minute),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
