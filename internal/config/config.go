package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are read with must(); optional
// ones fall back to defaults.
type Config struct {
    Env       string // application environment (e.g. "dev", "prod")
    Port      string // HTTP port to listen on
    JWTSecret string // secret used to verify JWTs issued by the identity service
    LogLevel  string // debug, info, warn, error
    LogFormat string // json or console
    DB        DBConfig
    Redis     RedisConfig
    RateLimit RateLimitConfig
    Ledger    LedgerConfig
    Audit     AuditConfig
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:       must("APP_ENV"),
        Port:      must("APP_PORT"),
        JWTSecret: must("JWT_SECRET"),
        LogLevel:  envStr("LOG_LEVEL", "info"),
        LogFormat: envStr("LOG_FORMAT", defaultLogFormat(os.Getenv("APP_ENV"))),
        DB:        LoadDBConfig(),
        Redis:     LoadRedisConfig(),
        RateLimit: LoadRateLimitConfig(),
        Ledger:    LoadLedgerConfig(),
        Audit:     LoadAuditConfig(),
    }
}

func defaultLogFormat(env string) string {
    if env == "dev" || env == "local" {
        return "console"
    }
    return "json"
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
