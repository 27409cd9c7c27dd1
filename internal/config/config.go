package config // package config loads application configuration from environment variables

import (
    "errors"  // errors.Join collects every missing variable into one report
    "fmt"     // fmt formats validation messages
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings splits list-valued variables
    "time"    // time expresses the access token lifetime

    "golang.org/x/crypto/bcrypt" // bcrypt bounds for the cost factor
)

// Store backends selectable through APP_STORE.
const (
    StoreMySQL  = "mysql"
    StoreMemory = "memory"
)

// Config holds all runtime configuration values.  It is built once at
// startup by Load and passed by value to the components that need it; no
// package keeps a global copy.
type Config struct {
    Env          string   // application environment (e.g. "dev", "prod")
    Port         string   // HTTP port to listen on
    Store        string   // account store backend: mysql or memory
    DBUser       string   // database username
    DBPass       string   // database password (optional)
    DBHost       string   // database host address
    DBPort       string   // database port number
    DBName       string   // database name
    DBMigrate    bool     // run goose migrations on startup
    JWTSecret    string   // secret used to sign JWTs
    AccessTTLMin int      // access token time-to-live in minutes
    BcryptCost   int      // bcrypt cost for password hashing
    CORSOrigins  []string // allowed browser origins
    AMQPURL      string   // RabbitMQ URL for account events; empty disables publishing
    LogLevel     string   // logrus level name
    LogFormat    string   // text or json
}

// AccessTTL returns the default access token lifetime.
func (c Config) AccessTTL() time.Duration {
    return time.Duration(c.AccessTTLMin) * time.Minute
}

// Load reads configuration values from environment variables.  Unlike the
// optional settings, required variables that are unset are collected and
// reported together so operators can fix them in one pass.
func Load() (Config, error) {
    var missing []error
    required := func(key string) string {
        v, ok := os.LookupEnv(key)
        if !ok || strings.TrimSpace(v) == "" {
            missing = append(missing, fmt.Errorf("missing required env var: %s", key))
        }
        return v
    }

    cfg := Config{
        Env:          envStr("APP_ENV", "dev"),
        Port:         envStr("APP_PORT", "8000"),
        Store:        strings.ToLower(envStr("APP_STORE", StoreMySQL)),
        DBPass:       os.Getenv("DB_PASS"),
        DBMigrate:    envBool("DB_MIGRATE", true),
        JWTSecret:    required("JWT_SECRET"),
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 30),
        BcryptCost:   envInt("BCRYPT_COST", bcrypt.DefaultCost),
        CORSOrigins:  envList("CORS_ORIGINS", []string{"http://localhost:5173"}),
        AMQPURL:      AMQPURL(),
        LogLevel:     envStr("LOG_LEVEL", "info"),
        LogFormat:    envStr("LOG_FORMAT", "text"),
    }

    switch cfg.Store {
    case StoreMySQL:
        cfg.DBUser = required("DB_USER")
        cfg.DBHost = required("DB_HOST")
        cfg.DBPort = envStr("DB_PORT", "3306")
        cfg.DBName = required("DB_NAME")
    case StoreMemory:
    default:
        missing = append(missing, fmt.Errorf("invalid APP_STORE %q (want %s or %s)", cfg.Store, StoreMySQL, StoreMemory))
    }

    if cfg.AccessTTLMin < 1 {
        missing = append(missing, fmt.Errorf("invalid ACCESS_TOKEN_TTL_MIN: %d", cfg.AccessTTLMin))
    }
    if cfg.BcryptCost < bcrypt.MinCost {
        cfg.BcryptCost = bcrypt.MinCost
    }
    if cfg.BcryptCost > bcrypt.MaxCost {
        cfg.BcryptCost = bcrypt.MaxCost
    }

    if err := errors.Join(missing...); err != nil {
        return Config{}, err
    }
    return cfg, nil
}

// AMQPURL resolves the broker URL from RABBITMQ_URL or AMQP_URL.  An empty
// result means event publishing is disabled.
func AMQPURL() string {
    if url := os.Getenv("RABBITMQ_URL"); url != "" {
        return url
    }
    return os.Getenv("AMQP_URL")
}

func envList(k string, d []string) []string {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    var out []string
    for _, p := range strings.Split(v, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    if len(out) == 0 {
        return d
    }
    return out
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
