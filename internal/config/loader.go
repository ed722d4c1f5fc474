package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEALERD_* environment variable overrides, and
// returns the final Config. An empty path skips the file and starts from
// defaults. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEALERD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "DEALERD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "DEALERD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "DEALERD_SERVER_API_KEY")

	// ── Session ──
	setStr(&cfg.Session.Exchange, "DEALERD_SESSION_EXCHANGE")
	setStr(&cfg.Session.Symbol, "DEALERD_SESSION_SYMBOL")
	setFloat64(&cfg.Session.Pips, "DEALERD_SESSION_PIPS")
	setFloat64(&cfg.Session.Lower, "DEALERD_SESSION_LOWER")
	setFloat64(&cfg.Session.Upper, "DEALERD_SESSION_UPPER")
	setDuration(&cfg.Session.PollInterval, "DEALERD_SESSION_POLL_INTERVAL")

	// ── bitFlyer ──
	setStr(&cfg.Bitflyer.APIKey, "DEALERD_BITFLYER_API_KEY")
	setStr(&cfg.Bitflyer.APISecret, "DEALERD_BITFLYER_API_SECRET")
	setStr(&cfg.Bitflyer.RESTEndpoint, "DEALERD_BITFLYER_REST_ENDPOINT")
	setStr(&cfg.Bitflyer.WSEndpoint, "DEALERD_BITFLYER_WS_ENDPOINT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "DEALERD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "DEALERD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEALERD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEALERD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DEALERD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DEALERD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DEALERD_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "DEALERD_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "DEALERD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "DEALERD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DEALERD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DEALERD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DEALERD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DEALERD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DEALERD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "DEALERD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "DEALERD_POSTGRES_POOL_MIN_CONNS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "DEALERD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
