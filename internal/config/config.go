package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Migrate  MigrateConfig  `yaml:"migrate"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"             env:"FBMS_HTTP_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"FBMS_HTTP_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"FBMS_HTTP_WRITE_TIMEOUT"    env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"FBMS_HTTP_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"FBMS_HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"FBMS_HTTP_MAX_BODY_BYTES"   env-default:"1048576"`
	RateBurst       int           `yaml:"rate_burst"       env:"FBMS_HTTP_RATE_BURST"       env-default:"40"`
	RatePerSecond   int           `yaml:"rate_per_second"  env:"FBMS_HTTP_RATE_PER_SECOND"  env-default:"20"`
	AllowedOrigins  []string      `yaml:"allowed_origins"  env:"FBMS_HTTP_ALLOWED_ORIGINS"  env-separator:","`
	TrustedProxies  []string      `yaml:"trusted_proxies"  env:"FBMS_HTTP_TRUSTED_PROXIES"  env-separator:","`
	StreamHeartbeat time.Duration `yaml:"stream_heartbeat" env:"FBMS_HTTP_STREAM_HEARTBEAT" env-default:"10s"`
}

// GRPCConfig holds the gRPC health endpoint settings. Empty Addr disables it.
type GRPCConfig struct {
	Addr string `yaml:"addr" env:"FBMS_GRPC_ADDR" env-default:":9090"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"FBMS_DB_DSN"`
	Host            string        `yaml:"host"               env:"FBMS_DB_HOST"               env-default:"localhost"`
	Port            int           `yaml:"port"               env:"FBMS_DB_PORT"               env-default:"5432"`
	User            string        `yaml:"user"               env:"FBMS_DB_USER"               env-default:"fbms"`
	Password        string        `yaml:"password"           env:"FBMS_DB_PASSWORD"`
	Name            string        `yaml:"name"               env:"FBMS_DB_NAME"               env-default:"fbms"`
	SSLMode         string        `yaml:"sslmode"            env:"FBMS_DB_SSLMODE"            env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns"     env:"FBMS_DB_MAX_OPEN_CONNS"     env-default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns"     env:"FBMS_DB_MAX_IDLE_CONNS"     env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"  env:"FBMS_DB_CONN_MAX_LIFETIME"  env-default:"15m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"FBMS_DB_CONN_MAX_IDLE_TIME" env-default:"5m"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"   env:"FBMS_JWT_SECRET"   env-required:"true"`
	Issuer      string        `yaml:"issuer"       env:"FBMS_JWT_ISSUER"   env-default:"fbms"`
	TokenTTL    time.Duration `yaml:"token_ttl"    env:"FBMS_TOKEN_TTL"    env-default:"60m"`
	DefaultRole string        `yaml:"default_role" env:"FBMS_DEFAULT_ROLE" env-default:"employee"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"FBMS_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"FBMS_LOG_FORMAT" env-default:"json"`
}

// MigrateConfig controls schema handling at startup.
type MigrateConfig struct {
	OnStart bool `yaml:"on_start" env:"FBMS_MIGRATE_ON_START" env-default:"false"`
	Seed    bool `yaml:"seed"     env:"FBMS_MIGRATE_SEED"     env-default:"false"`
}

// ConnString returns the DSN override when set, otherwise a postgres URL
// assembled from the discrete connection fields.
func (c DatabaseConfig) ConnString() string {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted returns the connection target without credentials, for logs.
func (c DatabaseConfig) Redacted() string {
	if strings.TrimSpace(c.DSN) != "" {
		u, err := url.Parse(c.DSN)
		if err != nil {
			return "dsn"
		}
		return u.Redacted()
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Name)
}
