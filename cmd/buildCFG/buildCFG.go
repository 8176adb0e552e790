package buildCFG

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"regportal/internal/registration"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	DefaultAdminPassword = "admin123"
)

type ServerConfig struct {
	Port   string
	Mode   string
	Driver string
	// CORSOrigins may send credentialed cross-origin requests. Empty means
	// any origin, without credentials.
	CORSOrigins []string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool
}

type SeedConfig struct {
	AdminUsername string
	AdminPassword string
}

type MigrationsConfig struct {
	Path               string
	RollbackOnShutdown bool
}

type AppConfig struct {
	ExportsDir  string
	MaxAttempts int
}

func stringOr(cfg *config.Config, key, def string) string {
	if v := strings.TrimSpace(cfg.GetString(key)); v != "" {
		return v
	}
	return def
}

func boolOr(cfg *config.Config, key string, def bool, log *zerolog.Logger) bool {
	raw := strings.TrimSpace(cfg.GetString(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid boolean, using default")
		return def
	}
	return v
}

func listOf(cfg *config.Config, key string) []string {
	var out []string
	for _, v := range strings.Split(cfg.GetString(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func durationOr(cfg *config.Config, key string, def time.Duration, log *zerolog.Logger) time.Duration {
	raw := strings.TrimSpace(cfg.GetString(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("invalid duration, using default")
		return def
	}
	return d
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	sc := ServerConfig{
		Port:   stringOr(cfg, "server.port", "8080"),
		Mode:   stringOr(cfg, "server.mode", "release"),
		Driver: stringOr(cfg, "storage.driver", DriverPostgres),

		CORSOrigins: listOf(cfg, "server.cors_origins"),
	}
	if sc.Driver != DriverPostgres && sc.Driver != DriverMemory {
		log.Warn().Str("driver", sc.Driver).Msg("unknown storage driver, falling back to postgres")
		sc.Driver = DriverPostgres
	}
	log.Info().Str("port", sc.Port).Str("mode", sc.Mode).Str("driver", sc.Driver).
		Strs("cors_origins", sc.CORSOrigins).Msg("server config loaded")
	return sc
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := strings.TrimSpace(cfg.GetString("postgres.master_dsn"))
	if masterDSN == "" {
		return "", nil, nil, errors.New("postgres.master_dsn is required")
	}

	slaveDSNs := listOf(cfg, "postgres.slave_dsns")

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("postgres.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("postgres.max_idle_conns"),
		ConnMaxLifetime: durationOr(cfg, "postgres.conn_max_lifetime", 5*time.Minute, log),
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}

	log.Info().Int("slaves", len(slaveDSNs)).Int("max_open_conns", opts.MaxOpenConns).Msg("db config loaded")
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      strings.TrimSpace(cfg.GetString("rabbitmq.url")),
		Exchange: stringOr(cfg, "rabbitmq.exchange", "portal.exports"),
		Queue:    stringOr(cfg, "rabbitmq.queue", "portal.exports.jobs"),
	}
	if rc.Url == "" {
		return rc, errors.New("rabbitmq.url is required")
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("rabbitmq config loaded")
	return rc, nil
}

func BuildAuthConfig(cfg *config.Config, log *zerolog.Logger) (AuthConfig, error) {
	ac := AuthConfig{
		JWTSecret:    strings.TrimSpace(cfg.GetString("auth.jwt_secret")),
		TokenTTL:     durationOr(cfg, "auth.token_ttl", 7*24*time.Hour, log),
		CookieSecure: boolOr(cfg, "auth.cookie_secure", false, log),
	}
	if ac.JWTSecret == "" {
		return ac, errors.New("auth.jwt_secret is required")
	}
	if len(ac.JWTSecret) < 16 {
		return ac, fmt.Errorf("auth.jwt_secret must be at least 16 characters, got %d", len(ac.JWTSecret))
	}
	return ac, nil
}

func BuildSeedConfig(cfg *config.Config) SeedConfig {
	return SeedConfig{
		AdminUsername: stringOr(cfg, "seed.admin_username", "admin"),
		AdminPassword: stringOr(cfg, "seed.admin_password", DefaultAdminPassword),
	}
}

func BuildMigrationsConfig(cfg *config.Config, log *zerolog.Logger) MigrationsConfig {
	return MigrationsConfig{
		Path:               stringOr(cfg, "migrations.path", "migrations/postgres"),
		RollbackOnShutdown: boolOr(cfg, "migrations.rollback_on_shutdown", false, log),
	}
}

func BuildAppConfig(cfg *config.Config) AppConfig {
	ac := AppConfig{
		ExportsDir:  stringOr(cfg, "exports.dir", "exports"),
		MaxAttempts: cfg.GetInt("registration.max_attempts"),
	}
	if ac.MaxAttempts <= 0 || ac.MaxAttempts > registration.DefaultMaxAttempts {
		ac.MaxAttempts = registration.DefaultMaxAttempts
	}
	return ac
}
