package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresUser   string `toml:"postgres_user"`
	PostgresDBName string `toml:"postgres_db_name"`
	MigrationsPath string `toml:"migrations_path"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	LoginRateLimitAllowedPerMin int `toml:"login_rate_limit_allowed_per_min"`

	// root dir for storing post cover images
	CoversRootPath string `toml:"covers_root_path"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development", "ddev", "dockerdev":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var tomlCfg Toml
	if _, err := toml.DecodeFile(path, &tomlCfg); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := tomlCfg.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env %s empty", env)
	}

	cfg.Environment = env
	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides allows the container environment to override the
// connection parameters from the TOML file
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("INKWELL_PORT"); port != "" {
		if portNum, err := strconv.Atoi(port); err == nil {
			c.Port = portNum
		}
	}
	if host := os.Getenv("INKWELL_DB_HOST"); host != "" {
		c.PostgresHost = host
	}
	if port := os.Getenv("INKWELL_DB_PORT"); port != "" {
		c.PostgresPort = port
	}
	if user := os.Getenv("INKWELL_DB_USER"); user != "" {
		c.PostgresUser = user
	}
	if name := os.Getenv("INKWELL_DB_NAME"); name != "" {
		c.PostgresDBName = name
	}
	if host := os.Getenv("INKWELL_REDIS_HOST"); host != "" {
		c.RedisHost = host
	}
	if port := os.Getenv("INKWELL_REDIS_PORT"); port != "" {
		c.RedisPort = port
	}
}
