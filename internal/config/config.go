package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Identity IdentityConfig `mapstructure:"identity"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

// IdentityConfig covers both sides of token handling: what the embedded
// identity provider stamps into tokens it issues, and what the verifier
// demands of tokens it accepts. Keeping them in one section keeps the two
// in agreement in the single-binary setup.
type IdentityConfig struct {
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	JWKSURL         string        `mapstructure:"jwks_url"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`

	// MaxTokenAge bounds how long after issuance a token is accepted,
	// independent of its expiry claim.
	MaxTokenAge time.Duration `mapstructure:"max_token_age"`

	KeyCacheTTL     time.Duration `mapstructure:"key_cache_ttl"`
	RefreshCooldown time.Duration `mapstructure:"refresh_cooldown"`
	RefreshTimeout  time.Duration `mapstructure:"refresh_timeout"`
}

type TasksConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" || d.Driver == "" {
		if d.Name == ":memory:" {
			return ":memory:"
		}
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../..")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "taskboard")
	viper.SetDefault("database.pool_size", 10)
	viper.SetDefault("database.path", "./data")
	viper.SetDefault("identity.issuer", "http://localhost:8080")
	viper.SetDefault("identity.audience", "taskboard-api")
	// Empty jwks_url means the embedded identity provider's keys are used
	// directly; set it to point the verifier at an external IdP.
	viper.SetDefault("identity.jwks_url", "")
	viper.SetDefault("identity.access_token_ttl", "15m")
	viper.SetDefault("identity.refresh_token_ttl", "168h")
	viper.SetDefault("identity.max_token_age", "1h")
	viper.SetDefault("identity.key_cache_ttl", "10m")
	viper.SetDefault("identity.refresh_cooldown", "30s")
	viper.SetDefault("identity.refresh_timeout", "5s")
	viper.SetDefault("tasks.page_size", 25)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file: defaults plus env cover the demo setup.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
