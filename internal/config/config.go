package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the development secret. It is refused in production.
const DefaultJWTSecret = "change-me-in-production-please"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	App       AppConfig      `envPrefix:"APP_"`
	Server    ServerConfig   `envPrefix:"SERVER_"`
	Database  DatabaseConfig `envPrefix:"DB_"`
	JWT       JWTConfig      `envPrefix:"JWT_"`
	Security  SecurityConfig
	Upload    UploadConfig    `envPrefix:"UPLOAD_"`
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
}

type AppConfig struct {
	Env  string `env:"ENV" envDefault:"development"`
	Name string `env:"NAME" envDefault:"mentor-match"`
}

type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envDefault:"*"`
}

type DatabaseConfig struct {
	Driver       string        `env:"DRIVER" envDefault:"sqlite"`
	DSN          string        `env:"DSN" envDefault:"file:mentor_match.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" envDefault:"5s"`
}

type JWTConfig struct {
	Secret   string        `env:"SECRET" envDefault:"change-me-in-production-please"`
	Issuer   string        `env:"ISSUER" envDefault:"mentor-mentee-app"`
	Audience string        `env:"AUDIENCE" envDefault:"mentor-mentee-users"`
	TTL      time.Duration `env:"TTL" envDefault:"1h"`
}

type SecurityConfig struct {
	BcryptCost        int `env:"BCRYPT_COST" envDefault:"10"`
	AuthMaxConcurrent int `env:"AUTH_MAX_CONCURRENT" envDefault:"8"`
}

type UploadConfig struct {
	MaxImageSize      int64    `env:"MAX_IMAGE_SIZE" envDefault:"1048576"`
	AllowedImageTypes []string `env:"ALLOWED_IMAGE_TYPES" envDefault:"image/jpeg,image/png"`
}

type SchedulerConfig struct {
	Enabled         bool   `env:"ENABLED" envDefault:"true"`
	MaintenanceSpec string `env:"MAINTENANCE_SPEC" envDefault:"@every 1h"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Pretty bool   `env:"PRETTY" envDefault:"false"`
}

// Load reads an optional .env file, then the process environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of development, production, test; got %q", c.App.Env))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 20 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 20, got %d", c.Security.BcryptCost))
	}
	if c.Security.AuthMaxConcurrent < 1 {
		errs = append(errs, errors.New("AUTH_MAX_CONCURRENT must be positive"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, errors.New("DB_QUERY_TIMEOUT must be positive"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.Issuer == "" || c.JWT.Audience == "" {
		errs = append(errs, errors.New("JWT_ISSUER and JWT_AUDIENCE are required"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.IsProduction() && c.JWT.Secret == DefaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be changed in production"))
	}
	if c.Upload.MaxImageSize <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_IMAGE_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}

func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
