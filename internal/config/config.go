package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string `yaml:"port" env:"SERVER_PORT"`
		Mode            string `yaml:"mode" env:"SERVER_MODE"`
		PublicURL       string `yaml:"public_url" env:"PUBLIC_URL"`
		FrontendURL     string `yaml:"frontend_url" env:"FRONTEND_URL"`
		ReadTimeout     string `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    string `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout string `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		URL             string `yaml:"url" env:"DATABASE_URL"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxConns        int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
		MinConns        int    `yaml:"min_conns" env:"DB_MIN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Cookie struct {
		Name         string `yaml:"name" env:"COOKIE_NAME"`
		RefreshName  string `yaml:"refresh_name" env:"COOKIE_REFRESH_NAME"`
		RefreshPath  string `yaml:"refresh_path" env:"COOKIE_REFRESH_PATH"`
		Domain       string `yaml:"domain" env:"COOKIE_DOMAIN"`
		SignupMaxAge string `yaml:"signup_max_age" env:"COOKIE_SIGNUP_MAX_AGE"`
		LoginMaxAge  string `yaml:"login_max_age" env:"COOKIE_LOGIN_MAX_AGE"`
	} `yaml:"cookie"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Storage struct {
		Driver    string `yaml:"driver" env:"STORAGE_DRIVER"`
		LocalPath string `yaml:"local_path" env:"STORAGE_LOCAL_PATH"`
		LocalURL  string `yaml:"local_url" env:"STORAGE_LOCAL_URL"`
		S3        struct {
			Endpoint     string `yaml:"endpoint" env:"S3_ENDPOINT"`
			Region       string `yaml:"region" env:"S3_REGION"`
			Bucket       string `yaml:"bucket" env:"S3_BUCKET"`
			AccessKey    string `yaml:"access_key" env:"S3_ACCESS_KEY"`
			SecretKey    string `yaml:"secret_key" env:"S3_SECRET_KEY"`
			UsePathStyle bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE"`
			PublicURL    string `yaml:"public_url" env:"S3_PUBLIC_URL"`
			PresignTTL   string `yaml:"presign_ttl" env:"S3_PRESIGN_TTL"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	Mongo struct {
		URI      string `yaml:"uri" env:"MONGO_URI"`
		Database string `yaml:"database" env:"MONGO_DATABASE"`
	} `yaml:"mongo"`

	Redis struct {
		Addr            string `yaml:"addr" env:"REDIS_ADDR"`
		Password        string `yaml:"password" env:"REDIS_PASSWORD"`
		DB              int    `yaml:"db" env:"REDIS_DB"`
		ContributorsTTL string `yaml:"contributors_ttl" env:"REDIS_CONTRIBUTORS_TTL"`
		FacetsTTL       string `yaml:"facets_ttl" env:"REDIS_FACETS_TTL"`
	} `yaml:"redis"`

	Email struct {
		Driver       string `yaml:"driver" env:"EMAIL_DRIVER"`
		FromName     string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
		FromEmail    string `yaml:"from_email" env:"EMAIL_FROM"`
		SMTPHost     string `yaml:"smtp_host" env:"SMTP_HOST"`
		SMTPPort     int    `yaml:"smtp_port" env:"SMTP_PORT"`
		SMTPUsername string `yaml:"smtp_username" env:"SMTP_USERNAME"`
		SMTPPassword string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
		SMTPUseTLS   bool   `yaml:"smtp_use_tls" env:"SMTP_USE_TLS"`
		SendGridKey  string `yaml:"sendgrid_key" env:"SENDGRID_API_KEY"`
	} `yaml:"email"`

	Admin struct {
		Email    string `yaml:"email" env:"ADMIN_EMAIL"`
		Name     string `yaml:"name" env:"ADMIN_NAME"`
		Password string `yaml:"password" env:"ADMIN_PASSWORD"`
	} `yaml:"admin"`

	Upload struct {
		MaxBytes       int64 `yaml:"max_bytes" env:"UPLOAD_MAX_BYTES"`
		AvatarMaxBytes int64 `yaml:"avatar_max_bytes" env:"UPLOAD_AVATAR_MAX_BYTES"`
	} `yaml:"upload"`

	RateLimit struct {
		Enabled           bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
		RequestsPerMinute int  `yaml:"requests_per_minute" env:"RATE_LIMIT_RPM"`
		Burst             int  `yaml:"burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"ratelimit"`

	CORS struct {
		AllowedOrigins   []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
		AllowCredentials bool     `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS"`
	} `yaml:"cors"`

	Rollbar struct {
		Token       string `yaml:"token" env:"ROLLBAR_TOKEN"`
		Environment string `yaml:"environment" env:"ROLLBAR_ENV"`
		CodeVersion string `yaml:"code_version" env:"ROLLBAR_CODE_VERSION"`
	} `yaml:"rollbar"`
}

// LoadConfig loads configuration from a file, a .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if file, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// a missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.PublicURL = "http://localhost:8080"
	config.Server.FrontendURL = "http://localhost:3000"
	config.Server.ReadTimeout = "30s"
	config.Server.WriteTimeout = "60s"
	config.Server.ShutdownTimeout = "10s"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "noteverse"
	config.Database.SSLMode = "disable"
	config.Database.MaxConns = 20
	config.Database.MinConns = 2
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "noteverse"

	config.Cookie.Name = "jwt_token"
	config.Cookie.RefreshName = "refresh_token"
	config.Cookie.RefreshPath = "/api/v1/auth"
	config.Cookie.SignupMaxAge = "1h"
	config.Cookie.LoginMaxAge = "120h"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Storage.Driver = "local"
	config.Storage.LocalPath = "uploads"
	config.Storage.LocalURL = "/uploads"
	config.Storage.S3.Region = "us-east-1"
	config.Storage.S3.PresignTTL = "15m"

	config.Mongo.Database = "noteverse"

	config.Redis.ContributorsTTL = "10m"
	config.Redis.FacetsTTL = "5m"

	config.Email.Driver = "log"
	config.Email.FromName = "Noteverse"
	config.Email.FromEmail = "no-reply@noteverse.local"
	config.Email.SMTPPort = 587

	config.Admin.Name = "Administrator"

	config.Upload.MaxBytes = 10 * 1024 * 1024
	config.Upload.AvatarMaxBytes = 5 * 1024 * 1024

	config.RateLimit.Enabled = true
	config.RateLimit.RequestsPerMinute = 20
	config.RateLimit.Burst = 10

	config.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	config.CORS.AllowCredentials = true
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.URL == "" && config.Database.Host == "" {
		return fmt.Errorf("database url or host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"jwt.access_token_expiration":  config.JWT.AccessTokenExpiration,
		"jwt.refresh_token_expiration": config.JWT.RefreshTokenExpiration,
		"cookie.signup_max_age":        config.Cookie.SignupMaxAge,
		"cookie.login_max_age":         config.Cookie.LoginMaxAge,
		"redis.contributors_ttl":       config.Redis.ContributorsTTL,
		"redis.facets_ttl":             config.Redis.FacetsTTL,
		"storage.s3.presign_ttl":       config.Storage.S3.PresignTTL,
		"server.shutdown_timeout":      config.Server.ShutdownTimeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	switch config.Storage.Driver {
	case "local":
	case "s3":
		if config.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	switch config.Email.Driver {
	case "log":
	case "smtp":
		if config.Email.SMTPHost == "" {
			return fmt.Errorf("email.smtp_host is required for the smtp driver")
		}
	case "sendgrid":
		if config.Email.SendGridKey == "" {
			return fmt.Errorf("email.sendgrid_key is required for the sendgrid driver")
		}
	default:
		return fmt.Errorf("unknown email driver %q", config.Email.Driver)
	}

	if config.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production"
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     c.Database.Host + ":" + c.Database.Port,
		Path:     "/" + c.Database.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// Duration parses a validated duration setting; def is used for empty values
func Duration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || value == "" {
		return def
	}
	return d
}
