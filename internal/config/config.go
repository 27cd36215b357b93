package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jellydator/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported HMAC signing algorithms for access tokens.
var jwtAlgorithms = []any{"HS256", "HS384", "HS512"}

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Database  Database  `mapstructure:"database"`
	CORS      CORS      `mapstructure:"cors"`
	Minio     Minio     `mapstructure:"minio"`
	JWT       JWT       `mapstructure:"jwt"`
	SecretKey string    `mapstructure:"secret_key"`
	Auth      Auth      `mapstructure:"auth"`
	Scheduler Scheduler `mapstructure:"scheduler"`
}

type Database struct {
	URL             string `mapstructure:"url"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
	ConnectAttempts int    `mapstructure:"connect_attempts"`
}

type CORS struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
}

// Minio describes the S3-compatible object store.
type Minio struct {
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	BucketName  string `mapstructure:"bucket_name"`
	PublicURL   string `mapstructure:"public_url"`
	UseHTTPS    bool   `mapstructure:"use_https"`
	Region      string `mapstructure:"region"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
	PartSizeMB  int64  `mapstructure:"part_size_mb"`
}

type JWT struct {
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

type Auth struct {
	RegisterSecret string `mapstructure:"register_secret"`
}

type Scheduler struct {
	StatusInterval time.Duration `mapstructure:"status_interval"`
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// a missing .env is fine; real environment variables always win
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.url", "")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.connect_attempts", 5)

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.allow_methods", []string{"*"})
	v.SetDefault("cors.allow_headers", []string{"*"})

	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket_name", "")
	v.SetDefault("minio.public_url", "")
	v.SetDefault("minio.use_https", false)
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.max_upload_mb", 25)
	v.SetDefault("minio.part_size_mb", 5)

	v.SetDefault("secret_key", "")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.expire_minutes", 60)

	v.SetDefault("auth.register_secret", "")
	v.SetDefault("scheduler.status_interval", "10s")
}

func (c *Config) normalize() {
	c.CORS.AllowOrigins = cleanList(c.CORS.AllowOrigins)
	c.CORS.AllowMethods = cleanList(c.CORS.AllowMethods)
	c.CORS.AllowHeaders = cleanList(c.CORS.AllowHeaders)
	c.JWT.Algorithm = strings.ToUpper(strings.TrimSpace(c.JWT.Algorithm))
	c.Minio.PublicURL = strings.TrimSpace(c.Minio.PublicURL)
	c.Auth.RegisterSecret = strings.TrimSpace(c.Auth.RegisterSecret)
}

// cleanList splits comma separated entries that arrive as a single element
// (env vars) and drops blanks.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate checks the settings the API cannot start without.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SecretKey, validation.Required.Error("SECRET_KEY is required")),
		validation.Field(&c.Database),
		validation.Field(&c.Minio),
		validation.Field(&c.JWT),
	)
}

// ValidateAuth checks what hashing passwords and signing tokens need.
func (c Config) ValidateAuth() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SecretKey, validation.Required.Error("SECRET_KEY is required")),
		validation.Field(&c.JWT),
	)
}

// ValidateDatabase checks only what the database-bound commands need.
func (c Config) ValidateDatabase() error {
	return c.Database.Validate()
}

func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.URL, validation.Required.Error("DATABASE_URL is required")),
		validation.Field(&d.ConnectAttempts, validation.Min(1)),
	)
}

func (m Minio) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.AccessKey, validation.Required.Error("MINIO_ACCESS_KEY is required")),
		validation.Field(&m.SecretKey, validation.Required.Error("MINIO_SECRET_KEY is required")),
		validation.Field(&m.BucketName, validation.Required.Error("MINIO_BUCKET_NAME is required")),
		validation.Field(&m.PublicURL, validation.Required.Error("MINIO_PUBLIC_URL is required")),
		validation.Field(&m.Region, validation.Required.Error("MINIO_REGION is required")),
		validation.Field(&m.MaxUploadMB, validation.Min(int64(1))),
		validation.Field(&m.PartSizeMB, validation.Min(int64(5))),
	)
}

func (j JWT) Validate() error {
	return validation.ValidateStruct(&j,
		validation.Field(&j.Algorithm, validation.Required, validation.In(jwtAlgorithms...)),
		validation.Field(&j.ExpireMinutes, validation.Required, validation.Min(1)),
	)
}

// Endpoint returns the object store URL with the scheme chosen by UseHTTPS.
func (m Minio) Endpoint() string {
	u := m.PublicURL
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	u = strings.TrimRight(u, "/")
	if m.UseHTTPS {
		return "https://" + u
	}
	return "http://" + u
}

// TokenTTL is the access token lifetime.
func (j JWT) TokenTTL() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}
