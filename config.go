package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"

	"go-ocr-relay/redis"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "OCR_RELAY"

type Config struct {
	ServerConfig ServerConfig `mapstructure:"server_config"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	IdentityOcr    OcrServiceConfig `mapstructure:"identity_ocr"`
	CertificateOcr OcrServiceConfig `mapstructure:"certificate_ocr"`
	Upload         UploadConfig     `mapstructure:"upload"`

	StorageType         string                    `mapstructure:"storage_type"`
	RedisConfig         redis.RedisConfig         `mapstructure:"redis_config"`
	RedisSentinelConfig redis.RedisSentinelConfig `mapstructure:"redis_sentinel_config"`
	PostgresConfig      PostgresConfig            `mapstructure:"postgres_config"`
}

// OcrServiceConfig describes one upstream OCR service and how its endpoint
// treats uploads.
type OcrServiceConfig struct {
	URL               string        `mapstructure:"url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	HealthTimeout     time.Duration `mapstructure:"health_timeout"`
	HealthProbe       bool          `mapstructure:"health_probe"`
	FileField         string        `mapstructure:"file_field"`
	UpstreamField     string        `mapstructure:"upstream_field"`
	ValidateMediaType bool          `mapstructure:"validate_media_type"`
}

type UploadConfig struct {
	MaxBytes           int64 `mapstructure:"max_bytes"`
	MaxDimension       int   `mapstructure:"max_dimension"`
	MaxSubmissionBytes int64 `mapstructure:"max_submission_bytes"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

var storageTypes = []string{"none", "memory", "redis", "redis_sentinel", "postgres"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_config.host", "0.0.0.0")
	v.SetDefault("server_config.port", 3000)
	v.SetDefault("server_config.use_tls", false)
	v.SetDefault("server_config.tls_priv_key_path", "")
	v.SetDefault("server_config.tls_cert_path", "")
	v.SetDefault("server_config.read_timeout", 15*time.Second)
	v.SetDefault("server_config.write_timeout", 60*time.Second)
	v.SetDefault("server_config.allowed_origins", []string{"*"})

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("identity_ocr.url", "http://localhost:8000/extract")
	v.SetDefault("identity_ocr.timeout", 30*time.Second)
	v.SetDefault("identity_ocr.health_timeout", 5*time.Second)
	v.SetDefault("identity_ocr.health_probe", false)
	v.SetDefault("identity_ocr.file_field", "file")
	v.SetDefault("identity_ocr.upstream_field", "file")
	v.SetDefault("identity_ocr.validate_media_type", true)

	v.SetDefault("certificate_ocr.url", "http://localhost:8001/extract")
	v.SetDefault("certificate_ocr.timeout", 30*time.Second)
	v.SetDefault("certificate_ocr.health_timeout", 5*time.Second)
	v.SetDefault("certificate_ocr.health_probe", true)
	v.SetDefault("certificate_ocr.file_field", "file")
	v.SetDefault("certificate_ocr.upstream_field", "file")
	v.SetDefault("certificate_ocr.validate_media_type", false)

	v.SetDefault("upload.max_bytes", int64(10<<20))
	v.SetDefault("upload.max_dimension", 0)
	v.SetDefault("upload.max_submission_bytes", int64(1<<20))

	v.SetDefault("storage_type", "none")
	v.SetDefault("redis_config.host", "")
	v.SetDefault("redis_config.port", 6379)
	v.SetDefault("redis_config.password", "")
	v.SetDefault("redis_config.db", 0)
	v.SetDefault("redis_config.namespace", "ocr-relay")
	v.SetDefault("redis_sentinel_config.sentinel_host", "")
	v.SetDefault("redis_sentinel_config.sentinel_port", 26379)
	v.SetDefault("redis_sentinel_config.sentinel_username", "")
	v.SetDefault("redis_sentinel_config.password", "")
	v.SetDefault("redis_sentinel_config.master_name", "")
	v.SetDefault("redis_sentinel_config.namespace", "ocr-relay")
	v.SetDefault("postgres_config.dsn", "")
}

// readConfig builds the configuration from defaults, the optional JSON config
// file, a .env file in the working directory and OCR_RELAY_* variables.
func readConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.ServerConfig.Port)
	}
	if err := c.IdentityOcr.validate("identity_ocr"); err != nil {
		return err
	}
	if err := c.CertificateOcr.validate("certificate_ocr"); err != nil {
		return err
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if c.Upload.MaxSubmissionBytes <= 0 {
		return fmt.Errorf("upload.max_submission_bytes must be positive")
	}
	if c.Upload.MaxDimension < 0 {
		return fmt.Errorf("upload.max_dimension must not be negative")
	}
	if !slices.Contains(storageTypes, c.StorageType) {
		return fmt.Errorf("%v is not a valid storage type", c.StorageType)
	}
	if c.StorageType == "postgres" && c.PostgresConfig.DSN == "" {
		return fmt.Errorf("postgres_config.dsn is required for postgres storage")
	}
	return nil
}

func (c *OcrServiceConfig) validate(name string) error {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s.url must be an absolute http(s) URL, got %q", name, c.URL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s.timeout must be positive", name)
	}
	if c.HealthTimeout <= 0 {
		return fmt.Errorf("%s.health_timeout must be positive", name)
	}
	if c.HealthTimeout >= c.Timeout {
		return fmt.Errorf("%s.health_timeout (%v) must be shorter than timeout (%v)", name, c.HealthTimeout, c.Timeout)
	}
	if strings.TrimSpace(c.FileField) == "" || strings.TrimSpace(c.UpstreamField) == "" {
		return fmt.Errorf("%s.file_field and %s.upstream_field are required", name, name)
	}
	return nil
}
