package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
)

// Duration wraps time.Duration so it can be written as "5s" in TOML files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// Config holds application configuration
type Config struct {
	Port        string `toml:"port"`
	DBDriver    string `toml:"db_driver"`
	DBConn      string `toml:"db_conn"`
	AutoMigrate bool   `toml:"auto_migrate"`
	LogLevel    string `toml:"log_level"`

	JWTSecret            string   `toml:"jwt_secret"`
	TokenLifetime        Duration `toml:"token_lifetime"`
	TokenRefreshLifetime Duration `toml:"token_refresh_lifetime"`

	ConfirmCodeLength int      `toml:"confirm_code_length"`
	ChangeRequestTTL  Duration `toml:"change_request_ttl"`
	SweepSchedule     string   `toml:"sweep_schedule"`

	PageSize int `toml:"page_size"`

	DeviceURL     string   `toml:"device_url"`
	DeviceTimeout Duration `toml:"device_timeout"`

	StorageType    string `toml:"storage_type"`
	MediaRoot      string `toml:"media_root"`
	MediaURL       string `toml:"media_url"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`

	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3AccessKey string `toml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key"`
	S3Prefix    string `toml:"s3_prefix"`

	SMTPHost     string `toml:"smtp_host"`
	SMTPPort     string `toml:"smtp_port"`
	SMTPUsername string `toml:"smtp_username"`
	SMTPPassword string `toml:"smtp_password"`
	SenderEmail  string `toml:"sender_email"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Port:                 "8080",
		DBDriver:             DriverPostgres,
		DBConn:               "host=localhost port=5432 user=django dbname=django sslmode=disable",
		AutoMigrate:          true,
		LogLevel:             "info",
		JWTSecret:            "secret",
		TokenLifetime:        Duration{30 * 24 * time.Hour},
		TokenRefreshLifetime: Duration{time.Second},
		ConfirmCodeLength:    6,
		ChangeRequestTTL:     Duration{time.Hour},
		PageSize:             15,
		DeviceURL:            "http://localhost:1203/{}",
		DeviceTimeout:        Duration{5 * time.Second},
		StorageType:          StorageFilesystem,
		MediaRoot:            "media",
		MediaURL:             "/media/",
		MaxUploadBytes:       512 << 20,
		SMTPPort:             "587",
	}
}

// NewConfig loads configuration from $CONFIG_FILE (if set) and environment variables
func NewConfig() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order of precedence (environment wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DBConn = getEnv("DB_CONN", c.DBConn)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.SweepSchedule = getEnv("SWEEP_SCHEDULE", c.SweepSchedule)
	c.DeviceURL = getEnv("DEVICE_URL", c.DeviceURL)
	c.StorageType = getEnv("STORAGE_TYPE", c.StorageType)
	c.MediaRoot = getEnv("MEDIA_ROOT", c.MediaRoot)
	c.MediaURL = getEnv("MEDIA_URL", c.MediaURL)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKey = getEnv("S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = getEnv("S3_SECRET_KEY", c.S3SecretKey)
	c.S3Prefix = getEnv("S3_PREFIX", c.S3Prefix)
	c.SMTPHost = getEnv("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = getEnv("SMTP_PORT", c.SMTPPort)
	c.SMTPUsername = getEnv("SMTP_USERNAME", c.SMTPUsername)
	c.SMTPPassword = getEnv("SMTP_PASSWORD", c.SMTPPassword)
	c.SenderEmail = getEnv("SENDER_EMAIL", c.SenderEmail)

	var err error
	if c.AutoMigrate, err = getEnvBool("AUTO_MIGRATE", c.AutoMigrate); err != nil {
		return err
	}
	if c.ConfirmCodeLength, err = getEnvInt("CONFIRM_CODE_LENGTH", c.ConfirmCodeLength); err != nil {
		return err
	}
	if c.PageSize, err = getEnvInt("PAGE_SIZE", c.PageSize); err != nil {
		return err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes))
	if err != nil {
		return err
	}
	c.MaxUploadBytes = int64(maxUpload)

	for key, target := range map[string]*Duration{
		"TOKEN_LIFETIME":         &c.TokenLifetime,
		"TOKEN_REFRESH_LIFETIME": &c.TokenRefreshLifetime,
		"CHANGE_REQUEST_TTL":     &c.ChangeRequestTTL,
		"DEVICE_TIMEOUT":         &c.DeviceTimeout,
	} {
		if value, exists := os.LookupEnv(key); exists {
			if err := target.UnmarshalText([]byte(value)); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TokenLifetime.Duration <= 0 {
		return fmt.Errorf("TOKEN_LIFETIME must be positive")
	}
	if c.ConfirmCodeLength < 4 || c.ConfirmCodeLength > 12 {
		return fmt.Errorf("CONFIRM_CODE_LENGTH must be between 4 and 12, got %d", c.ConfirmCodeLength)
	}
	if c.ChangeRequestTTL.Duration <= 0 {
		return fmt.Errorf("CHANGE_REQUEST_TTL must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.DeviceURL == "" {
		return fmt.Errorf("DEVICE_URL is required")
	}
	if c.DeviceTimeout.Duration <= 0 {
		return fmt.Errorf("DEVICE_TIMEOUT must be positive")
	}
	switch c.StorageType {
	case StorageFilesystem:
		if c.MediaRoot == "" {
			return fmt.Errorf("MEDIA_ROOT is required for filesystem storage")
		}
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
