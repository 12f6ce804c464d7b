package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Twitch   TwitchConfig   `yaml:"twitch"`
	S3       S3Config       `yaml:"s3"`
	Recorder RecorderConfig `yaml:"recorder"`
	Uploader UploaderConfig `yaml:"uploader"`
	Health   HealthConfig   `yaml:"health"`
}

// TwitchConfig holds the chat connection settings
type TwitchConfig struct {
	Nick               string            `yaml:"nick" env:"TWITCH_NICK"`
	OAuth              string            `yaml:"oauth" env:"TWITCH_OAUTH"`
	Channel            string            `yaml:"channel" env:"TWITCH_CHANNEL"`
	Addr               string            `yaml:"addr" env:"TWITCH_ADDR"`
	SendIntervalMS     int               `yaml:"send_interval_ms"`
	DialTimeoutSeconds int               `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds int               `yaml:"read_timeout_seconds"` // 0 disables the watchdog
	Emotes             map[string]string `yaml:"emotes"`               // emote code -> id
}

// S3Config holds S3 upload configuration. An empty bucket disables uploads.
type S3Config struct {
	Bucket               string `yaml:"bucket" env:"S3_BUCKET"`
	Region               string `yaml:"region" env:"S3_REGION"`
	RoleARN              string `yaml:"role_arn" env:"AWS_ROLE_ARN"`                                 // IAM role assumed with a web identity token
	WebIdentityTokenFile string `yaml:"web_identity_token_file" env:"AWS_WEB_IDENTITY_TOKEN_FILE"` // Token used with role_arn
	AccessKeyID          string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`                       // Static credentials
	SecretAccessKey      string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`               // Static credentials
	Endpoint             string `yaml:"endpoint" env:"S3_ENDPOINT"`                                 // For S3-compatible services
}

// RecorderConfig holds recorder configuration
type RecorderConfig struct {
	OutputDir       string `yaml:"output_dir"`
	RotateMinutes   int    `yaml:"rotate_minutes"`
	RotateMegabytes int    `yaml:"rotate_megabytes"`
	BufferSize      int    `yaml:"buffer_size"`
}

// UploaderConfig holds uploader configuration
type UploaderConfig struct {
	DeleteAfterUpload bool `yaml:"delete_after_upload"`
	MaxRetries        int  `yaml:"max_retries"`
}

// HealthConfig holds the health/metrics listener
type HealthConfig struct {
	Addr string `yaml:"addr" env:"HEALTH_ADDR"`
}

// SendInterval returns the outbound pacing as a duration
func (t TwitchConfig) SendInterval() time.Duration {
	return time.Duration(t.SendIntervalMS) * time.Millisecond
}

// DialTimeout returns the connect timeout as a duration
func (t TwitchConfig) DialTimeout() time.Duration {
	return time.Duration(t.DialTimeoutSeconds) * time.Second
}

// ReadTimeout returns the read watchdog as a duration
func (t TwitchConfig) ReadTimeout() time.Duration {
	return time.Duration(t.ReadTimeoutSeconds) * time.Second
}

// UploadsEnabled reports whether rotated logs go to S3
func (s S3Config) UploadsEnabled() bool {
	return s.Bucket != ""
}

// Load loads configuration from a file. A .env file next to the process is
// read first so its values can override the YAML.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// Read YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// Apply environment variable overrides
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Twitch.Addr == "" {
		cfg.Twitch.Addr = "irc.chat.twitch.tv:6667"
	}
	if cfg.Twitch.SendIntervalMS == 0 {
		cfg.Twitch.SendIntervalMS = 333
	}
	if cfg.Twitch.DialTimeoutSeconds == 0 {
		cfg.Twitch.DialTimeoutSeconds = 10
	}
	if cfg.Recorder.BufferSize == 0 {
		cfg.Recorder.BufferSize = 100
	}
	if cfg.Recorder.RotateMinutes == 0 {
		cfg.Recorder.RotateMinutes = 60
	}
	if cfg.Recorder.RotateMegabytes == 0 {
		cfg.Recorder.RotateMegabytes = 100
	}
	if cfg.Recorder.OutputDir == "" {
		cfg.Recorder.OutputDir = "./data"
	}
	if cfg.Uploader.MaxRetries == 0 {
		cfg.Uploader.MaxRetries = 3
	}
	if cfg.Health.Addr == "" {
		cfg.Health.Addr = ":8080"
	}
}

// Validate checks required fields. The token's shape is checked when the
// credentials are built, before any connection is made.
func (cfg *Config) Validate() error {
	if cfg.Twitch.Nick == "" {
		return fmt.Errorf("twitch.nick is required (or set TWITCH_NICK env var)")
	}
	if cfg.Twitch.OAuth == "" {
		return fmt.Errorf("twitch.oauth is required (or set TWITCH_OAUTH env var)")
	}
	if cfg.Twitch.Channel == "" {
		return fmt.Errorf("twitch.channel is required (or set TWITCH_CHANNEL env var)")
	}
	if cfg.Twitch.SendIntervalMS < 0 || cfg.Twitch.ReadTimeoutSeconds < 0 {
		return fmt.Errorf("twitch timings must not be negative")
	}

	if !cfg.S3.UploadsEnabled() {
		return nil
	}
	if cfg.S3.Region == "" {
		return fmt.Errorf("s3.region is required when s3.bucket is set")
	}
	if cfg.S3.RoleARN != "" && cfg.S3.WebIdentityTokenFile == "" {
		return fmt.Errorf("s3.web_identity_token_file is required when using role_arn")
	}
	// If using static credentials, both key and secret are required
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey == "" {
		return fmt.Errorf("s3.secret_access_key is required when using access_key_id")
	}

	return nil
}
