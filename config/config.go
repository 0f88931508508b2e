package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Sync      SyncConfig      `yaml:"sync"`
	Evidence  EvidenceConfig  `yaml:"evidence"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	GatewayToken   string   `yaml:"gateway_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type SchedulerConfig struct {
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
}

// SyncConfig points at the profile sync service. Empty URL disables the worker.
type SyncConfig struct {
	URL          string        `yaml:"url"`
	EndpointPath string        `yaml:"endpoint_path"`
	Interval     time.Duration `yaml:"interval"`
}

// EvidenceConfig configures the R2 bucket for session summaries. Empty
// AccountID disables archiving.
type EvidenceConfig struct {
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Bucket          string `yaml:"bucket"`
	CDNBaseURL      string `yaml:"cdn_base_url"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           "5200",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log:       LogConfig{Level: "info"},
		Scheduler: SchedulerConfig{ExpiryInterval: time.Minute},
		Sync: SyncConfig{
			EndpointPath: "/api/v1/public/profiles",
			Interval:     time.Minute,
		},
	}
}

// Load reads .env (if present), then the optional YAML file, then lets
// environment variables override both.
func Load(filename string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.GatewayToken, "GAME_SERVICE_TOKEN")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_JSON: %w", err)
		}
		cfg.Log.JSON = b
	}
	if err := setDuration(&cfg.Scheduler.ExpiryInterval, "EXPIRY_INTERVAL"); err != nil {
		return err
	}
	setString(&cfg.Sync.URL, "SYNC_SERVICE_URL")
	if err := setDuration(&cfg.Sync.Interval, "SYNC_INTERVAL"); err != nil {
		return err
	}
	setString(&cfg.Evidence.AccountID, "CLOUDFLARE_ACCOUNT_ID")
	setString(&cfg.Evidence.AccessKeyID, "R2_ACCESS_KEY_ID")
	setString(&cfg.Evidence.AccessKeySecret, "R2_ACCESS_KEY_SECRET")
	setString(&cfg.Evidence.Bucket, "R2_BUCKET_NAME")
	setString(&cfg.Evidence.CDNBaseURL, "CDN_BASE_URL")
	return nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.Server.GatewayToken == "" {
		return fmt.Errorf("GAME_SERVICE_TOKEN is not set, service cannot authenticate Gateway")
	}
	if c.Scheduler.ExpiryInterval <= 0 {
		return fmt.Errorf("expiry interval must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
