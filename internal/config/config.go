package config

import (
	"errors"
	"fmt"
	"os"

	"happdash/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Rooms      RoomsConfig      `yaml:"rooms"`
	Timezone   string           `yaml:"timezone"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Redis      RedisConfig      `yaml:"redis"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type BackendConfig struct {
	BaseURL   string          `yaml:"base_url"`
	Timeout   int             `yaml:"timeout"` // seconds per request
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RoomsConfig struct {
	CatalogPath  string `yaml:"catalog_path"`
	DefaultVenue string `yaml:"default_venue"`
}

// RefreshConfig holds per-view refresh cadences in seconds.
type RefreshConfig struct {
	Stats       int `yaml:"stats"`
	Events      int `yaml:"events"`
	ActivePlans int `yaml:"active_plans"`
	PlanTable   int `yaml:"plan_table"`
	PlanDetail  int `yaml:"plan_detail"`
}

type RedisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Address     string `yaml:"address"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
	SnapshotTTL int    `yaml:"snapshot_ttl"` // seconds
}

type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Port    int           `yaml:"port"`
	Auth    APIAuthConfig `yaml:"auth"`
}

type APIAuthConfig struct {
	Enabled bool     `yaml:"enabled"`
	Header  string   `yaml:"header"`
	Keys    []string `yaml:"keys"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type WebhookConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"` // seconds
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	err := godotenv.Load(".env")
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Substitute environment variables before parsing the YAML.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}

	if c.Rooms.CatalogPath == "" {
		return errors.New("rooms catalog_path is required")
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis address is required when redis is enabled")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = models.DefaultRequestTimeout
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Taipei"
	}
	if c.Rooms.DefaultVenue == "" {
		c.Rooms.DefaultVenue = "minquan"
	}

	if c.Refresh.Stats == 0 {
		c.Refresh.Stats = models.DefaultStatsRefresh
	}
	if c.Refresh.Events == 0 {
		c.Refresh.Events = models.DefaultEventsRefresh
	}
	if c.Refresh.ActivePlans == 0 {
		c.Refresh.ActivePlans = models.DefaultActivePlansRefresh
	}
	if c.Refresh.PlanTable == 0 {
		c.Refresh.PlanTable = models.DefaultPlanTableRefresh
	}
	if c.Refresh.PlanDetail == 0 {
		c.Refresh.PlanDetail = models.DefaultPlanDetailRefresh
	}

	if c.Redis.SnapshotTTL == 0 {
		c.Redis.SnapshotTTL = models.DefaultSnapshotTTL
	}

	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.Header == "" {
		c.API.Auth.Header = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Webhook.Timeout == 0 {
		c.Webhook.Timeout = 10
	}
}
