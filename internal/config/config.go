package config

import (
	"errors"
	"fmt"
	"os"

	"stolik/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig         `yaml:"app"`
	Database   DatabaseConfig    `yaml:"database"`
	Redis      RedisConfig       `yaml:"redis"`
	Monitoring MonitoringConfig  `yaml:"monitoring"`
	Logging    LoggingConfig     `yaml:"logging"`
	API        APIConfig         `yaml:"api"`
	Notifier   NotifierConfig    `yaml:"notifier"`
	Sweeper    SweeperConfig     `yaml:"sweeper"`
	Resources  []models.Resource `yaml:"resources"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
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

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled         bool           `yaml:"enabled"`
	HeaderAPIKey    string         `yaml:"header_api_key"`
	HeaderActorID   string         `yaml:"header_actor_id"`
	HeaderActorRole string         `yaml:"header_actor_role"`
	APIKeys         []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type NotifierConfig struct {
	Enabled    bool `yaml:"enabled"`
	QueueSize  int  `yaml:"queue_size"`
	MaxRetries int  `yaml:"max_retries"`
}

type SweeperConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	GraceDays       int  `yaml:"grace_days"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	err := godotenv.Load(".env")
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
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
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	return ValidateResources(c.Resources)
}

// ValidateResources rejects duplicate or zero resource IDs, non-positive
// capacities and unknown kinds. Runs against the seed list before it reaches
// the registry.
func ValidateResources(resources []models.Resource) error {
	resourceIDs := make(map[int64]bool)
	for _, resource := range resources {
		if resource.ID == 0 {
			return fmt.Errorf("resource '%s' has invalid ID 0", resource.Name)
		}
		if resourceIDs[resource.ID] {
			return fmt.Errorf("duplicate resource ID found: %d", resource.ID)
		}
		resourceIDs[resource.ID] = true

		if resource.Capacity <= 0 {
			return fmt.Errorf("resource %d has non-positive capacity %d", resource.ID, resource.Capacity)
		}
		if resource.Kind != "" && resource.Kind != models.KindTable && resource.Kind != models.KindSaloon {
			return fmt.Errorf("resource %d has unknown kind '%s'", resource.ID, resource.Kind)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderActorID == "" {
		c.API.Auth.HeaderActorID = "x-actor-id"
	}
	if c.API.Auth.HeaderActorRole == "" {
		c.API.Auth.HeaderActorRole = "x-actor-role"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = float64(models.RateLimitRequests) / float64(models.RateLimitWindow)
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = models.RateLimitRequests
	}

	if c.Notifier.QueueSize == 0 {
		c.Notifier.QueueSize = models.NotifyQueueSize
	}
	if c.Notifier.MaxRetries == 0 {
		c.Notifier.MaxRetries = 3
	}

	if c.Sweeper.IntervalMinutes == 0 {
		c.Sweeper.IntervalMinutes = 60
	}

	// Seed resources default to available tables.
	for i := range c.Resources {
		if c.Resources[i].Kind == "" {
			c.Resources[i].Kind = models.KindTable
		}
		if c.Resources[i].Status == "" {
			c.Resources[i].Status = models.ResourceAvailable
		}
	}
}
