package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/richardiffusion/mrga/domain/chat"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Providers      ProvidersConfig      `yaml:"providers"`
	Chat           ChatConfig           `yaml:"chat"`
	Catalog        CatalogConfig        `yaml:"catalog"`
	Database       DatabaseConfig       `yaml:"database"`
	Logging        LoggingConfig        `yaml:"logging"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        string   `yaml:"port"`
	AppName     string   `yaml:"app_name"`
	CorsOrigins []string `yaml:"cors_origins"`
}

type ProvidersConfig struct {
	OpenAI   chat.ProviderConfig `yaml:"openai"`
	DeepSeek chat.ProviderConfig `yaml:"deepseek"`
}

type ChatConfig struct {
	DefaultProvider string        `yaml:"default_provider"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxPromptLength int           `yaml:"max_prompt_length"`
	SystemPrompt    string        `yaml:"system_prompt"`
}

type CatalogConfig struct {
	// Backend is "json" or "database"
	Backend string `yaml:"backend"`
	File    string `yaml:"file"`
	Watch   bool   `yaml:"watch"`
}

type DatabaseConfig struct {
	EnablePersistence bool   `yaml:"enable_persistence"`
	Driver            string `yaml:"driver"`
	URL               string `yaml:"url"`
	Host              string `yaml:"host"`
	Port              string `yaml:"port"`
	User              string `yaml:"user"`
	Password          string `yaml:"password"`
	Name              string `yaml:"name"`
	SSLMode           string `yaml:"ssl_mode"`
	Workers           int    `yaml:"workers"`
	BufferSize        int    `yaml:"buffer_size"`
}

type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	ReportCaller bool   `yaml:"report_caller"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRequests      uint32        `yaml:"max_requests"`
}

// LoadYAML loads configuration from YAML file with environment variable overrides
func LoadYAML(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	// values missing from the file keep their defaults
	config := getDefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		yamlFile, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expandedYAML := os.ExpandEnv(string(yamlFile))

		if err := yaml.Unmarshal([]byte(expandedYAML), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		logrus.WithField("config_file", configPath).Info("Loaded configuration from YAML file")
	} else {
		logrus.WithField("config_file", configPath).Warn("Config file not found, using defaults and environment variables")
	}

	config = applyEnvironmentOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        "8000",
			AppName:     "MRGA Radio API",
			CorsOrigins: []string{"*"},
		},
		Providers: ProvidersConfig{
			OpenAI: chat.ProviderConfig{
				BaseURL:     "https://api.openai.com/v1",
				Model:       "gpt-3.5-turbo",
				Temperature: 0.7,
				MaxTokens:   500,
			},
			DeepSeek: chat.ProviderConfig{
				BaseURL:     "https://api.deepseek.com",
				Model:       "deepseek-chat",
				Temperature: 0.7,
				MaxTokens:   500,
			},
		},
		Chat: ChatConfig{
			DefaultProvider: "deepseek",
			Timeout:         60 * time.Second,
			MaxPromptLength: 2000,
		},
		Catalog: CatalogConfig{
			Backend: "json",
			File:    "data/radio_stations.json",
			Watch:   true,
		},
		Database: DatabaseConfig{
			EnablePersistence: false,
			Driver:            "sqlite",
			Host:              "localhost",
			Port:              "5432",
			User:              "mrga",
			Name:              "mrga",
			SSLMode:           "disable",
			Workers:           5,
			BufferSize:        1000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "auto",
			ReportCaller: false,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			Timeout:          60 * time.Second,
			MaxRequests:      3,
		},
	}
}

func applyEnvironmentOverrides(config *Config) *Config {
	// Server overrides
	if val := os.Getenv("HOST"); val != "" {
		config.Server.Host = val
	}
	if val := os.Getenv("PORT"); val != "" {
		config.Server.Port = val
	}
	if val := os.Getenv("APP_NAME"); val != "" {
		config.Server.AppName = val
	}
	if val := os.Getenv("CORS_ORIGINS"); val != "" {
		config.Server.CorsOrigins = splitList(val)
	}

	// Provider overrides
	overrideProvider(&config.Providers.OpenAI, "OPENAI")
	overrideProvider(&config.Providers.DeepSeek, "DEEPSEEK")

	// Chat overrides
	if val := os.Getenv("DEFAULT_PROVIDER"); val != "" {
		config.Chat.DefaultProvider = strings.ToLower(val)
	}
	if val := os.Getenv("CHAT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Chat.Timeout = d
		}
	}
	if val := os.Getenv("MAX_PROMPT_LENGTH"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.Chat.MaxPromptLength = i
		}
	}

	// Catalog overrides
	if val := os.Getenv("CATALOG_BACKEND"); val != "" {
		config.Catalog.Backend = strings.ToLower(val)
	}
	if val := os.Getenv("STATIONS_FILE"); val != "" {
		config.Catalog.File = val
	}
	if val := os.Getenv("STATIONS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.Catalog.Watch = b
		}
	}

	// Database overrides
	if val := os.Getenv("ENABLE_PERSISTENCE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.Database.EnablePersistence = b
		}
	}
	if val := os.Getenv("DATABASE_DRIVER"); val != "" {
		config.Database.Driver = strings.ToLower(val)
	}
	if val := os.Getenv("DATABASE_URL"); val != "" {
		config.Database.URL = val
	}
	if val := os.Getenv("DATABASE_HOST"); val != "" {
		config.Database.Host = val
	}
	if val := os.Getenv("DATABASE_PORT"); val != "" {
		config.Database.Port = val
	}
	if val := os.Getenv("DATABASE_USER"); val != "" {
		config.Database.User = val
	}
	if val := os.Getenv("DATABASE_PASSWORD"); val != "" {
		config.Database.Password = val
	}
	if val := os.Getenv("DATABASE_NAME"); val != "" {
		config.Database.Name = val
	}
	if val := os.Getenv("DATABASE_SSL_MODE"); val != "" {
		config.Database.SSLMode = val
	}
	if val := os.Getenv("DATABASE_WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.Database.Workers = i
		}
	}
	if val := os.Getenv("DATABASE_BUFFER_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.Database.BufferSize = i
		}
	}

	// Logging overrides
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("LOG_REPORT_CALLER"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.Logging.ReportCaller = b
		}
	}

	// Circuit breaker overrides
	if val := os.Getenv("CIRCUIT_BREAKER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.CircuitBreaker.Enabled = b
		}
	}
	if val := os.Getenv("CIRCUIT_BREAKER_FAILURE_THRESHOLD"); val != "" {
		if i, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.CircuitBreaker.FailureThreshold = uint32(i)
		}
	}
	if val := os.Getenv("CIRCUIT_BREAKER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.CircuitBreaker.Timeout = d
		}
	}
	if val := os.Getenv("CIRCUIT_BREAKER_MAX_REQUESTS"); val != "" {
		if i, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.CircuitBreaker.MaxRequests = uint32(i)
		}
	}

	return config
}

// overrideProvider reads <PREFIX>_API_KEY, _BASE_URL, _MODEL, _TEMPERATURE
// and _MAX_TOKENS.
func overrideProvider(p *chat.ProviderConfig, prefix string) {
	if val := os.Getenv(prefix + "_API_KEY"); val != "" {
		p.APIKey = val
	}
	if val := os.Getenv(prefix + "_BASE_URL"); val != "" {
		p.BaseURL = val
	}
	if val := os.Getenv(prefix + "_MODEL"); val != "" {
		p.Model = val
	}
	if val := os.Getenv(prefix + "_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			p.Temperature = f
		}
	}
	if val := os.Getenv(prefix + "_MAX_TOKENS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			p.MaxTokens = i
		}
	}
}

func splitList(val string) []string {
	items := strings.Split(val, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items
}

// validateConfig rejects values the server cannot start with. Missing API
// keys only warn: calls to that provider answer with the local fallback.
func validateConfig(config *Config) error {
	var errors []string

	if config.Providers.OpenAI.APIKey == "" {
		logrus.Warn("OPENAI_API_KEY is not set - openai requests will use the local fallback")
	}
	if config.Providers.DeepSeek.APIKey == "" {
		logrus.Warn("DEEPSEEK_API_KEY is not set - deepseek requests will use the local fallback")
	}

	switch config.Chat.DefaultProvider {
	case "openai", "deepseek":
	default:
		errors = append(errors, fmt.Sprintf("DEFAULT_PROVIDER must be openai or deepseek (current: %q)", config.Chat.DefaultProvider))
	}

	if config.Chat.Timeout <= 0 {
		errors = append(errors, fmt.Sprintf("CHAT_TIMEOUT must be positive (current: %s)", config.Chat.Timeout))
	}

	if config.Chat.MaxPromptLength <= 0 {
		errors = append(errors, fmt.Sprintf("MAX_PROMPT_LENGTH must be positive (current: %d)", config.Chat.MaxPromptLength))
	}

	switch config.Catalog.Backend {
	case "json":
		if config.Catalog.File == "" {
			errors = append(errors, "STATIONS_FILE is required for the json catalog backend")
		}
	case "database":
	default:
		errors = append(errors, fmt.Sprintf("CATALOG_BACKEND must be json or database (current: %q)", config.Catalog.Backend))
	}

	if config.Database.EnablePersistence || config.Catalog.Backend == "database" {
		switch config.Database.Driver {
		case "postgres", "sqlite":
		default:
			errors = append(errors, fmt.Sprintf("DATABASE_DRIVER must be postgres or sqlite (current: %q)", config.Database.Driver))
		}
	}

	if config.CircuitBreaker.Enabled && config.CircuitBreaker.FailureThreshold == 0 {
		errors = append(errors, "CIRCUIT_BREAKER_FAILURE_THRESHOLD must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// NeedsDatabase reports whether any component uses the database connection.
func (c *Config) NeedsDatabase() bool {
	return c.Database.EnablePersistence || c.Catalog.Backend == "database"
}

// GetDatabaseDSN constructs the database connection string
func (c *Config) GetDatabaseDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	if c.Database.Driver == "sqlite" {
		return "mrga.db"
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// ProviderConfigs returns both providers with their ids set, openai first.
func (c *Config) ProviderConfigs() []chat.ProviderConfig {
	openai := c.Providers.OpenAI
	openai.ID = "openai"
	deepseek := c.Providers.DeepSeek
	deepseek.ID = "deepseek"
	return []chat.ProviderConfig{openai, deepseek}
}

func Load() (*Config, error) {
	return LoadYAML("")
}
