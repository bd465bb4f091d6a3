package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Scorer   ScorerConfig   `yaml:"scorer"`
	Sync     SyncConfig     `yaml:"sync"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Mode     string `yaml:"mode"` // debug, release, test
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// ScorerConfig selects the LLM backing the quality scorer.
type ScorerConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic, ollama, gemini
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	TimeoutS  int    `yaml:"timeout_seconds"`
}

// SyncConfig drives the batch orchestrator and webhook registration.
type SyncConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes"` // 0 disables the scheduler
	Concurrency     int    `yaml:"concurrency"`      // parallel repositories per pass
	CallbackBaseURL string `yaml:"callback_base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"` // per provider call
	MaxRetries      int    `yaml:"max_retries"`     // retryable provider failures only
}

// RedisConfig for optional async webhook task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     "8080",
			Mode:     "debug",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "commitlens.db",
		},
		Scorer: ScorerConfig{
			Provider:  "openai",
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o",
			MaxTokens: 4096,
			TimeoutS:  60,
		},
		Sync: SyncConfig{
			IntervalMinutes: 0,
			Concurrency:     5,
			TimeoutSeconds:  30,
			MaxRetries:      2,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

// applyDefaults fills zero values that would break callers.
func (c *Config) applyDefaults() {
	if c.Sync.Concurrency <= 0 {
		c.Sync.Concurrency = 5
	}
	if c.Sync.TimeoutSeconds <= 0 {
		c.Sync.TimeoutSeconds = 30
	}
	if c.Sync.MaxRetries < 0 {
		c.Sync.MaxRetries = 2
	}
	if c.Scorer.TimeoutS <= 0 {
		c.Scorer.TimeoutS = 60
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
}

// ScorerTimeout returns the scorer call timeout as a duration.
func (c *ScorerConfig) ScorerTimeout() time.Duration {
	return time.Duration(c.TimeoutS) * time.Second
}

// CallTimeout returns the per provider call timeout as a duration.
func (c *SyncConfig) CallTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Server.LogLevel = level
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if provider := os.Getenv("SCORER_PROVIDER"); provider != "" {
		c.Scorer.Provider = provider
	}
	if baseURL := os.Getenv("SCORER_BASE_URL"); baseURL != "" {
		c.Scorer.BaseURL = baseURL
	}
	if apiKey := os.Getenv("SCORER_API_KEY"); apiKey != "" {
		c.Scorer.APIKey = apiKey
	}
	if model := os.Getenv("SCORER_MODEL"); model != "" {
		c.Scorer.Model = model
	}
	if callback := os.Getenv("SYNC_CALLBACK_BASE_URL"); callback != "" {
		c.Sync.CallbackBaseURL = callback
	}
	if interval := os.Getenv("SYNC_INTERVAL_MINUTES"); interval != "" {
		if v, err := strconv.Atoi(interval); err == nil {
			c.Sync.IntervalMinutes = v
		}
	}
	if workers := os.Getenv("SYNC_CONCURRENCY"); workers != "" {
		if v, err := strconv.Atoi(workers); err == nil {
			c.Sync.Concurrency = v
		}
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if v, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = v
		}
	}
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
