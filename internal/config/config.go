package config

import (
	"fmt"
	"os"
	"strconv"

	commoncfg "github.com/KeviinASD/audi-back/internal/common/config"

	"gopkg.in/yaml.v3"
)

// Config audit-server configuration
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	DBEnabled    bool                     `yaml:"db_enabled"`
	Database     commoncfg.DatabaseConfig `yaml:"database"`
	RedisEnabled bool                     `yaml:"redis_enabled"`
	Redis        commoncfg.RedisConfig    `yaml:"redis"`
	Log          struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	AI     AIConfig     `yaml:"ai"`
	Audit  AuditConfig  `yaml:"audit"`
	Agent  AgentConfig  `yaml:"agent"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Events EventsConfig `yaml:"events"`
	// SeedFile optional JSON registry seed for the in-memory repositories
	SeedFile string `yaml:"seed_file"`
}

// AIConfig external analysis providers
type AIConfig struct {
	Provider       string         `yaml:"provider"` // openai | claude
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	OpenAI         ProviderConfig `yaml:"openai"`
	Anthropic      ProviderConfig `yaml:"anthropic"`
}

// ProviderConfig one chat-completion endpoint
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// AuditConfig consolidation and finding settings
type AuditConfig struct {
	RecurringMinFindings int    `yaml:"recurring_min_findings"`
	RiskySoftwareScope   string `yaml:"risky_software_scope"` // current | as-of
	HeatMapCacheTTL      int    `yaml:"heatmap_cache_ttl"`    // seconds, 0 disables
}

// AgentConfig lab agent sync endpoint
type AgentConfig struct {
	APIKey string `yaml:"api_key"`
}

// MQTTConfig analysis trigger subscription (disabled by default)
type MQTTConfig struct {
	Enabled              bool   `yaml:"enabled"`
	commoncfg.MQTTConfig `yaml:",inline"`
	Topic                string `yaml:"topic"`
}

// EventsConfig Redis stream for audit events
type EventsConfig struct {
	Stream string `yaml:"stream"`
}

// Load reads CONFIG_FILE (optional YAML) and then environment variables.
// Environment values win over the file; the file wins over defaults.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"

	// DB on by default; main falls back to in-memory repositories when unreachable.
	cfg.DBEnabled = true
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "audit",
		SSLMode:  "disable",
	}
	cfg.RedisEnabled = true
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	cfg.AI.Provider = "openai"
	cfg.AI.TimeoutSeconds = 60
	cfg.AI.OpenAI.BaseURL = "https://api.openai.com/v1"
	cfg.AI.OpenAI.Model = "gpt-4o"
	cfg.AI.Anthropic.BaseURL = "https://api.anthropic.com"
	cfg.AI.Anthropic.Model = "claude-sonnet-4-20250514"

	cfg.Audit.RecurringMinFindings = 3
	cfg.Audit.RiskySoftwareScope = "current"
	cfg.Audit.HeatMapCacheTTL = 60

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "audi-back-analysis"
	cfg.MQTT.QoS = 1
	cfg.MQTT.Topic = "audit/analysis/requests"

	cfg.Events.Stream = "audit:events"
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.DBEnabled = parseBool(os.Getenv("DB_ENABLED"), cfg.DBEnabled)
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = parseBool(os.Getenv("REDIS_ENABLED"), cfg.RedisEnabled)
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.AI.Provider = getEnv("AI_PROVIDER", cfg.AI.Provider)
	cfg.AI.TimeoutSeconds = parseInt(os.Getenv("AI_TIMEOUT_SECONDS"), cfg.AI.TimeoutSeconds)
	cfg.AI.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.AI.OpenAI.APIKey)
	cfg.AI.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.AI.OpenAI.BaseURL)
	cfg.AI.OpenAI.Model = getEnv("OPENAI_MODEL", cfg.AI.OpenAI.Model)
	cfg.AI.Anthropic.APIKey = getEnv("ANTHROPIC_API_KEY", cfg.AI.Anthropic.APIKey)
	cfg.AI.Anthropic.BaseURL = getEnv("ANTHROPIC_BASE_URL", cfg.AI.Anthropic.BaseURL)
	cfg.AI.Anthropic.Model = getEnv("ANTHROPIC_MODEL", cfg.AI.Anthropic.Model)

	cfg.Audit.RecurringMinFindings = parseInt(os.Getenv("RECURRING_MIN_FINDINGS"), cfg.Audit.RecurringMinFindings)
	cfg.Audit.RiskySoftwareScope = getEnv("HEATMAP_RISKY_SOFTWARE_SCOPE", cfg.Audit.RiskySoftwareScope)
	cfg.Audit.HeatMapCacheTTL = parseInt(os.Getenv("HEATMAP_CACHE_TTL"), cfg.Audit.HeatMapCacheTTL)

	cfg.Agent.APIKey = getEnv("AGENT_API_KEY", cfg.Agent.APIKey)

	cfg.MQTT.Enabled = parseBool(os.Getenv("MQTT_ENABLED"), cfg.MQTT.Enabled)
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", cfg.MQTT.Topic)

	cfg.Events.Stream = getEnv("AUDIT_EVENTS_STREAM", cfg.Events.Stream)
	cfg.SeedFile = getEnv("SEED_FILE", cfg.SeedFile)
}

func (c *Config) validate() error {
	switch c.Audit.RiskySoftwareScope {
	case "current", "as-of":
	default:
		return fmt.Errorf("invalid HEATMAP_RISKY_SOFTWARE_SCOPE %q (want current or as-of)", c.Audit.RiskySoftwareScope)
	}
	if c.Audit.RecurringMinFindings < 1 {
		c.Audit.RecurringMinFindings = 1
	}
	if c.Audit.HeatMapCacheTTL < 0 {
		c.Audit.HeatMapCacheTTL = 0
	}
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = 60
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	return s == "true"
}
