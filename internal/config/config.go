// Package config provides application configuration.
//
// Values come from built-in defaults, then an optional YAML file named by
// INTAKE_CONFIG_FILE, then environment variables (a .env file is loaded by
// the CLI before Load runs).
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port        string `yaml:"port"`
	FrontendURL string `yaml:"frontend_url"`

	Intake          IntakeConfig          `yaml:"intake"`
	LLM             LLMConfig             `yaml:"llm"`
	Backend         BackendConfig         `yaml:"backend"`
	Journal         JournalConfig         `yaml:"journal"`
	ConversationLog ConversationLogConfig `yaml:"conversation_log"`
	Log             LogConfig             `yaml:"log"`
	Telemetry       TelemetryConfig       `yaml:"telemetry"`
}

// IntakeConfig controls the conversation flow and session lifetime.
type IntakeConfig struct {
	CollectPhone  bool          `yaml:"collect_phone"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LLMConfig selects the language-model provider.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	GRPCAddr string        `yaml:"grpc_addr"`
	Timeout  time.Duration `yaml:"timeout"`
}

// BackendConfig addresses the screening backend.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`
}

// JournalConfig controls the delivery journal. An empty path disables it.
type JournalConfig struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Dir            string `yaml:"dir"`
	GlobalEnabled  bool   `yaml:"global_enabled"`
	GlobalPath     string `yaml:"global_path"`
	QueueSize      int    `yaml:"queue_size"`
	IncludeContent bool   `yaml:"include_content"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Dir    string `yaml:"dir"`
	Stdout bool   `yaml:"stdout"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Dir            string        `yaml:"dir"`
	MetricInterval time.Duration `yaml:"metric_interval"`
}

// LLM providers accepted by Validate.
var llmProviders = map[string]bool{"": true, "none": true, "gemini": true, "openai": true, "ollama": true, "grpc": true}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port: "8080",
		Intake: IntakeConfig{
			CollectPhone:  true,
			SessionTTL:    2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
			Timeout:  20 * time.Second,
		},
		Backend: BackendConfig{
			URL:     "http://localhost:4000/api/screenings",
			Secret:  "dev_secret",
			Timeout: 6 * time.Second,
		},
		Journal: JournalConfig{
			Path:      "./data/journal.db",
			Retention: 90 * 24 * time.Hour,
		},
		ConversationLog: ConversationLogConfig{
			Enabled:    true,
			Dir:        "./data/logs/conversations",
			GlobalPath: "./data/logs/conversations/all.ndjson",
			QueueSize:  1000,
		},
		Log: LogConfig{
			Level:  "info",
			Dir:    "./data/logs",
			Stdout: true,
		},
		Telemetry: TelemetryConfig{
			Dir:            "./data/logs",
			MetricInterval: 30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("INTAKE_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)

	c.Intake.CollectPhone = getEnvBool("INTAKE_COLLECT_PHONE", c.Intake.CollectPhone)
	c.Intake.SessionTTL = getEnvDuration("SESSION_TTL", c.Intake.SessionTTL)
	c.Intake.SweepInterval = getEnvDuration("SESSION_SWEEP_INTERVAL", c.Intake.SweepInterval)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("LLM_API_KEY", getEnv("GEMINI_API_KEY", c.LLM.APIKey))
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.GRPCAddr = getEnv("LLM_GRPC_ADDR", c.LLM.GRPCAddr)
	c.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Backend.URL = getEnv("BACKEND_URL", getEnv("API_URL", c.Backend.URL))
	c.Backend.Secret = getEnv("BOT_SHARED_SECRET", c.Backend.Secret)
	c.Backend.Timeout = getEnvDuration("BACKEND_TIMEOUT", c.Backend.Timeout)

	c.Journal.Path = getEnv("JOURNAL_DB_PATH", c.Journal.Path)
	c.Journal.Retention = getEnvDuration("JOURNAL_RETENTION", c.Journal.Retention)

	c.ConversationLog.Enabled = getEnvBool("CONVERSATION_LOG_ENABLED", c.ConversationLog.Enabled)
	c.ConversationLog.Dir = getEnv("CONVERSATION_LOG_DIR", c.ConversationLog.Dir)
	c.ConversationLog.GlobalEnabled = getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", c.ConversationLog.GlobalEnabled)
	c.ConversationLog.GlobalPath = getEnv("CONVERSATION_LOG_GLOBAL_PATH", c.ConversationLog.GlobalPath)
	c.ConversationLog.QueueSize = getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", c.ConversationLog.QueueSize)
	c.ConversationLog.IncludeContent = getEnvBool("CONVERSATION_LOG_INCLUDE_CONTENT", c.ConversationLog.IncludeContent)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Dir = getEnv("LOG_DIR", c.Log.Dir)
	c.Log.Stdout = getEnvBool("LOG_STDOUT", c.Log.Stdout)

	c.Telemetry.Enabled = getEnvBool("TELEMETRY_ENABLED", c.Telemetry.Enabled)
	c.Telemetry.Dir = getEnv("TELEMETRY_DIR", c.Telemetry.Dir)
	c.Telemetry.MetricInterval = getEnvDuration("TELEMETRY_METRIC_INTERVAL", c.Telemetry.MetricInterval)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if !llmProviders[c.LLM.Provider] {
		return fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLM.Provider)
	}
	if c.LLM.Provider == "grpc" && c.LLM.GRPCAddr == "" {
		return fmt.Errorf("LLM_GRPC_ADDR is required for the grpc provider")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.Backend.URL != "" {
		u, err := url.Parse(c.Backend.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("BACKEND_URL %q must be an http(s) URL", c.Backend.URL)
		}
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalEnabled && c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
