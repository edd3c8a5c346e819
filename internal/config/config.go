// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for the service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	Tools     ToolsConfig     `yaml:"tools"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	APIPrefix   string   `yaml:"api_prefix"`
	ServiceName string   `yaml:"service_name"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LLMConfig struct {
	// Model is required; there is no sensible default.
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`

	// BaseURL and APIKey configure the primary responses transport.
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// Fallback configures the secondary chat-completions transport, used
	// once per request when the primary result normalizes to empty.
	Fallback FallbackConfig `yaml:"fallback"`
}

// Timeout returns the per-request model timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type FallbackConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

type AgentConfig struct {
	MaxSteps     int    `yaml:"max_steps"`
	SystemPrompt string `yaml:"system_prompt"`
}

type ToolsConfig struct {
	// Enabled lists the tools to register; it is also the policy allow set.
	Enabled []string `yaml:"enabled"`

	// Denied lists tools refused even when registered.
	Denied []string `yaml:"denied"`

	// MaxCalls is the per-run tool call budget.
	MaxCalls int `yaml:"max_calls"`
}

type RetrievalConfig struct {
	SearchPaths     []string `yaml:"search_paths"`
	FileGlobs       []string `yaml:"file_globs"`
	MaxResults      int      `yaml:"max_results"`
	MaxSnippetChars int      `yaml:"max_snippet_chars"`
	MaxFileSizeKB   int      `yaml:"max_file_size_kb"`
}

type AuthConfig struct {
	// JWTSecret enables the bearer-token middleware; empty disables auth
	// and every request runs anonymously with public tools only.
	JWTSecret   string   `yaml:"jwt_secret"`
	TokenExpiry Duration `yaml:"token_expiry"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

// Duration decodes from YAML strings like "24h" or bare integer seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.APIPrefix == "" {
		c.Server.APIPrefix = "/v1"
	}
	if c.Server.ServiceName == "" {
		c.Server.ServiceName = "conductor"
	}
	if c.Server.CORSOrigins == nil {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 30
	}
	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = 6
	}
	if c.Tools.Enabled == nil {
		c.Tools.Enabled = []string{"retrieve"}
	}
	if c.Tools.MaxCalls == 0 {
		c.Tools.MaxCalls = 8
	}
	if c.Retrieval.SearchPaths == nil {
		c.Retrieval.SearchPaths = []string{"documents", "README.md"}
	}
	if c.Retrieval.FileGlobs == nil {
		c.Retrieval.FileGlobs = []string{"**/*.md", "**/*.txt"}
	}
	if c.Retrieval.MaxResults == 0 {
		c.Retrieval.MaxResults = 5
	}
	if c.Retrieval.MaxSnippetChars == 0 {
		c.Retrieval.MaxSnippetChars = 200
	}
	if c.Retrieval.MaxFileSizeKB == 0 {
		c.Retrieval.MaxFileSizeKB = 256
	}
	if c.Auth.TokenExpiry == 0 {
		c.Auth.TokenExpiry = Duration(24 * time.Hour)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = 1.0
	}
}

// Validate reports configuration errors that defaults cannot repair.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Agent.MaxSteps < 1 {
		return fmt.Errorf("agent.max_steps must be positive")
	}
	if c.Tools.MaxCalls < 1 {
		return fmt.Errorf("tools.max_calls must be positive")
	}
	return nil
}
