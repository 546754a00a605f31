package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Model holds the connection settings for one agent's chat model. The
// original deployments point base_url at an OpenAI-compatible gateway.
type Model struct {
	ModelName   string  `yaml:"model_name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Window bounds an agent's conversation context.
type Window struct {
	MaxMessages int `yaml:"max_messages"`
	MaxTokens   int `yaml:"max_tokens"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Addr string `yaml:"addr"`
}

// Config is the full service configuration, loaded once at startup.
type Config struct {
	Models       map[string]Model  `yaml:"models"`
	Prompts      map[string]string `yaml:"prompts"`
	Windows      map[string]Window `yaml:"windows"`
	TushareToken string            `yaml:"tushare_token"`
	Server       Server            `yaml:"server"`
}

var defaultWindows = map[string]Window{
	"handler_agent":      {MaxMessages: 500, MaxTokens: 50000},
	"data_service_agent": {MaxMessages: 50, MaxTokens: 8000},
}

var defaultPrompts = map[string]string{
	"handler_agent": "You are a professional quantitative investment assistant. " +
		"Help the user with investment analysis, strategy design and risk assessment. " +
		"Respond in a professional, friendly tone.",
	"data_service_agent": "You are a data service agent. Fetch the financial data " +
		"the instruction asks for and return it in a structured form.",
}

// Load reads the YAML configuration at path and applies environment
// overrides. An empty path falls back to QUANTCHAT_CONFIG, then config.yaml.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetStringWithDefault("QUANTCHAT_CONFIG", "config.yaml")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

// Default returns a configuration with no models configured, suitable for
// tests and for commands that only need the defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if c.Models == nil {
		c.Models = make(map[string]Model)
	}
	if key := os.Getenv("QUANTCHAT_OPENAI_API_KEY"); key != "" {
		for name, m := range c.Models {
			if m.APIKey == "" {
				m.APIKey = key
				c.Models[name] = m
			}
		}
	}
	if token := os.Getenv("QUANTCHAT_TUSHARE_TOKEN"); token != "" {
		c.TushareToken = token
	}
	if addr := os.Getenv("QUANTCHAT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}

	maxMessages := GetIntWithDefault("QUANTCHAT_MAX_MESSAGES", 0)
	maxTokens := GetIntWithDefault("QUANTCHAT_MAX_TOKENS", 0)
	if maxMessages > 0 || maxTokens > 0 {
		if c.Windows == nil {
			c.Windows = make(map[string]Window)
		}
		w := c.WindowFor("handler_agent")
		if maxMessages > 0 {
			w.MaxMessages = maxMessages
		}
		if maxTokens > 0 {
			w.MaxTokens = maxTokens
		}
		c.Windows["handler_agent"] = w
	}
}

// ModelFor returns the model configuration for the named agent, validating
// the fields every client needs. Missing configuration fails here, at
// startup, not at call time.
func (c *Config) ModelFor(agent string) (Model, error) {
	m, ok := c.Models[agent]
	if !ok {
		return Model{}, fmt.Errorf("no model configured for agent %q", agent)
	}
	if m.ModelName == "" {
		return Model{}, fmt.Errorf("agent %q model config missing model_name", agent)
	}
	if m.APIKey == "" {
		return Model{}, fmt.Errorf("agent %q model config missing api_key", agent)
	}
	if m.BaseURL == "" {
		return Model{}, fmt.Errorf("agent %q model config missing base_url", agent)
	}
	return m, nil
}

// PromptFor returns the configured system prompt for the agent, falling back
// to the built-in default.
func (c *Config) PromptFor(agent string) string {
	if prompt, ok := c.Prompts[agent]; ok && prompt != "" {
		return prompt
	}
	return defaultPrompts[agent]
}

// WindowFor returns the context limits for the agent, falling back to the
// built-in defaults.
func (c *Config) WindowFor(agent string) Window {
	if w, ok := c.Windows[agent]; ok && w.MaxMessages > 0 && w.MaxTokens > 0 {
		return w
	}
	if w, ok := defaultWindows[agent]; ok {
		return w
	}
	return Window{MaxMessages: 500, MaxTokens: 50000}
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	if c.Server.Addr != "" {
		return c.Server.Addr
	}
	return ":8080"
}

// GetStringWithDefault gets an environment value by key, returning the
// default if unset.
func GetStringWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntWithDefault gets an integer environment value by key, returning the
// default if unset or invalid.
func GetIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
