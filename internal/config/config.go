// Package config loads run settings from defaults, an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "MAS"

var ErrTokenLimit = errors.New("config: invalid token limit")

type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Search   SearchConfig   `mapstructure:"search"`
	Output   OutputConfig   `mapstructure:"output"`
	Budgets  BudgetsConfig  `mapstructure:"budgets"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type LLMConfig struct {
	// Provider is "openai" or "anthropic".
	Provider    string         `mapstructure:"provider"`
	Model       string         `mapstructure:"model"`
	TokenLimits map[string]int `mapstructure:"token_limits"`
	APIKey      string         `mapstructure:"api_key"`
}

// MaxTokens is the configured generation limit of the selected model, 0 when unset.
func (c LLMConfig) MaxTokens() int {
	return c.TokenLimits[c.Model]
}

type SearchConfig struct {
	MaxResults int    `mapstructure:"max_results"`
	Endpoint   string `mapstructure:"endpoint"`
}

type OutputConfig struct {
	Dir            string `mapstructure:"dir"`
	ResultFilename string `mapstructure:"result_filename"`
	Overwrite      bool   `mapstructure:"overwrite"`
}

type BudgetsConfig struct {
	Planner   int `mapstructure:"planner"`
	Retriever int `mapstructure:"retriever"`
	Reasoner  int `mapstructure:"reasoner"`
}

type TimeoutsConfig struct {
	Reasoning time.Duration `mapstructure:"reasoning"`
	Search    time.Duration `mapstructure:"search"`
	Compute   time.Duration `mapstructure:"compute"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

// Load reads path when it is not empty, then applies MAS_* environment overrides.
// The provider API keys are also read from OPENAI_API_KEY and ANTHROPIC_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel(cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}
	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultModel is the model used when none is configured.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		return "claude-sonnet-4-20250514"
	default:
		return "gpt-4o-mini"
	}
}

func providerKey(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.token_limits", d.LLM.TokenLimits)
	v.SetDefault("llm.api_key", "")

	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.endpoint", d.Search.Endpoint)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.result_filename", d.Output.ResultFilename)
	v.SetDefault("output.overwrite", d.Output.Overwrite)

	v.SetDefault("budgets.planner", d.Budgets.Planner)
	v.SetDefault("budgets.retriever", d.Budgets.Retriever)
	v.SetDefault("budgets.reasoner", d.Budgets.Reasoner)

	v.SetDefault("timeouts.reasoning", d.Timeouts.Reasoning.String())
	v.SetDefault("timeouts.search", d.Timeouts.Search.String())
	v.SetDefault("timeouts.compute", d.Timeouts.Compute.String())

	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.file", d.Log.File)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			TokenLimits: map[string]int{},
		},
		Search: SearchConfig{
			MaxResults: 3,
			Endpoint:   "https://api.duckduckgo.com/",
		},
		Output: OutputConfig{
			Dir:            "./outputs",
			ResultFilename: "answer.md",
			Overwrite:      true,
		},
		Budgets: BudgetsConfig{
			Planner:   5,
			Retriever: 12,
			Reasoner:  10,
		},
		Timeouts: TimeoutsConfig{
			Reasoning: 2 * time.Minute,
			Search:    20 * time.Second,
			Compute:   5 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("config: search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Budgets.Planner <= 0 || c.Budgets.Retriever <= 0 || c.Budgets.Reasoner <= 0 {
		return errors.New("config: every stage budget must be positive")
	}
	if c.Output.ResultFilename == "" {
		return errors.New("config: output.result_filename is required")
	}
	return nil
}

// OutputPath is where the answer of a run is written.
func (c *Config) OutputPath() string {
	return filepath.Join(expandHome(c.Output.Dir), c.Output.ResultFilename)
}

func expandHome(dir string) string {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	return dir
}

// ParseTokenLimits parses repeated model=limit pairs. Empty items are skipped.
func ParseTokenLimits(pairs []string) (map[string]int, error) {
	limits := map[string]int{}
	for _, item := range pairs {
		if item == "" {
			continue
		}
		model, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q, expected model=limit", ErrTokenLimit, item)
		}
		model = strings.TrimSpace(model)
		if model == "" {
			return nil, fmt.Errorf("%w: missing model name in %q", ErrTokenLimit, item)
		}
		limit, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number in %q", ErrTokenLimit, item)
		}
		if limit <= 0 {
			return nil, fmt.Errorf("%w: limit must be positive in %q", ErrTokenLimit, item)
		}
		limits[model] = limit
	}
	return limits, nil
}
