// Package config resolves agent settings from flags, AGT_* environment
// variables, an optional config file, and defaults, in that precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/petasbytes/code-agent/internal/errorsx"
	"github.com/petasbytes/code-agent/internal/provider"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. AGT_MODEL.
const EnvPrefix = "AGT"

const (
	DefaultModel         = string(provider.DefaultModel)
	DefaultMaxTokens     = 8096
	DefaultMaxToolRounds = 25
	DefaultMaxRetries    = 2
	DefaultSystemPrompt  = "You are a helpful coding assistant. Help the user with their coding tasks."
	DefaultArtifactsDir  = ".agent"
)

// ErrMissingAPIKey is returned by Validate when no credential was found.
var ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY is not set; export it before running")

type Config struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	MaxTokens      int64         `mapstructure:"max_tokens"`
	SystemPrompt   string        `mapstructure:"system_prompt"`
	MaxToolRounds  int           `mapstructure:"max_tool_rounds"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TokenBudget    int           `mapstructure:"token_budget"`
	ReadRoot       string        `mapstructure:"read_root"`
	WriteRoot      string        `mapstructure:"write_root"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	ObserveJSON    bool          `mapstructure:"observe_json"`
	ArtifactsDir   string        `mapstructure:"artifacts_dir"`
	NoColor        bool          `mapstructure:"no_color"`
	NoBanner       bool          `mapstructure:"no_banner"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// Flags declares the command-line surface. Flag names use dashes; the
// matching config keys use underscores.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (yaml, json or toml)")
	fs.String("model", DefaultModel, "model identifier")
	fs.Int64("max-tokens", DefaultMaxTokens, "max output tokens per request")
	fs.String("system-prompt", DefaultSystemPrompt, "system prompt sent with every request")
	fs.Int("max-tool-rounds", DefaultMaxToolRounds, "tool rounds allowed per operator turn (0 = unlimited)")
	fs.Int("max-retries", DefaultMaxRetries, "SDK retries for failed requests")
	fs.Duration("request-timeout", 0, "per-request timeout (0 = none)")
	fs.Int("token-budget", 0, "input token budget for the transcript window (0 = full transcript)")
	fs.String("read-root", "", "sandbox root for reads (default: working directory)")
	fs.String("write-root", "", "sandbox root for writes (default: read root)")
	fs.String("log-level", "warn", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text or json")
	fs.Bool("observe-json", false, "append JSONL events to <artifacts-dir>/events.jsonl")
	fs.String("artifacts-dir", DefaultArtifactsDir, "directory for event logs")
	fs.String("base-url", "", "override the API base URL")
	fs.Bool("no-color", false, "disable colored output")
	fs.Bool("no-banner", false, "skip the startup banner")
	return fs
}

var keys = []string{
	"model", "max_tokens", "system_prompt", "max_tool_rounds", "max_retries",
	"request_timeout", "token_budget", "read_root", "write_root", "log_level",
	"log_format", "observe_json", "artifacts_dir", "base_url", "no_color", "no_banner",
}

// Load parses args and resolves the effective configuration. It does not
// validate. Errors carry errorsx.ReasonConfig.
func Load(args []string) (Config, error) {
	fs := Flags("agent")
	if err := fs.Parse(args); err != nil {
		return Config{}, errorsx.Wrap(fmt.Errorf("parse flags: %w", err), errorsx.ReasonConfig)
	}
	cfg, err := FromFlags(fs)
	return cfg, errorsx.Wrap(err, errorsx.ReasonConfig)
}

// FromFlags resolves configuration from an already-parsed flag set.
func FromFlags(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range keys {
		if f := fs.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		}
	}
	if err := v.BindEnv("api_key", "ANTHROPIC_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("base_url", EnvPrefix+"_BASE_URL", "ANTHROPIC_BASE_URL"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	path, _ := fs.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agent")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return cfg, nil
}

// Validate reports the first unusable setting, tagged errorsx.ReasonConfig.
func (c Config) Validate() error {
	return errorsx.Wrap(c.validate(), errorsx.ReasonConfig)
}

func (c Config) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	switch {
	case strings.TrimSpace(c.Model) == "":
		return errors.New("model must not be empty")
	case c.MaxTokens <= 0:
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	case c.MaxToolRounds < 0:
		return fmt.Errorf("max_tool_rounds must be >= 0, got %d", c.MaxToolRounds)
	case c.MaxRetries < 0:
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	case c.RequestTimeout < 0:
		return fmt.Errorf("request_timeout must be >= 0, got %s", c.RequestTimeout)
	case c.TokenBudget < 0:
		return fmt.Errorf("token_budget must be >= 0, got %d", c.TokenBudget)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
