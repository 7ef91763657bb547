// Package config provides configuration loading and validation for the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jonathan/resume-fitter/internal/editing"
	"github.com/jonathan/resume-fitter/internal/llm"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// EnvPrefix prefixes every environment override, e.g. RESUME_FITTER_TARGET_PAGES.
const EnvPrefix = "RESUME_FITTER"

// Config is the resolved CLI configuration: defaults, then the config file, then the
// environment, then bound flags.
type Config struct {
	Provider string `mapstructure:"provider" validate:"oneof=gemini openai anthropic"`
	APIKey   string `mapstructure:"api_key"`
	Models   Models `mapstructure:"models"`

	TargetPages        int      `mapstructure:"target_pages" validate:"min=1"`
	MaxCycles          int      `mapstructure:"max_cycles" validate:"min=1"`
	ReducibleSections  []string `mapstructure:"reducible_sections" validate:"unique"`
	ExpandableSections []string `mapstructure:"expandable_sections" validate:"unique"`
	ItemMinChars       int      `mapstructure:"item_min_chars" validate:"min=1"`
	ItemMaxChars       int      `mapstructure:"item_max_chars" validate:"gtefield=ItemMinChars"`
	ForbiddenPhrases   []string `mapstructure:"forbidden_phrases"`

	Compiler       string        `mapstructure:"compiler" validate:"required"`
	CompileTimeout time.Duration `mapstructure:"compile_timeout" validate:"gt=0"`
	WorkDir        string        `mapstructure:"work_dir"`
	Template       string        `mapstructure:"template"`

	Retry       Retry  `mapstructure:"retry"`
	DatabaseURL string `mapstructure:"database_url"`
	Log         Log    `mapstructure:"log"`
	Parallelism int    `mapstructure:"parallelism" validate:"min=1"`
}

// Models overrides the provider's default model per tier. Empty keeps the default.
type Models struct {
	Lite     string `mapstructure:"lite"`
	Standard string `mapstructure:"standard"`
	Advanced string `mapstructure:"advanced"`
}

// Retry configures the LLM transport retry.
type Retry struct {
	Attempts int           `mapstructure:"attempts" validate:"min=1"`
	MinWait  time.Duration `mapstructure:"min_wait" validate:"min=0"`
	MaxWait  time.Duration `mapstructure:"max_wait" validate:"gtefield=MinWait"`
}

// Log configures the zap logger.
type Log struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// SetDefaults registers every key with its default. Keys must be known to viper for
// environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(llm.ProviderGemini))
	v.SetDefault("api_key", "")
	v.SetDefault("models.lite", "")
	v.SetDefault("models.standard", "")
	v.SetDefault("models.advanced", "")
	v.SetDefault("target_pages", 1)
	v.SetDefault("max_cycles", types.DefaultMaxCycles)
	v.SetDefault("item_min_chars", editing.DefaultMinItemLength)
	v.SetDefault("item_max_chars", editing.DefaultMaxItemLength)
	v.SetDefault("compiler", "pdflatex")
	v.SetDefault("compile_timeout", 30*time.Second)
	v.SetDefault("work_dir", "")
	v.SetDefault("template", "")
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.min_wait", time.Second)
	v.SetDefault("retry.max_wait", time.Minute)
	v.SetDefault("database_url", "")
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
	v.SetDefault("parallelism", 2)
}

// Load resolves the configuration into v (a fresh viper when nil). An empty path skips
// the config file.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// No defaults for the section lists: unset means "defaults present in the document".
	_ = v.BindEnv("reducible_sections")
	_ = v.BindEnv("expandable_sections")
	_ = v.BindEnv("forbidden_phrases")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.APIKey == "" {
		cfg.APIKey = providerKey(cfg.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// providerKey reads the provider's conventional API key variable.
func providerKey(provider string) string {
	switch llm.Provider(provider) {
	case llm.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case llm.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("GEMINI_API_KEY")
	}
}

// Validate checks value ranges and section names. The API key is not required here:
// commands that never call a model work without one.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config error: %s fails %q", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := sections.ParseKinds(c.ReducibleSections); err != nil {
		return fmt.Errorf("config error: reducible_sections: %w", err)
	}
	if _, err := sections.ParseKinds(c.ExpandableSections); err != nil {
		return fmt.Errorf("config error: expandable_sections: %w", err)
	}
	return nil
}

// LLMConfig returns the provider defaults with any model overrides applied.
func (c *Config) LLMConfig() *llm.Config {
	out := llm.DefaultConfigFor(llm.Provider(c.Provider))
	for tier, model := range map[llm.ModelTier]string{
		llm.TierLite:     c.Models.Lite,
		llm.TierStandard: c.Models.Standard,
		llm.TierAdvanced: c.Models.Advanced,
	} {
		if model != "" {
			out = out.WithModel(tier, model)
		}
	}
	return out
}

// RetryPolicy converts the retry block for llm.WithRetry.
func (c *Config) RetryPolicy() llm.RetryPolicy {
	return llm.RetryPolicy{Attempts: c.Retry.Attempts, MinWait: c.Retry.MinWait, MaxWait: c.Retry.MaxWait}
}

// FittingContext builds the run context for job. Unset section lists stay nil so the
// run falls back to the defaults present in the document.
func (c *Config) FittingContext(job types.JobContext) (types.FittingContext, error) {
	reducible, err := parseKinds(c.ReducibleSections)
	if err != nil {
		return types.FittingContext{}, err
	}
	expandable, err := parseKinds(c.ExpandableSections)
	if err != nil {
		return types.FittingContext{}, err
	}
	return types.FittingContext{
		TargetPages:        c.TargetPages,
		Job:                job,
		ReducibleSections:  reducible,
		ExpandableSections: expandable,
		MaxCycles:          c.MaxCycles,
	}, nil
}

func parseKinds(names []string) ([]sections.Kind, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return sections.ParseKinds(names)
}
