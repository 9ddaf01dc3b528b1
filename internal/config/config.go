// Package config turns flags, environment and config files into a validated Config.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultModels maps a provider to the model used when none is configured.
var DefaultModels = map[string]string{
	ProviderGemini: "gemini-2.0-flash",
	ProviderOpenAI: "gpt-4o-mini",
}

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	LLM    LLMConfig
	Log    LogConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr          string        `validate:"required"`
	BasePath      string        // URL prefix for sub-path deployments (e.g. "/ru")
	Lang          string        `validate:"required"`
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
	WorkspaceTTL  time.Duration `validate:"gt=0"`
	MaxWorkspaces uint64        `validate:"gt=0"` // LRU bound on live page states
}

// LLMConfig contains the generative model settings.
type LLMConfig struct {
	Provider string `validate:"required,oneof=gemini openai"`
	Model    string `validate:"required"`
	BaseURL  string `validate:"omitempty,url"`
	// APIKey may be empty: only the breakdown endpoint fails without it.
	APIKey string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json"`
}

// DefaultMaxWorkspaces bounds the page states kept in memory.
const DefaultMaxWorkspaces = 10000

var validate = validator.New()

// NewViper returns a viper instance reading EXAMGEN_* variables and an
// optional examgen.{yaml,toml,json} config file.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("EXAMGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examgen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examgen")
	v.AddConfigPath("/etc/examgen")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}
	return v
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("llm-provider")))
	if provider == "" {
		provider = ProviderGemini
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:          v.GetString("addr"),
			BasePath:      NormalizeBasePath(v.GetString("base-path")),
			Lang:          v.GetString("lang"),
			SecureCookies: v.GetBool("secure-cookies"),
			WorkspaceTTL:  v.GetDuration("workspace-ttl"),
			MaxWorkspaces: v.GetUint64("max-workspaces"),
		},
		LLM: LLMConfig{
			Provider: provider,
			Model:    v.GetString("llm-model"),
			BaseURL:  v.GetString("llm-url"),
			APIKey:   apiKey(v, provider),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log-level")),
			Format: strings.ToLower(v.GetString("log-format")),
		},
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Lang == "" {
		cfg.Server.Lang = "en"
	}
	if cfg.Server.WorkspaceTTL == 0 {
		cfg.Server.WorkspaceTTL = time.Hour
	}
	if cfg.Server.MaxWorkspaces == 0 {
		cfg.Server.MaxWorkspaces = DefaultMaxWorkspaces
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModels[provider]
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// apiKey prefers the explicit llm-key setting and falls back to the
// provider's conventional environment variable.
func apiKey(v *viper.Viper, provider string) string {
	if key := v.GetString("llm-key"); key != "" {
		return key
	}
	env := "GEMINI_API_KEY"
	if provider == ProviderOpenAI {
		env = "OPENAI_API_KEY"
	}
	_ = v.BindEnv("provider-key", env)
	return v.GetString("provider-key")
}

// NormalizeBasePath strips trailing slashes and ensures a leading one.
func NormalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
