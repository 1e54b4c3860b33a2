// Package config loads application configuration from an optional YAML file
// and MEDRAX_-prefixed environment variables, with sensible defaults for
// local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix; MEDRAX_PLANNER_API_KEY maps
// to planner.api_key.
const EnvPrefix = "MEDRAX"

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Planner PlannerConfig `mapstructure:"planner"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// PlannerConfig selects and credentials the planning backend. A missing
// APIKey is not a load error; the orchestrator rejects turns until one is
// provided.
type PlannerConfig struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AgentConfig bounds the execution loop.
type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

// StorageConfig locates on-disk state.
type StorageConfig struct {
	UploadDir   string `mapstructure:"upload_dir"`
	ArtifactDir string `mapstructure:"artifact_dir"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Configured reports whether planner credentials are present.
func (c PlannerConfig) Configured() bool { return c.APIKey != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("planner.provider", "openai")
	v.SetDefault("planner.api_key", "")
	v.SetDefault("planner.model", "")
	v.SetDefault("planner.base_url", "")
	v.SetDefault("planner.timeout", 60*time.Second)
	v.SetDefault("agent.max_iterations", 15)
	v.SetDefault("storage.upload_dir", "data/uploads")
	v.SetDefault("storage.artifact_dir", "data/artifacts")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from path (optional; "" skips the file) layered
// under environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Planner.Provider {
	case "openai", "anthropic", "deepseek":
	default:
		return fmt.Errorf("unknown planner provider %q", c.Planner.Provider)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be positive, got %d", c.Agent.MaxIterations)
	}
	return nil
}
