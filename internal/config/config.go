package config

import (
	"fmt"
	"path/filepath"

	experrors "github.com/jakenelson/expel/internal/errors"
	"github.com/spf13/viper"
)

// Config represents the full configuration structure
type Config struct {
	Images    ImagesConfig    `mapstructure:"images" yaml:"images"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Container ContainerConfig `mapstructure:"container" yaml:"container"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Install   InstallConfig   `mapstructure:"install" yaml:"install"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`

	// InsideContainer is true only when EXPEL_INSIDE_CONTAINER is exactly "1".
	InsideContainer bool `mapstructure:"-" yaml:"-"`
}

// ImagesConfig names the images the tasks run
type ImagesConfig struct {
	Build string `mapstructure:"build" yaml:"build"`
	Run   string `mapstructure:"run" yaml:"run"`
}

// CacheConfig configures the cache directory under the working directory
type CacheConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ContainerConfig configures how containers are launched
type ContainerConfig struct {
	Engine      string `mapstructure:"engine" yaml:"engine"`             // api, cli
	DockerHost  string `mapstructure:"docker_host" yaml:"docker_host"`   // empty uses DOCKER_HOST
	InsidePath  string `mapstructure:"inside_path" yaml:"inside_path"`   // working directory inside the expel image
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit"` // e.g., "4g"
}

// ServerConfig configures the run task
type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

// InstallConfig configures the install task
type InstallConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// LogConfig configures logrus
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// Load reads configuration from v on top of the defaults.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	if err := v.BindEnv("inside_container", InsideContainerEnv); err != nil {
		return nil, experrors.NewConfig("failed to bind environment", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, experrors.NewConfig("failed to decode configuration", err)
	}
	cfg.InsideContainer = v.GetString("inside_container") == "1"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("images.build", d.Images.Build)
	v.SetDefault("images.run", d.Images.Run)

	v.SetDefault("cache.dir", d.Cache.Dir)

	v.SetDefault("container.engine", d.Container.Engine)
	v.SetDefault("container.docker_host", d.Container.DockerHost)
	v.SetDefault("container.inside_path", d.Container.InsidePath)
	v.SetDefault("container.memory_limit", d.Container.MemoryLimit)

	v.SetDefault("server.port", d.Server.Port)

	v.SetDefault("install.enabled", d.Install.Enabled)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Images: ImagesConfig{
			Build: DefaultBuildImage,
			Run:   DefaultRunImage,
		},
		Cache: CacheConfig{
			Dir: DefaultCacheDir,
		},
		Container: ContainerConfig{
			Engine:     EngineAPI,
			InsidePath: DefaultInsidePath,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Install: InstallConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// Validate checks the values that tasks rely on.
func (c *Config) Validate() error {
	switch c.Container.Engine {
	case EngineAPI, EngineCLI:
	default:
		return experrors.NewConfig(fmt.Sprintf("invalid container.engine %q (allowed: %s, %s)", c.Container.Engine, EngineAPI, EngineCLI), nil)
	}

	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return experrors.NewConfig(fmt.Sprintf("invalid log.format %q (allowed: %s, %s)", c.Log.Format, LogFormatText, LogFormatJSON), nil)
	}

	if c.Cache.Dir == "" || filepath.IsAbs(c.Cache.Dir) {
		return experrors.NewConfig(fmt.Sprintf("cache.dir must be a relative path, got %q", c.Cache.Dir), nil)
	}
	if c.Container.InsidePath == "" {
		return experrors.NewConfig("container.inside_path must not be empty", nil)
	}
	if c.Images.Build == "" || c.Images.Run == "" {
		return experrors.NewConfig("images.build and images.run must be set", nil)
	}
	return nil
}
