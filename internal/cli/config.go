package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jakenelson/expel/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage expel configuration",
	Long: `Manage expel configuration settings.

Commands:
  list    List all configuration settings
  get     Get a configuration value
  set     Set a configuration value
  path    Show configuration file path
  init    Create default configuration file

Examples:
  expel config list
  expel config get images.build
  expel config set container.engine cli
  expel config set install.enabled false`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		printSettingsFlat(cmd.OutOrStdout(), "", viper.AllSettings())
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !viper.IsSet(key) {
			return fmt.Errorf("key not found: %s", key)
		}
		value := viper.Get(key)
		if m, ok := value.(map[string]interface{}); ok {
			printSettingsFlat(cmd.OutOrStdout(), key, m)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := validateConfigKey(key, value); err != nil {
			return err
		}

		configPath := getConfigPath()
		if used := viper.ConfigFileUsed(); used != "" {
			configPath = used
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		var parsedValue interface{} = value
		if value == "true" {
			parsedValue = true
		} else if value == "false" {
			parsedValue = false
		}

		viper.Set(key, parsedValue)
		if err := viper.WriteConfigAs(configPath); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintln(cmd.OutOrStdout(), used)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), getConfigPath())
		}
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := getConfigPath()
		if cfgFile != "" {
			configPath = cfgFile
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s", configPath)
		}

		content, err := renderDefaultConfig()
		if err != nil {
			return err
		}
		if err := os.WriteFile(configPath, content, 0644); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configPath)
		return nil
	},
}

const configHeader = `# Expel configuration
#
# images.build / images.run   images for build, restore and run
# cache.dir                   cache directory, relative to the working directory
# container.engine            api (Docker Engine API) | cli (docker binary)
# container.docker_host       daemon address, empty uses DOCKER_HOST
# container.inside_path       working directory inside the expel image
# container.memory_limit      e.g. 4g, empty for no limit
# server.port                 port published by 'expel run'
# install.enabled             false turns 'expel install' off
# log.level / log.format      debug|info|warn|error, text|json

`

// renderDefaultConfig returns the default configuration as commented YAML.
func renderDefaultConfig() ([]byte, error) {
	body, err := yaml.Marshal(config.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to render default config: %w", err)
	}
	return append([]byte(configHeader), body...), nil
}

// printSettingsFlat prints settings in dot notation
func printSettingsFlat(w io.Writer, prefix string, settings map[string]interface{}) {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := settings[key]
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			printSettingsFlat(w, fullKey, nested)
		} else {
			fmt.Fprintf(w, "%s: %v\n", fullKey, value)
		}
	}
}

// getConfigPath returns the default config file path
func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "expel", "config.yaml")
}

// validateConfigKey validates key/value pairs for known configuration keys
func validateConfigKey(key, value string) error {
	validations := map[string][]string{
		"container.engine": {config.EngineAPI, config.EngineCLI},
		"log.format":       {config.LogFormatText, config.LogFormatJSON},
		"log.level":        {"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"},
		"install.enabled":  {"true", "false"},
	}

	if allowed, exists := validations[key]; exists {
		for _, v := range allowed {
			if value == v {
				return nil
			}
		}
		return fmt.Errorf("invalid value for %s: %s (allowed: %s)", key, value, strings.Join(allowed, ", "))
	}

	if key == "cache.dir" && (value == "" || filepath.IsAbs(value)) {
		return fmt.Errorf("invalid value for cache.dir: %q must be a relative path", value)
	}
	return nil // Unknown keys pass through
}
