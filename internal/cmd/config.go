package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zkorum/agora/internal/config"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify agora-math configuration",
	Long: `View or modify agora-math configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  agora-math config set engine.url http://localhost:8000
  agora-math config set clustering.max_group_count 4
  agora-math config set scaling.crowd_imbalance 0.85

The whole configuration is validated before the file is written.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/agora-math/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// configKeyTypes lists every settable key and how its value is parsed.
var configKeyTypes = map[string]string{
	"server.addr":                        "string",
	"server.workers":                     "int",
	"server.read_header_timeout_seconds": "int",
	"server.request_timeout_seconds":     "int",
	"server.shutdown_timeout_seconds":    "int",
	"engine.url":                         "string",
	"engine.timeout_seconds":             "int",
	"clustering.min_vote_threshold":      "int",
	"clustering.max_group_count":         "int",
	"clustering.group_field":             "string",
	"scaling.small_population":           "int",
	"scaling.pair_population":            "int",
	"scaling.medium_population":          "int",
	"scaling.large_population":           "int",
	"scaling.crowd_population":           "int",
	"scaling.min_group_size":             "int",
	"scaling.min_groups_to_shrink":       "int",
	"scaling.sparse_group_size":          "int",
	"scaling.crowd_imbalance":            "float",
	"scaling.small_pair_imbalance":       "float",
	"scaling.pair_imbalance":             "float",
	"scaling.medium_imbalance":           "float",
	"scaling.large_imbalance":            "float",
	"scaling.medium_max_groups":          "int",
	"scaling.large_max_groups":           "int",
	"cache.enabled":                      "bool",
	"cache.ttl_seconds":                  "int",
	"cache.capacity":                     "int",
	"logging.level":                      "string",
	"logging.dir":                        "string",
	"logging.max_size_mb":                "int",
	"logging.max_backups":                "int",
	"logging.compress":                   "bool",
}

func parseConfigValue(key, value string) (any, error) {
	keyType, ok := configKeyTypes[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nValid keys: %s", key, strings.Join(validConfigKeys(), ", "))
	}

	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected number", key)
		}
		return f, nil
	default:
		return value, nil
	}
}

func validConfigKeys() []string {
	keys := make([]string, 0, len(configKeyTypes))
	for k := range configKeyTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseConfigValue(key, args[1])
	if err != nil {
		return err
	}

	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return fmt.Errorf("rejected %s = %v: %w", key, typedValue, err)
	}

	// Ensure config directory exists
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const configHeader = `# agora-math configuration
#
# Every key can also be set from the environment with the AGORA_MATH_ prefix,
# e.g. AGORA_MATH_ENGINE_URL or AGORA_MATH_SCALING_CROWD_IMBALANCE.
# Changes to the scaling section are picked up by a running server.

`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'agora-math config set' to modify values", configFile)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configFile, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", config.ConfigFile())
	fmt.Fprintf(out, "  2. $HOME/.config/%s/config.yaml\n", config.AppName)
	fmt.Fprintln(out, "  3. ./config.yaml (current directory)")
	return nil
}
