package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zkorum/agora/internal/config"
	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "agora-math",
	Short: "Adaptive opinion clustering for Agora conversations",
	Long: `agora-math clusters the participants of a conversation by how they vote,
adjusting the number of opinion groups when the first clustering comes back
badly balanced.

The clustering itself is delegated to an external engine over HTTP; this
binary decides how many groups to ask for and normalizes what comes back.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/agora-math/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/" + config.AppName)
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix(config.EnvPrefix)
	// Replace dots with underscores for nested keys in env vars
	// e.g., AGORA_MATH_ENGINE_URL for engine.url
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(cfg.Logging.Options())
}

func newEngine(cfg *config.Config) *engine.HTTPEngine {
	return engine.NewHTTPEngine(cfg.Engine.URL, engine.WithTimeout(cfg.Engine.Timeout()))
}
