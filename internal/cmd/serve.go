package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zkorum/agora/internal/api"
	"github.com/zkorum/agora/internal/config"
	"github.com/zkorum/agora/internal/logging"
	"github.com/zkorum/agora/internal/scaling"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the math HTTP service",
	Long: `Run the HTTP service that answers POST /math with a clustering result.

The scaling thresholds are reloaded whenever the config file changes;
every other setting requires a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	var cache *api.ResultCache
	if cfg.Cache.Enabled {
		cache = api.NewResultCache(cfg.Cache.TTL(), uint64(cfg.Cache.Capacity))
		defer cache.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := api.NewServer(newEngine(cfg), serverConfig(cfg),
		api.WithLogger(logger),
		api.WithPolicy(cfg.Scaling.Policy()),
		api.WithCache(cache),
		api.WithRegistry(reg),
	)

	if file := viper.ConfigFileUsed(); file != "" {
		viper.OnConfigChange(reloadPolicy(srv, logger))
		viper.WatchConfig()
		logger.Info("watching config for scaling changes", "file", file)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		"addr", cfg.Server.Addr,
		"engine_url", cfg.Engine.URL,
		"workers", cfg.Server.Workers,
		"cache", cfg.Cache.Enabled,
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func serverConfig(cfg *config.Config) api.Config {
	return api.Config{
		Workers:           cfg.Server.Workers,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout(),
		RequestTimeout:    cfg.Server.RequestTimeout(),
		ShutdownTimeout:   cfg.Server.ShutdownTimeout(),
		MinVoteThreshold:  cfg.Clustering.MinVoteThreshold,
		MaxGroupCount:     cfg.Clustering.MaxGroupCount,
		GroupField:        cfg.Clustering.GroupField,
	}
}

type policySetter interface {
	SetPolicy(*scaling.Policy)
}

// reloadPolicy returns a config change handler that swaps in the new scaling
// thresholds. A config that fails validation leaves the running policy alone.
func reloadPolicy(target policySetter, logger *logging.Logger) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := config.Load()
		if err != nil {
			logger.Warn("ignoring config reload", "file", e.Name, "error", err)
			return
		}
		target.SetPolicy(cfg.Scaling.Policy())
		logger.Info("scaling policy reloaded", "file", e.Name)
	}
}
