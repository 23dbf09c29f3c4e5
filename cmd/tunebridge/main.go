// Package main provides the tunebridge service entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"tunebridge/internal/cache"
	"tunebridge/internal/core"
	httpserver "tunebridge/internal/http"
	"tunebridge/internal/store"
	"tunebridge/pkg/platform"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tunebridge",
	Short: "tunebridge - cross-platform music link conversion service",
	Long: `tunebridge resolves a track URL on one streaming platform into equivalent
URLs on the other supported platforms (Spotify, Deezer, YouTube Music) and
serves the aggregated link set over HTTP.`,
	RunE: runServer,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("youtube-api-key", "", "YouTube Data API key")
	rootCmd.PersistentFlags().String("database-path", "./tunebridge.db", "SQLite database path")
	rootCmd.PersistentFlags().String("server-host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Int("cache-size", 10000, "resolved conversion cache capacity")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("TUNEBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.YouTube.APIKey = viper.GetString("youtube-api-key")

	cfg.Database.Path = viper.GetString("database-path")
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./tunebridge.db"
	}

	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	cfg.Server.Port = viper.GetInt("server-port")

	if size := viper.GetInt("cache-size"); size > 0 {
		cfg.Cache.MaxEntries = size
	}

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runServer(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting tunebridge",
		zap.String("database", config.Database.Path),
		zap.Int("port", config.Server.Port))

	db, err := store.Open(config.Database.Path, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open track store: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	registry := core.NewRegistry(
		platform.NewSpotifyAdapter(&config.Spotify, logger.Named("spotify")),
		platform.NewDeezerAdapter(logger.Named("deezer")),
		platform.NewYouTubeAdapter(&config.YouTube, logger.Named("youtube")),
	)

	resolved := cache.NewResolvedCache[*core.ConversionResult](
		config.Cache.MaxEntries, config.Cache.BloomFalsePositiveRate)

	converter := core.NewConverter(config, registry, db, db, resolved, logger.Named("converter"))

	server := httpserver.NewServer(&config.Server, converter, db, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gCtx)
	})

	g.Go(func() error {
		// Evicted LRU entries leave stale bits in the cache's Bloom
		// filter; reset it periodically.
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				resolved.Purge()
			}
		}
	})

	logger.Info("tunebridge started",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("tunebridge stopped with error", zap.Error(err))
		return err
	}

	logger.Info("tunebridge stopped gracefully")
	return nil
}
