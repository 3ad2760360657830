package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/lotostats/internal/config"
	"github.com/MarcoPoloResearchLab/lotostats/internal/drawsync"
	"github.com/MarcoPoloResearchLab/lotostats/internal/scheduler"
	"github.com/MarcoPoloResearchLab/lotostats/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lotostats-api",
		Short: "Lottery results tracker backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newSyncCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a dotenv file loaded before configuration")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("provider-base-url", defaults.GetString("provider.base_url"), "Results provider endpoint")
	cmd.PersistentFlags().Int("provider-timeout-seconds", defaults.GetInt("provider.timeout_seconds"), "Provider request timeout in seconds")
	cmd.PersistentFlags().Int("initial-months", defaults.GetInt("sync.initial_months"), "Months fetched when a category is loaded for the first time")
	cmd.PersistentFlags().String("sync-schedule", defaults.GetString("sync.schedule"), "Cron schedule for background refreshes (empty disables)")
	cmd.PersistentFlags().String("ai-model", defaults.GetString("ai.model"), "Gemini model used for predictions")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "provider.base_url", "provider-base-url")
	bindFlag(cmd, "provider.timeout_seconds", "provider-timeout-seconds")
	bindFlag(cmd, "sync.initial_months", "initial-months")
	bindFlag(cmd, "sync.schedule", "sync-schedule")
	bindFlag(cmd, "ai.model", "ai-model")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, appConfig)
	if err != nil {
		return err
	}
	defer app.close()
	logger := app.logger

	realtime := server.NewRealtimeDispatcher()
	handler, err := server.NewHTTPHandler(server.Dependencies{
		Store:          app.store,
		Queries:        app.queries,
		Synchronizer:   app.coordinator,
		Predictor:      app.predictor,
		Realtime:       realtime,
		AllowedOrigins: appConfig.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if appConfig.SyncSchedule != "" {
		refreshScheduler, err := scheduler.New(scheduler.Config{
			Schedule:  appConfig.SyncSchedule,
			Refresher: app.coordinator,
			Counter:   app.store,
			OnRefresh: func(result drawsync.Result) {
				realtime.PublishChange(result.Category, "scheduled_refresh", result.Inserted(), len(result.Records))
			},
			Logger: logger,
		})
		if err != nil {
			return err
		}
		refreshScheduler.Start(signalCtx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := refreshScheduler.Stop(stopCtx); err != nil {
				logger.Warn("refresh scheduler did not stop cleanly", zap.Error(err))
			}
		}()
	}

	// Event streams hold their requests open; they end when baseCtx is cancelled.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		cancelBase()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func printJSON(cmd *cobra.Command, value interface{}) error {
	encoded, err := marshalIndent(value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return err
}
