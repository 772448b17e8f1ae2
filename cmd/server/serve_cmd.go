package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/warp/coverage-engine/api"
	"github.com/warp/coverage-engine/config"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/store/rediscache"
	"github.com/warp/coverage-engine/store/sqlite"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath string
		scenario   string
	)
	v := config.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the coverage monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			log, err := config.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, scenario, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Config file (default: ./config.yaml or ./config/config.yaml)")
	flags.StringVar(&scenario, "scenario", "", "Reset the database and load this demo scenario on startup")
	flags.Int("port", 8080, "HTTP server port")
	flags.String("db", "coverage.db", `SQLite database path (":memory:" for in-memory)`)
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	bindFlags(v, cmd, map[string]string{
		"port":      "port",
		"db_path":   "db",
		"log_level": "log-level",
	})
	return cmd
}

// bindFlags lets explicitly set flags override file and env values.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

func serve(ctx context.Context, cfg config.Config, scenario string, log *zap.Logger) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	var adapter coverage.SyncAdapter = store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, loads fall through to the store", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		adapter = rediscache.New(store, rdb, rediscache.WithTTL(cfg.Redis.TTL), rediscache.WithLogger(log))
		log.Info("snapshot cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	metrics := api.NewMetrics()
	monitor := api.NewMonitor(store, adapter, api.MonitorConfig{
		Enabled:      cfg.Monitor.Enabled,
		Interval:     cfg.Monitor.Interval,
		Concurrency:  cfg.Monitor.Concurrency,
		Sentinel:     cfg.SentinelProject,
		FirstWeekday: cfg.Weekday(),
	}, log, metrics)

	handler := api.NewHandler(store,
		api.WithAdapter(adapter),
		api.WithLogger(log),
		api.WithMetrics(metrics),
		api.WithMonitor(monitor),
		api.WithSentinel(cfg.SentinelProject),
		api.WithFirstWeekday(cfg.Weekday()),
	)
	if scenario != "" {
		if err := handler.LoadScenarioByID(ctx, scenario); err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
	}

	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	monitor.Start()
	defer monitor.Stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath),
			zap.String("env", cfg.Env),
			zap.String("metrics", api.MetricsPath),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
