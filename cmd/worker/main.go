package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/id"
	"github.com/cpanato/mattermost-plugin-alertmanager/common/logger"
	"github.com/cpanato/mattermost-plugin-alertmanager/common/otel"
	"github.com/cpanato/mattermost-plugin-alertmanager/core/config"
	"github.com/cpanato/mattermost-plugin-alertmanager/core/db"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/queue"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/reload"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	// Every instance keeps its own routing table, so each needs the full
	// stream rather than a share of it.
	group := cfg.Notify.Group + "." + cfg.Notify.Consumer

	slog.InfoContext(ctx, "reload worker starting",
		"env", cfg.Env,
		"setting_id", cfg.Settings.SettingID,
		"consumer_group", group,
		"consumer_name", cfg.Notify.Consumer)

	// Different node id than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Notify.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Notify.Stream)

	// The group must exist before the initial load so no save slips between them.
	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:    cfg.Notify.Stream,
		Group:     group,
		Consumer:  cfg.Notify.Consumer,
		BatchSize: 10,
		Block:     5 * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Querier())
	reloader := reload.NewReloader(cfg.Settings.SettingID, stores.Settings(), stores.Revisions())

	if err := reloader.Load(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to load routes", "error", err)
		os.Exit(1)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- reloader.Run(runCtx, consumer)
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	running := true
	select {
	case <-quit:
		slog.InfoContext(ctx, "shutting down worker...")
	case err := <-errCh:
		running = false
		slog.ErrorContext(ctx, "reload loop stopped", "error", err)
	}

	stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if running {
		select {
		case <-shutdownCtx.Done():
			slog.WarnContext(ctx, "shutdown timeout exceeded")
		case <-errCh:
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
██████╗ ███████╗██╗      ██████╗  █████╗ ██████╗ 
██╔══██╗██╔════╝██║     ██╔═══██╗██╔══██╗██╔══██╗
██████╔╝█████╗  ██║     ██║   ██║███████║██║  ██║
██╔══██╗██╔══╝  ██║     ██║   ██║██╔══██║██║  ██║
██║  ██║███████╗███████╗╚██████╔╝██║  ██║██████╔╝
╚═╝  ╚═╝╚══════╝╚══════╝ ╚═════╝ ╚═╝  ╚═╝╚═════╝ 
`
