package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/cpanato/mattermost-plugin-alertmanager/common/id"
	"github.com/cpanato/mattermost-plugin-alertmanager/common/logger"
	"github.com/cpanato/mattermost-plugin-alertmanager/common/otel"
	"github.com/cpanato/mattermost-plugin-alertmanager/core/config"
	"github.com/cpanato/mattermost-plugin-alertmanager/core/db"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/http/middleware"
	httprouter "github.com/cpanato/mattermost-plugin-alertmanager/internal/http/router"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/queue"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/service"
	"github.com/cpanato/mattermost-plugin-alertmanager/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel before logger: the production handler writes through the OTel provider.
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "settings server starting",
		"env", cfg.Env,
		"service", cfg.OTel.ServiceName,
		"setting_id", cfg.Settings.SettingID)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to migrate database", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	var producer queue.Producer
	if cfg.Notify.Enabled() {
		redisClient, err := connectRedis(ctx, cfg.Notify.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Notify.Stream)

		producer = queue.NewRedisProducer(redisClient, cfg.Notify.Stream, nil)
		defer producer.Close()
	} else {
		slog.InfoContext(ctx, "save notifications disabled (no redis configured)")
	}

	stores := store.NewStores(database.Querier())

	services, err := service.NewServices(stores, service.NewTxRunner(database), producer, cfg.Settings)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create services", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if err := services.Close(); err != nil {
		slog.ErrorContext(shutdownCtx, "closing services", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span, Recovery catches panics, Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		AdminAPIKey:     cfg.AdminAPIKey,
		TraceHeaderName: cfg.Notify.TraceHeaderName,
	})

	return router
}

const banner = `
 █████╗ ██╗     ███████╗██████╗ ████████╗███████╗
██╔══██╗██║     ██╔════╝██╔══██╗╚══██╔══╝██╔════╝
███████║██║     █████╗  ██████╔╝   ██║   ███████╗
██╔══██║██║     ██╔══╝  ██╔══██╗   ██║   ╚════██║
██║  ██║███████╗███████╗██║  ██║   ██║   ███████║
╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝   ╚══════╝
`
