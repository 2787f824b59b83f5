package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/http"
	mw "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/reviewhub-realtime/internal/adapters/primary/realtime"
	wsAdapter "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/websocket"
	"github.com/lorrc/reviewhub-realtime/internal/adapters/secondary/eventbus"
	"github.com/lorrc/reviewhub-realtime/internal/adapters/secondary/memory"
	"github.com/lorrc/reviewhub-realtime/internal/adapters/secondary/postgres"
	"github.com/lorrc/reviewhub-realtime/internal/auth"
	"github.com/lorrc/reviewhub-realtime/internal/config"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/lorrc/reviewhub-realtime/internal/core/services"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service exited", "error", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until it stops. Deferred cleanup runs
// before main decides the exit code.
func run() error {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"notification_store", cfg.Notifications.Store,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Notification store
	notificationRepo, closeStore, err := openNotificationStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open notification store: %w", err)
	}
	defer closeStore()

	// 4. Realtime core: bus, broadcaster, gateway
	bus := eventbus.New(logger)

	overflow, err := realtime.ParseOverflowPolicy(cfg.Realtime.OverflowPolicy)
	if err != nil {
		return fmt.Errorf("invalid realtime configuration: %w", err)
	}
	broadcaster := realtime.NewBroadcaster(realtime.Options{
		BufferSize: cfg.Realtime.BufferSize,
		Overflow:   overflow,
	}, logger)
	broadcaster.RegisterListeners(bus)

	notificationService := services.NewNotificationService(notificationRepo, broadcaster, logger)
	gateway := services.NewRealtimeGateway(broadcaster, notificationService, logger)
	gateway.Register(bus)

	// 5. Security & rate limiting
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	var rateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		rlCfg := mw.DefaultRateLimiterConfig()
		rlCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rlCfg.BurstSize = cfg.RateLimit.BurstSize
		rateLimiter = mw.NewRateLimiter(ctx, rlCfg)
	}

	// 6. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)

	sseHandler := httpAdapter.NewSSEHandler(broadcaster, cfg.Realtime.HeartbeatInterval, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(broadcaster, httpAdapter.WebSocketConfig{
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		Client: wsAdapter.Config{
			PingInterval: cfg.WebSocket.PingInterval,
			PongWait:     cfg.WebSocket.PongWait,
		},
		IsDevelopment: cfg.IsDevelopment(),
	}, errorHandler, logger)
	notificationHandler := httpAdapter.NewNotificationHandler(notificationService, errorHandler, logger)
	streamLimiter := mw.NewStreamLimiter(cfg.Realtime.MaxStreamsPerUser)
	meHandler := httpAdapter.NewMeHandler(notificationService, streamLimiter, errorHandler, logger)
	adminEventHandler := httpAdapter.NewAdminEventHandler(bus, errorHandler, logger)
	healthHandler := httpAdapter.NewHealthHandler(notificationRepo, broadcaster, cfg.App.Version)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	// 7. Setup Router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:        logger,
		TokenManager:  tokenManager,
		RateLimiter:   rateLimiter,
		StreamLimiter: streamLimiter,
		CORS: cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           cfg.CORS.MaxAge,
		},
		MetricsPath:   metricsPath,
		Health:        healthHandler,
		SSE:           sseHandler,
		WebSocket:     wsHandler,
		Notifications: notificationHandler,
		Me:            meHandler,
		AdminEvents:   adminEventHandler,
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ln, err := net.Listen("tcp", cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Port, err)
	}
	logger.Info("server starting", "port", cfg.Server.Port)

	// Open streams never finish on their own, so they are ended before
	// Shutdown waits for ordinary requests.
	return serve(ctx, srv, ln, broadcaster.Close, cfg.Server.ShutdownTimeout, logger)
}

// openNotificationStore builds the configured repository and returns a
// function that releases it.
func openNotificationStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.NotificationRepository, func(), error) {
	if cfg.Notifications.Store != config.StorePostgres {
		return memory.NewNotificationRepository(cfg.Notifications.Capacity), func() {}, nil
	}

	if err := postgres.Migrate(cfg.Database.URL); err != nil {
		return nil, nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("database connection established")

	return postgres.NewNotificationRepository(pool, cfg.Notifications.Capacity), pool.Close, nil
}
