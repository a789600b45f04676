package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"

	"github.com/KirkDiggler/tabletop-api/internal/config"
	"github.com/KirkDiggler/tabletop-api/internal/platform/otel"
	"github.com/KirkDiggler/tabletop-api/internal/redis"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

const (
	serviceName     = "tabletop-api"
	shutdownTimeout = 30 * time.Second
	healthInterval  = 15 * time.Second
	pingTimeout     = 2 * time.Second
)

var (
	httpAddr     string
	grpcAddr     string
	databasePath string
	redisAddr    string
	logLevel     string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API and gRPC health server",
	Long: `Start the tabletop HTTP API together with a gRPC health endpoint.

Configuration is read from TABLETOP_* environment variables; flags override them.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (TABLETOP_HTTP_ADDR)")
	serverCmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC health listen address (TABLETOP_GRPC_HEALTH_ADDR)")
	serverCmd.Flags().StringVar(&databasePath, "db", "", "SQLite database path (TABLETOP_DB_PATH)")
	serverCmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address (TABLETOP_REDIS_ADDR)")
	serverCmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (TABLETOP_LOG_LEVEL)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if grpcAddr != "" {
		cfg.GRPCAddr = grpcAddr
	}
	if databasePath != "" {
		cfg.DatabasePath = databasePath
	}
	if redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.OTELEndpoint, cfg.OTELEnabled)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	db, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	redisClient, err := redis.NewClient(cfg.RedisAddr, &redis.Options{
		PoolSize: cfg.RedisPoolSize,
		UseTLS:   cfg.RedisUseTLS,
	})
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()
	if err := redis.Ping(ctx, redisClient, pingTimeout); err != nil {
		return fmt.Errorf("redis at %s is unreachable: %w", cfg.RedisAddr, err)
	}

	ruleset, err := loadRuleset(cfg)
	if err != nil {
		return err
	}

	handler, err := buildHandler(cfg, db, redisClient, ruleset)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.UnaryServerInterceptor(grpc_recovery.WithRecoveryHandlerContext(recoverFunc)),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.StreamServerInterceptor(grpc_recovery.WithRecoveryHandlerContext(recoverFunc)),
		),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("gRPC health server starting", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		watchHealth(gctx, healthServer, db, redisClient)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down servers...")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		err := httpServer.Shutdown(shutdownCtx)

		select {
		case <-shutdownCtx.Done():
			slog.Warn("Graceful shutdown timeout exceeded, forcing stop")
			grpcServer.Stop()
		case <-stopped:
		}

		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		slog.Info("Servers stopped gracefully")
		return nil
	})

	return g.Wait()
}

// watchHealth reports NOT_SERVING while either backing store is unreachable
func watchHealth(ctx context.Context, healthServer *health.Server, db *sqlite.DB, redisClient redis.Client) {
	check := func() {
		serving := grpc_health_v1.HealthCheckResponse_SERVING
		if err := db.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "SQLite health check failed", "error", err)
			serving = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		if err := redis.Ping(ctx, redisClient, pingTimeout); err != nil {
			slog.WarnContext(ctx, "Redis health check failed", "error", err)
			serving = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		healthServer.SetServingStatus("", serving)
		healthServer.SetServingStatus(serviceName, serving)
	}

	check()
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

func logFunc(ctx context.Context, level grpc_logging.Level, msg string, fields ...any) {
	slog.Log(ctx, slog.Level(level), msg, fields...)
}

func recoverFunc(ctx context.Context, p any) error {
	slog.ErrorContext(ctx, "Recovered from panic in gRPC handler", "panic", p)
	return status.Errorf(codes.Internal, "internal error")
}
