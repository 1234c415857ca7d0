package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/config"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/content"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/platform/otel"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/server"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/storage/archive"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/storage/bolt"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/storage/postgres"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting battle server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	shutdownTracing, err := otel.Setup(ctx, "fight-server", cfg.Telemetry)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	registry, catalog, err := content.Ruleset(cfg.Engine.Options.Ruleset, logger)
	if err != nil {
		logger.Fatal("failed to load ruleset", zap.String("ruleset", cfg.Engine.Options.Ruleset), zap.Error(err))
	}
	logger.Info("ruleset loaded",
		zap.String("ruleset", cfg.Engine.Options.Ruleset),
		zap.Int("cards", len(catalog.IDs())),
		zap.Strings("decks", catalog.DeckNames()),
	)

	store, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open battle store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeStore()

	resolver := game.NewResolver(registry, logger, cfg.Engine.MaxIterations)
	engine := game.NewEngine(resolver, store, logger)

	if cfg.Archive.Path != "" {
		arc, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			logger.Fatal("failed to open archive", zap.String("path", cfg.Archive.Path), zap.Error(err))
		}
		defer arc.Close()
		engine.SetArchive(arc)
		logger.Info("archive enabled", zap.String("path", cfg.Archive.Path))
	}

	var grpcServer interface{ GracefulStop() }
	if addr := cfg.Server.GRPC.Address; addr != "" {
		svc := server.NewBattleServer(engine, catalog, cfg.Engine.Options, logger)
		gs := server.NewGRPCServer(cfg.Server.GRPC, svc, logger)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Fatal("failed to listen", zap.String("address", addr), zap.Error(err))
		}
		go func() {
			logger.Info("starting gRPC server", zap.String("address", addr))
			if serveErr := gs.Serve(lis); serveErr != nil {
				logger.Error("gRPC server error", zap.Error(serveErr))
			}
		}()
		grpcServer = gs
	}

	var httpServer *http.Server
	if addr := cfg.Server.WebSocket.Address; addr != "" {
		hub := server.NewHub(engine, cfg.Server.WebSocket, logger)
		httpServer = server.NewHTTPServer(cfg.Server.WebSocket, hub)
		go func() {
			logger.Info("starting WebSocket server",
				zap.String("address", addr),
				zap.String("path", cfg.Server.WebSocket.Path))
			if wsErr := httpServer.ListenAndServe(); wsErr != nil && !errors.Is(wsErr, http.ErrServerClosed) {
				logger.Error("WebSocket server error", zap.Error(wsErr))
			}
		}()
	}

	logger.Info("battle server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("storage", cfg.Storage.Driver),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("WebSocket server shutdown", zap.Error(err))
		}
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("failed to flush spans", zap.Error(err))
	}

	logger.Info("battle server stopped")
}

// openStore selects the host store named by the storage driver.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (game.HostStore, func(), error) {
	switch cfg.Driver {
	case config.DriverBolt:
		s, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("battle store opened", zap.String("driver", cfg.Driver), zap.String("path", cfg.BoltPath))
		return s, func() { _ = s.Close() }, nil
	case config.DriverPostgres:
		s, err := postgres.Connect(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		logger.Info("battle store opened", zap.String("driver", config.DriverMemory))
		return game.NewMemoryStore(), func() {}, nil
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
