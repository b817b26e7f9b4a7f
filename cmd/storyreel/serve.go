package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	apihttp "github.com/ju4n97/storyreel/api/http"
	"github.com/ju4n97/storyreel/internal/config"
	"github.com/ju4n97/storyreel/internal/model"
)

const (
	shutdownTimeout = 15 * time.Second
	healthService   = "storyreel"
)

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var (
		flagHTTPPort = fs.Int("http-port", config.DefaultHTTPPort(), "HTTP port to listen on")
		flagGRPCPort = fs.Int("grpc-port", config.DefaultGRPCPort(), "GRPC port to listen on")
	)
	flagConfigPath, flagSchemaPath := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	setupLogger(true)

	manager := model.NewManager()
	hs := health.NewServer()

	var current atomic.Pointer[app]
	watcher, err := config.NewWatcher(*flagConfigPath, *flagSchemaPath, func(cfg *config.Config, err error) {
		if err != nil {
			slog.Error("Failed to reload config", "error", err)
			return
		}

		if err := manager.LoadModelsFromConfig(ctx, cfg); err != nil {
			slog.Error("Failed to load models from config", "error", err)
			return
		}

		a := current.Load()
		if a == nil {
			return
		}
		if err := a.reload(ctx, cfg); err != nil {
			slog.Error("Failed to rebuild pipeline", "error", err)
			hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
		slog.Info("Pipeline reloaded")
	})
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	cfg := watcher.Snapshot()
	if err := manager.LoadModelsFromConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load models from config: %w", err)
	}

	a, err := newApp(ctx, cfg, manager)
	if err != nil {
		return err
	}
	current.Store(a)
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to release resources", "error", err)
		}
	}()

	slog.Info("Config loaded successfully", "config", *flagConfigPath, "schema", *flagSchemaPath)

	mux := http.NewServeMux()
	api := apihttp.NewAPI(mux, version)
	apihttp.NewNarrateHandler(api, &a.narrator)
	apihttp.NewSTTHandler(api, a.stt, &a.narrator)
	apihttp.NewLLMHandler(api, a.llm)
	apihttp.NewModelsHandler(api, manager.Registry())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", *flagHTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *flagGRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port %d: %w", *flagGRPCPort, err)
	}

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)
	hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 2)
	go func() {
		slog.Info("HTTP server listening", "port", *flagHTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		slog.Info("gRPC server listening", "port", *flagGRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case err = <-errCh:
		slog.Error("Server stopped", "error", err)
	}

	hs.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		slog.Error("Failed to shut down HTTP server", "error", serr)
	}
	grpcServer.GracefulStop()

	return err
}
