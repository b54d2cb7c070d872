package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/macdongler/dashboard/internal/config"
	"github.com/macdongler/dashboard/internal/logging"
	"github.com/macdongler/dashboard/internal/metrics"
	"github.com/macdongler/dashboard/internal/mock"
	"github.com/macdongler/dashboard/internal/server"
	"github.com/macdongler/dashboard/internal/statuslog"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults when empty)")
	statusFile := flag.String("status-file", "", "Override the status log path")
	port := flag.Int("port", 0, "Override server port")
	mockMode := flag.Bool("mock", false, "Write a simulated scan to the status log")
	genToken := flag.Bool("gen-token", false, "Print a random auth token and exit")
	flag.Parse()

	if *genToken {
		token, err := config.GenerateToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *statusFile != "" {
		cfg.Status.File = *statusFile
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(cfg.Log.Development, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(cfg.Status.File, cfg.Status.TailInterval, cfg.Server.MaxStreamClients, logger)
	go hub.Run(ctx)

	if *mockMode {
		w, err := statuslog.Create(cfg.Status.File, logger)
		if err != nil {
			logger.Fatal("open status log", zap.Error(err))
		}
		defer w.Close()

		logger.Info("starting in mock mode",
			zap.String("file", cfg.Status.File),
			zap.Int("devices", cfg.Mock.Devices),
		)
		gen := mock.NewGenerator(w, cfg.Mock.Interval, cfg.Mock.Devices, time.Now().UnixNano(), logger)
		gen.Start(ctx)
	}

	srv := server.NewServer(cfg.Status.File, cfg.Server.Token, hub, logger)
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("status server listening",
		zap.String("addr", httpServer.Addr),
		zap.String("status_file", cfg.Status.File),
		zap.Bool("auth", cfg.Server.Token != ""),
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
