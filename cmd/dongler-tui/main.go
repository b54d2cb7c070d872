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

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/macdongler/dashboard/internal/client"
	"github.com/macdongler/dashboard/internal/config"
	"github.com/macdongler/dashboard/internal/ingest"
	"github.com/macdongler/dashboard/internal/logging"
	"github.com/macdongler/dashboard/internal/metrics"
	"github.com/macdongler/dashboard/internal/tui/app"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults when empty)")
	baseURL := flag.String("url", "", "Base URL of the status server")
	token := flag.String("token", "", "Auth token (if the server requires it)")
	stream := flag.Bool("stream", false, "Use the WebSocket stream instead of polling")
	headless := flag.Bool("headless", false, "Print log records to stdout instead of drawing the dashboard")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Client.URL = *baseURL
	}
	if *token != "" {
		cfg.Client.Token = *token
	}
	if *stream {
		cfg.Client.Transport = config.TransportStream
	}
	if *metricsAddr != "" {
		cfg.Client.MetricsAddr = *metricsAddr
	}

	var logger *zap.Logger
	if *headless {
		logger, err = logging.New(cfg.Log.Development, cfg.Log.File)
	} else {
		logger, err = logging.ForTUI(cfg.Log.Development, cfg.Log.File)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Client.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.Client.MetricsAddr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", zap.String("addr", cfg.Client.MetricsAddr))
	}

	httpSrc := client.NewHTTPSource(cfg.Client.URL, cfg.Client.Token, cfg.Client.Timeout)
	var src client.Source = httpSrc
	if cfg.Client.Transport == config.TransportStream {
		ws := client.NewStreamSource(cfg.Client.URL, cfg.Client.Token, cfg.Client.Timeout)
		defer ws.Close()
		src = ws
	}

	if *headless {
		if err := runHeadless(src, cfg, logger); err != nil {
			logger.Error("headless run", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	m := app.New(app.Options{
		Source:        src,
		Health:        httpSrc,
		Interval:      cfg.Client.PollInterval,
		SeenRetention: cfg.Client.SeenRetention,
		Server:        cfg.Client.URL,
		Transport:     cfg.Client.Transport,
		Logger:        logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runHeadless polls until interrupted, printing each new general-log record.
func runHeadless(src client.Source, cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := ingest.NewSession(ingest.Options{SeenRetention: cfg.Client.SeenRetention, Logger: logger})
	defer session.Close()
	book := session.State().Log()
	printed := 0

	poller := client.NewPoller(src, session, cfg.Client.PollInterval, logger)
	poller.OnReport = func(rep ingest.Report) {
		for _, r := range book.Since(ingest.ViewAll, printed) {
			fmt.Printf("%s [%s] %s\n", r.Time().Format("15:04:05"), r.Level, r.Text)
			printed++
		}
		if rep.Malformed > 0 {
			logger.Warn("dropped malformed events", zap.Int("count", rep.Malformed))
		}
	}

	logger.Info("polling",
		zap.String("url", cfg.Client.URL),
		zap.String("transport", cfg.Client.Transport),
		zap.String("session", session.ID().String()),
	)
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
