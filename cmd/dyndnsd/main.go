// dyndnsd keeps a host's DNS records current in its enrollment domain.
// It probes the directory server, sends authenticated RFC 2136 updates
// for the host's addresses, and refreshes them on a periodic timer and
// whenever directory connectivity returns after an outage.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"gitlab.bluewillows.net/root/dyndns/internal/config"
	"gitlab.bluewillows.net/root/dyndns/internal/directory"
	"gitlab.bluewillows.net/root/dyndns/internal/health"
	"gitlab.bluewillows.net/root/dyndns/internal/metrics"
	"gitlab.bluewillows.net/root/dyndns/internal/refresh"
	"gitlab.bluewillows.net/root/dyndns/internal/updater"
	"gitlab.bluewillows.net/root/dyndns/pkg/dnsupdate"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-08-28"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	logger.Info("dyndnsd starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.String("go_version", runtime.Version()),
		slog.String("hostname", cfg.Hostname),
		slog.String("domain", cfg.Domain),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DNS update client
	dnsClient, err := dnsupdate.NewClient(&dnsupdate.Config{
		Port:          cfg.DNSPort,
		Timeout:       cfg.DNSTimeout,
		UseTCP:        cfg.UseTCP,
		TSIGKeyName:   cfg.TSIGKeyName,
		TSIGSecret:    cfg.TSIGSecret,
		TSIGAlgorithm: cfg.TSIGAlgorithm,
	}, dnsupdate.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating dns update client: %w", err)
	}

	// Update executor
	exec, err := updater.New(updater.Config{
		Domain:    cfg.Domain,
		Hostname:  cfg.Hostname,
		Realm:     cfg.Realm,
		Interface: cfg.Interface,
		ServerURI: cfg.ServerURI,
		TTL:       uint32(cfg.TTL),
	}, dnsClient, updater.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating update executor: %w", err)
	}

	// Directory connectivity: provider dials and binds, monitor tracks
	// online/offline transitions.
	providerOpts := []directory.ProviderOption{
		directory.WithProviderLogger(logger),
	}
	if cfg.BindDN != "" {
		providerOpts = append(providerOpts, directory.WithBind(cfg.BindDN, cfg.BindPassword))
	}
	provider := directory.NewProvider(cfg.ServerURI, providerOpts...)
	monitor := directory.NewMonitor(provider, directory.WithMonitorLogger(logger))
	monitor.OnOnline(metrics.RecordOnlineTransition)
	// Recovery probes keep watching for the server while offline; the
	// periodic refresh cycle alone stops probing during an outage.
	monitor.Start(ctx)

	// Refresh coordinator drives the periodic probe-and-update cycle.
	coordinator, err := refresh.New(monitor, exec, monitor,
		refresh.WithInterval(cfg.RefreshInterval),
		refresh.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating refresh coordinator: %w", err)
	}

	// Health and metrics server
	healthServer := health.New(cfg.HealthPort,
		health.WithLogger(logger),
		health.WithVersion(Version),
		health.WithStatus(func() (string, time.Time) {
			state := "offline"
			if monitor.Online() {
				state = "online"
			}
			return state, dnsClient.LastUpdate()
		}),
	)
	healthServer.RegisterChecker("directory", func(ctx context.Context) error {
		if !monitor.Online() {
			return directory.ErrOffline
		}
		return nil
	})

	if err := healthServer.Start(); err != nil {
		return fmt.Errorf("starting health server: %w", err)
	}

	if err := coordinator.Start(ctx); err != nil {
		return fmt.Errorf("starting refresh coordinator: %w", err)
	}

	// Initial probe: a successful connect flips the monitor online,
	// which triggers the first update through the coordinator.
	go func() {
		if err := monitor.Connect(ctx); err != nil {
			logger.Warn("initial directory probe failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("dyndnsd initialized",
		slog.Duration("refresh_interval", cfg.RefreshInterval),
		slog.Int("health_port", cfg.HealthPort),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("shutting down...")
	cancel()
	coordinator.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("dyndnsd shutdown complete")
	return nil
}

func setupLogger(level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
