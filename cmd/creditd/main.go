package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"creditpool/config"
	"creditpool/observability/logging"
	telemetry "creditpool/observability/otel"
	creditdconfig "creditpool/services/creditd/config"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "creditpool.toml", "path to the node configuration")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "creditd: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := strings.TrimSpace(cfg.Environment)
	if override := strings.TrimSpace(os.Getenv("CREDITPOOL_ENV")); override != "" {
		env = override
	}

	logger, logCloser := logging.SetupWithOptions(logging.Options{
		Service:    "creditd",
		Env:        env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.FromEnv("creditd", env, os.Getenv))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	svc, err := loadServiceConfig(resolveRelative(cfgPath, cfg.ServiceFile))
	if err != nil {
		return fmt.Errorf("load service config: %w", err)
	}

	n, err := openNode(cfg, logger, time.Now)
	if err != nil {
		return err
	}
	defer n.Close()

	handler, err := newHandler(n, svc, logger)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", svc.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", svc.ListenAddress, err)
	}
	if svc.TLS.CertPath == "" {
		tcpAddr, _ := listener.Addr().(*net.TCPAddr)
		loopback := tcpAddr != nil && tcpAddr.IP != nil && tcpAddr.IP.IsLoopback()
		if !strings.EqualFold(env, "dev") && !loopback {
			listener.Close()
			return errors.New("plaintext creditd mode is restricted to loopback listeners or dev environment")
		}
	}
	srv := newServer(handler, svc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("creditd listening", "addr", listener.Addr().String(), "pool", n.engine.PoolAddress().String())
		if svc.TLS.CertPath != "" {
			serverErr <- srv.ServeTLS(listener, svc.TLS.CertPath, svc.TLS.KeyPath)
			return
		}
		serverErr <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), svc.Timeouts.Shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("forcing server stop", slog.Any("error", err))
			_ = srv.Close()
		}
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	}
}

// loadServiceConfig reads the HTTP service file, falling back to defaults when
// it does not exist.
func loadServiceConfig(path string) (creditdconfig.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return creditdconfig.Default(), nil
	}
	return creditdconfig.Load(path)
}

// resolveRelative interprets a relative service file path against the
// directory holding the node configuration.
func resolveRelative(cfgPath, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(cfgPath), name)
}
