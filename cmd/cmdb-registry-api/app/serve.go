package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	registryapp "github.com/stacklok/cmdb-registry-server/internal/app"
	"github.com/stacklok/cmdb-registry-server/internal/config"
	"github.com/stacklok/cmdb-registry-server/internal/telemetry"
	"github.com/stacklok/cmdb-registry-server/internal/versions"
)

const defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registry API server",
		Long: `Start the registry API server.

Configuration is read from --config, else from the first existing file of
/etc/cmdb/config.yaml and ./config.yaml. Without a file the server runs on the
in-memory store and lock backends.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, v.GetString("address"), v.GetString("config"))
		},
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().String("config", "", "Path to configuration file (YAML format)")

	for _, name := range []string{"address", "config"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			slog.Error("Failed to bind flag", "flag", name, "error", err)
			os.Exit(1)
		}
	}

	return cmd
}

// loadConfig reads the configuration file at path, or searches the default
// locations when path is empty
func loadConfig(path string) (*config.Config, error) {
	opt := config.WithDefaultPaths()
	if path != "" {
		opt = config.WithConfigPath(path)
	}

	cfg, err := config.LoadConfig(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, address, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	slog.Info("Loaded configuration",
		"path", configPath,
		"store_type", cfg.Store.GetType(),
		"lock_type", cfg.Lock.GetType())

	tel, err := telemetry.New(ctx,
		telemetry.WithTelemetryConfig(cfg.Telemetry),
		telemetry.WithDefaultServiceVersion(versions.Version),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	opts := []registryapp.RegistryAppOptions{
		registryapp.WithConfig(cfg),
		registryapp.WithAddress(address),
		registryapp.WithMeterProvider(tel.MeterProvider()),
		registryapp.WithTracerProvider(tel.TracerProvider()),
	}
	if h := tel.MetricsHandler(); h != nil {
		opts = append(opts, registryapp.WithMetricsHandler(h))
	}

	registryApp, err := registryapp.NewRegistryApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build registry application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- registryApp.Start()
	}()

	select {
	case err := <-errCh:
		_ = registryApp.Stop(defaultGracefulTimeout)
		return err
	case <-ctx.Done():
	}

	return registryApp.Stop(defaultGracefulTimeout)
}
