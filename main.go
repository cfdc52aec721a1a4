package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-ocr-relay/logging"
	"go-ocr-relay/redis"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "ocr-relay",
	Short: "Relay document uploads to OCR services",
	Long: `ocr-relay accepts identity card and school certificate uploads, forwards
them to the configured OCR services and normalizes their answers. It also
stores arbitrary JSON submissions.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		return runServer(config)
	},
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe the configured OCR services",
	Long:  `Requests <root>/health of each OCR service and exits non-zero if any of them is unhealthy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		return runHealthcheck(cmd.Context(), config)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path for the config.json to use")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Overrides the configured log level")
	rootCmd.AddCommand(healthcheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (Config, error) {
	config, err := readConfig(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	logging.InitLogger(config.LogLevel, config.LogFormat)
	if configPath != "" {
		slog.Info("Using config", "path", configPath)
	}
	return config, nil
}

func runServer(config Config) error {
	storage, err := createSubmissionStorage(&config)
	if err != nil {
		return fmt.Errorf("failed to instantiate submission storage: %w", err)
	}

	slog.Info("OCR services configured",
		"identity_url", config.IdentityOcr.URL,
		"certificate_url", config.CertificateOcr.URL,
		"certificate_health_probe", config.CertificateOcr.HealthProbe,
	)

	server, err := NewServer(NewServerState(config, storage), config.ServerConfig)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to listen and serve: %w", err)
		}
		return nil
	case sig := <-stop:
		slog.Info("Received signal", "signal", sig.String())
		return server.Stop()
	}
}

func runHealthcheck(ctx context.Context, config Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	unhealthy := 0
	services := []struct {
		name   string
		config OcrServiceConfig
	}{
		{"identity", config.IdentityOcr},
		{"certificate", config.CertificateOcr},
	}
	for _, service := range services {
		prober := NewHttpHealthProber(service.config.HealthTimeout)
		healthy := prober.IsHealthy(ctx, service.config.URL)
		slog.Info("Health check", "service", service.name, "root", RootURL(service.config.URL), "healthy", healthy)
		if !healthy {
			unhealthy++
		}
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d of %d OCR services are unhealthy", unhealthy, len(services))
	}
	return nil
}

func createSubmissionStorage(config *Config) (SubmissionStorage, error) {
	switch config.StorageType {
	case "redis":
		slog.Info("Using redis submission storage")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisSubmissionStorage(client, config.RedisConfig.Namespace), nil
	case "redis_sentinel":
		slog.Info("Using redis sentinel submission storage")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisSubmissionStorage(client, config.RedisSentinelConfig.Namespace), nil
	case "postgres":
		slog.Info("Using postgres submission storage")
		return NewPostgresSubmissionStorage(config.PostgresConfig.DSN)
	case "memory":
		slog.Info("Using in memory submission storage")
		return NewInMemorySubmissionStorage(), nil
	case "none", "":
		slog.Info("Submissions are logged but not stored")
		return NoopSubmissionStorage{}, nil
	}
	return nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}
