// Command shotfinder serves the shot-finding engine to a host process over
// stdin and stdout, one "COMMAND|json" request per line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/arenabot/shotfinder/internal/api"
	"github.com/arenabot/shotfinder/internal/config"
	"github.com/arenabot/shotfinder/internal/dispatcher"
	"github.com/arenabot/shotfinder/internal/handlers"
	"github.com/arenabot/shotfinder/internal/influx"
	"github.com/arenabot/shotfinder/internal/logging"
	"github.com/arenabot/shotfinder/internal/monitor"
	intOtel "github.com/arenabot/shotfinder/internal/otel"
	"github.com/arenabot/shotfinder/internal/storage"
	"github.com/arenabot/shotfinder/pkg/hostio"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	ExtensionName string = "shotfinder"
)

// shutdownTimeout bounds flushing the journal and telemetry on exit.
const shutdownTimeout = 10 * time.Second

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configDir, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "shotfinder: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configDir string, in io.Reader, out io.Writer) error {
	sessionStart := time.Now()

	// Console logging until the config says where logs go
	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Options{Level: "info"})
	logger := slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
		config.LoadDefaults()
	} else {
		logger.Info("Loaded config", "dir", configDir)
	}
	logLevel := viper.GetString("logLevel")

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFilePath := logging.LogFilePath(logsDir, ExtensionName, sessionStart)
	if _, err := os.Stat(logFilePath); err == nil {
		os.Rename(logFilePath, logFilePath+".old")
	}
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	otelProvider, err := intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: CurrentVersion,
		BatchTimeout:   otelCfg.BatchTimeout,
		MetricInterval: otelCfg.MetricInterval,
		LogWriter:      logFile,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
		otelProvider = nil
	}
	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		// before the dispatcher and handlers create their instruments
		otelProvider.Install()
		otelLogProvider = otelProvider.LoggerProvider()
	}

	// service is set below; the context provider reads it lazily
	var service atomic.Pointer[handlers.Service]
	slogManager.Setup(logging.Options{
		File:     logFile,
		Level:    logLevel,
		Provider: otelLogProvider,
		Context: func() []slog.Attr {
			if svc := service.Load(); svc != nil {
				return svc.LogAttrs()
			}
			return nil
		},
	})
	logger = slogManager.Logger()
	logger.Info("Logging to file", "path", logFilePath, "version", CurrentVersion, "build", BuildDate)

	graylogAddr := ""
	if viper.GetBool("graylog.enabled") {
		graylogAddr = viper.GetString("graylog.address")
	}
	zl, err := logging.NewZerolog(logging.ZerologOptions{
		File:           logFile,
		Level:          logLevel,
		GraylogAddress: graylogAddr,
		Hook: func(e *zerolog.Event) {
			e.Str("extension", ExtensionName)
		},
	})
	if err != nil {
		return fmt.Errorf("creating zerolog logger: %w", err)
	}
	defer zl.Close()

	// Search metrics
	var metrics handlers.SearchWriter
	var statusWriter monitor.StatusWriter
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		backupPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.lp.gz", ExtensionName, sessionStart.Format("20060102_150405")))
		manager := influx.NewManager(influxCfg, backupPath, zl.Logger)
		if err := manager.Connect(ctx); err != nil {
			logger.Error("Failed to set up InfluxDB, search metrics disabled", "error", err)
		} else {
			metrics = manager
			statusWriter = manager
			defer manager.Close()
		}
	}

	// Shot journal
	backend, err := createStorageBackend(config.GetStorageConfig(), storageDeps{
		Logger:       logger,
		DBLogger:     zl.Logger,
		SessionStart: sessionStart,
	})
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		logger.Error("Failed to initialize storage backend, journal disabled", "error", err)
		backend = storage.Nop{}
	}

	// Journal uploads
	var uploader handlers.Uploader
	apiCfg := config.GetAPIConfig()
	if apiCfg.Upload {
		client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
		if err := client.Healthcheck(ctx); err != nil {
			logger.Warn("Upload server not healthy, uploads may fail", "url", apiCfg.ServerURL, "error", err)
		}
		uploader = client
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(zl.Sampled))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	svc, err := handlers.NewService(handlers.Dependencies{
		Backend:   backend,
		Metrics:   metrics,
		Uploader:  uploader,
		UploadTag: apiCfg.Tag,
		Logger:    logger,
		Horizon:   viper.GetFloat64("predictionHorizon"),
		Version:   CurrentVersion,
		Build:     BuildDate,
	})
	if err != nil {
		return fmt.Errorf("creating handler service: %w", err)
	}
	service.Store(svc)
	svc.RegisterHandlers(d)

	// the configured arena goes through the command so the journal starts too
	if name := viper.GetString("arena"); name != "" {
		payload, _ := json.Marshal(map[string]string{"name": name})
		if _, err := d.Dispatch(dispatcher.Event{Command: ":LOAD:ARENA:", Payload: payload, Timestamp: sessionStart}); err != nil {
			logger.Warn("Configured arena not loaded", "arena", name, "error", err)
		}
	}

	var statusMonitor *monitor.Service
	if monCfg := config.GetMonitorConfig(); monCfg.Enabled {
		statusMonitor = monitor.NewService(monitor.Dependencies{
			Status:   svc.Status,
			Path:     filepath.Join(logsDir, monCfg.File),
			Interval: monCfg.Interval,
			Writer:   statusWriter,
			Logger:   logger,
		})
		if err := statusMonitor.Start(); err != nil {
			logger.Error("Failed to start status monitor", "error", err)
			statusMonitor = nil
		}
	}
	logger.Info("Ready", "commands", len(d.Commands()))

	serveErr := hostio.Serve(ctx, in, out, d)
	if errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}

	// Drain the journal queue before the session closes
	d.Close()
	if err := svc.Close(); err != nil {
		logger.Error("Failed to end journal session", "error", err)
	}
	if statusMonitor != nil {
		statusMonitor.Stop()
	}
	if err := backend.Close(); err != nil {
		logger.Error("Failed to close storage backend", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := slogManager.Flush(shutdownCtx); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}
	if otelProvider != nil {
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	logger.Info("Shut down")
	return serveErr
}
