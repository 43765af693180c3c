package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/sevenseg/cmd"
	"github.com/smazurov/sevenseg/internal/api"
	"github.com/smazurov/sevenseg/internal/config"
	"github.com/smazurov/sevenseg/internal/device"
	"github.com/smazurov/sevenseg/internal/devnode"
	"github.com/smazurov/sevenseg/internal/events"
	"github.com/smazurov/sevenseg/internal/gpio"
	"github.com/smazurov/sevenseg/internal/led"
	"github.com/smazurov/sevenseg/internal/logging"
	"github.com/smazurov/sevenseg/internal/metrics/exporters"
	"github.com/smazurov/sevenseg/internal/systemd"
	"github.com/smazurov/sevenseg/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"sevenseg.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Device settings
	DescriptionFile  string `help:"Display description file" short:"d" default:"devices.toml" toml:"devices.description_file" env:"DEVICES_DESCRIPTION_FILE"`
	DescriptionWatch bool   `help:"Re-apply the description file when it changes" default:"true" toml:"devices.watch" env:"DEVICES_WATCH"`
	GpioDriver       string `help:"GPIO allocator (auto, periph, rpio, sim)" default:"auto" toml:"gpio.driver" env:"GPIO_DRIVER"`
	MaxHandles       int    `help:"Open handles allowed per display node" default:"64" toml:"devices.max_handles" env:"DEVICES_MAX_HANDLES"`
	HandleIdleSecs   int    `help:"Close handles unused for this many seconds (0 disables)" default:"300" toml:"devices.handle_idle_seconds" env:"DEVICES_HANDLE_IDLE_SECONDS"`

	// Features settings
	FeaturesStatusLed string `help:"Board LED that mirrors display health, e.g. act (empty disables)" default:"" toml:"features.status_led" env:"FEATURES_STATUS_LED"`

	// Metrics settings
	MetricsPrometheusEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSEEnabled        bool `help:"Publish per-device counters on the event stream" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingGpio    string `help:"GPIO logging level" default:"info" toml:"logging.gpio" env:"LOGGING_GPIO"`
	LoggingDevice  string `help:"Device lifecycle logging level" default:"info" toml:"logging.device" env:"LOGGING_DEVICE"`
	LoggingDisplay string `help:"Display state logging level" default:"info" toml:"logging.display" env:"LOGGING_DISPLAY"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingLed     string `help:"Status LED logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"gpio":    opts.LoggingGpio,
				"device":  opts.LoggingDevice,
				"display": opts.LoggingDisplay,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
				"led":     opts.LoggingLed,
			},
		})
		logger := logging.GetLogger("main")
		logger.Info("sevenseg starting", "version", version.String(), "gpio_driver", opts.GpioDriver)

		eventBus := events.New()
		var logSeq atomic.Uint64
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        logSeq.Add(1),
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		alloc, err := gpio.New(opts.GpioDriver, logging.GetLogger("gpio"))
		if err != nil {
			logger.Error("Failed to create GPIO allocator", "error", err)
			os.Exit(1)
		}

		registry := devnode.NewRegistry(logging.GetLogger("devnode"), devnode.WithMaxHandles(opts.MaxHandles))
		controller := device.NewController(alloc, registry, registry,
			device.WithEventBus(eventBus),
			device.WithLogger(logging.GetLogger("device")),
		)
		manager := device.NewManager(controller, logging.GetLogger("device"))
		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

		var ledManager *led.Manager
		if opts.FeaturesStatusLed != "" {
			ledLogger := logging.GetLogger("led")
			ledManager = led.NewManager(led.New(ledLogger), opts.FeaturesStatusLed, eventBus, ledLogger)
		}

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Registry:     registry,
			Devices:      manager,
			EventBus:     eventBus,
		}
		if opts.MetricsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		var sseExporter *exporters.SSEExporter
		if opts.MetricsSSEEnabled {
			sseExporter = exporters.NewSSEExporter(eventBus)
		}

		watcher := config.NewWatcher(opts.DescriptionFile, config.LoadDescription, logging.GetLogger("config"),
			config.WithErrorHandler[*config.Description](func(err error) {
				logger.Error("Description reload failed, keeping current devices", "error", err)
			}),
		)

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			// Subscribe before the first Sync so the initial attach is seen.
			if ledManager != nil {
				ledManager.Start()
			}

			apply := func(desc *config.Description) {
				if syncErr := manager.Sync(desc.Specs()); syncErr != nil {
					logger.Error("Some displays failed to attach", "error", syncErr)
				}
			}

			desc, loadErr := config.LoadDescription(opts.DescriptionFile)
			if loadErr != nil {
				logger.Error("Failed to load description, starting without displays", "path", opts.DescriptionFile, "error", loadErr)
			} else {
				apply(desc)
			}

			if opts.DescriptionWatch {
				watcher.OnReload(func(desc *config.Description) {
					notifier.Reloading()
					apply(desc)
					notifier.Ready(status(manager))
				})
				if watchErr := watcher.Start(ctx); watchErr != nil {
					logger.Warn("Failed to watch description file", "error", watchErr)
				}
			}

			if sseExporter != nil {
				sseExporter.Start(ctx)
			}
			if opts.HandleIdleSecs > 0 {
				maxIdle := time.Duration(opts.HandleIdleSecs) * time.Second
				go registry.RunReaper(ctx, maxIdle/2, maxIdle)
			}
			go notifier.Watchdog(ctx)
			notifier.Ready(status(manager))

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				manager.Stop()
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			notifier.Stopping()

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if stopErr := server.Stop(stopCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping description watcher", "error", stopErr)
			}
			if sseExporter != nil {
				sseExporter.Stop()
			}

			// Detach last so no request can reach a released line.
			manager.Stop()
			if ledManager != nil {
				ledManager.Stop()
			}
			cancel()
		})
	})

	cli.Root().Use = "sevenseg"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateCycleCmd())
	cli.Root().AddCommand(cmd.CreateDescribeCmd())

	cli.Run()
}

func status(m *device.Manager) string {
	n := len(m.Instances())
	if n == 1 {
		return "1 display attached"
	}
	return fmt.Sprintf("%d displays attached", n)
}
