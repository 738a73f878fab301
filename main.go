package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/simensrostad/mailpal/metrics"
	"github.com/simensrostad/mailpal/modem"
	"github.com/simensrostad/mailpal/network"
	"github.com/simensrostad/mailpal/pdp"
	"github.com/simensrostad/mailpal/registration"
	"github.com/simensrostad/mailpal/signal"
	"github.com/simensrostad/mailpal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	flag.String("serial-port", "/dev/ttyACM0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("sim-pin", "", "SIM card PIN code (if required)")
	flag.Duration("at-timeout", 5*time.Second, "Timeout for a single AT command")
	flag.Duration("registration-interval", 30*time.Second, "Fallback registration query interval")
	flag.String("gateway", "", "IPv4 gateway handed to the network stack")
	flag.String("mqtt-broker", "", "MQTT broker URL for telemetry (empty disables it)")
	flag.String("mqtt-topic", "mailpal", "MQTT topic prefix for telemetry")
	flag.Parse()

	config, err := LoadConfig(
		WithDefaults(),
		WithFile(*configPath),
		WithDotEnv(),
		WithEnv(),
		WithFlags(flag.CommandLine),
	)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Daemon stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Daemon stopped")
}

// run brings the modem up and supervises every task until ctx is done or
// one of them fails.
func run(ctx context.Context, config *Config, logger *slog.Logger) error {
	var gateway netip.Addr
	if config.Gateway != "" {
		var err error
		if gateway, err = netip.ParseAddr(config.Gateway); err != nil || !gateway.Is4() {
			return fmt.Errorf("invalid gateway %q", config.Gateway)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg, "mailpal")

	modemConfig, err := modem.NewConfigBuilder().
		WithATTimeout(config.ATTimeout).
		WithInitTimeout(30 * time.Second).
		WithSimPIN(config.SimPIN).
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		WithLogger(logger.With("component", "modem")).
		WithMetrics(m).
		Build()
	if err != nil {
		return fmt.Errorf("create modem config: %w", err)
	}

	md, err := modem.New(ctx, modemConfig)
	if err != nil {
		return fmt.Errorf("create modem: %w", err)
	}
	defer func() {
		logger.Info("Closing modem connection")
		if err := md.Close(); err != nil && !errors.Is(err, modem.ErrAlreadyClosed) {
			logger.Error("Failed to close modem", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return md.Loop(ctx)
	})

	if err := md.Enable(ctx); err != nil {
		return fmt.Errorf("enable radio: %w", err)
	}

	var identity Identity
	if identity.Firmware, err = md.FirmwareVersion(ctx); err != nil {
		logger.Warn("Could not read firmware version", "error", err)
	}
	if identity.IMEI, err = md.IMEI(ctx); err != nil {
		logger.Warn("Could not read IMEI", "error", err)
	}
	logger.Info("Modem ready", "firmware", identity.Firmware, "imei", identity.IMEI)

	// One signal per consumer of each stream
	pdpRegistrations := signal.New[registration.Status]()
	appRegistrations := signal.New[registration.Status]()
	appConnectivity := signal.New[pdp.Status]()
	registrationSignals := []*signal.Signal[registration.Status]{pdpRegistrations, appRegistrations}
	connectivitySignals := []*signal.Signal[pdp.Status]{appConnectivity}

	if config.MQTT.Broker != "" {
		client, err := telemetry.Connect(ctx, telemetry.Config{
			Broker:   config.MQTT.Broker,
			ClientID: config.MQTT.ClientID,
			Topic:    config.MQTT.Topic,
			Username: config.MQTT.Username,
			Password: config.MQTT.Password,
		}, logger.With("component", "telemetry"))
		if err != nil {
			logger.Warn("Telemetry disabled", "error", err)
		} else {
			telemetryRegistrations := signal.New[registration.Status]()
			telemetryConnectivity := signal.New[pdp.Status]()
			registrationSignals = append(registrationSignals, telemetryRegistrations)
			connectivitySignals = append(connectivitySignals, telemetryConnectivity)

			publisher := telemetry.NewPublisher(client, config.MQTT.Topic, telemetryRegistrations, telemetryConnectivity, logger)
			g.Go(func() error {
				return publisher.Run(ctx)
			})
			g.Go(func() error {
				<-ctx.Done()
				client.Disconnect(500)
				return nil
			})
		}
	}

	stack := network.NewStack()
	registrationMonitor := registration.NewMonitor(md, registration.Config{
		Interval: config.RegistrationInterval,
	}, logger, m, registrationSignals...)
	activator := pdp.NewActivator(md, pdp.Timing{}, logger, m)
	pdpMonitor := pdp.NewMonitor(activator, stack, pdpRegistrations, pdp.MonitorConfig{
		Gateway: gateway,
	}, logger, m, connectivitySignals...)

	g.Go(func() error {
		return registrationMonitor.Run(ctx, md.URC())
	})
	g.Go(func() error {
		return pdpMonitor.Run(ctx)
	})

	g.Go(func() error {
		for {
			status, err := appRegistrations.Wait(ctx)
			if err != nil {
				return err
			}
			logger.Info("Network registration", "status", status.String(), "registered", status.IsRegistered())
		}
	})
	g.Go(func() error {
		addr, err := pdp.WaitForActivation(ctx, appConnectivity)
		if err != nil {
			return err
		}
		if err := stack.WaitForConfig(ctx); err != nil {
			return err
		}
		logger.Info("Network ready", "address", addr)

		for {
			status, err := appConnectivity.Wait(ctx)
			if err != nil {
				return err
			}
			logger.Info("PDP status changed", "status", status.String())
		}
	})

	httpServer := &http.Server{
		Addr: config.BindAddress,
		// h2c lets HTTP/2 clients talk to the plaintext listener
		Handler: h2c.NewHandler(&Server{
			Logger:       logger.With("component", "server"),
			Registration: registrationMonitor,
			PDP:          pdpMonitor,
			Stack:        stack,
			Identity:     identity,
			Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}, &http2.Server{}),
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Closing HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
