package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"i4.energy/across/ctdlink/ctd"
	"i4.energy/across/ctdlink/monitor"
	"i4.energy/across/ctdlink/publish"
	"i4.energy/across/ctdlink/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port of the CTD, or \"sim\" for the emulator")
	flag.Int("baud-rate", ctd.DefaultBaudRate, "Baud rate of the CTD console")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Duration("command-timeout", 2*time.Second, "Timeout of each CTD prompt exchange")
	flag.Duration("mode-deadline", 30*time.Second, "Deadline for entering and leaving command mode")
	flag.String("redis-addr", "", "Redis address for publishing records (empty disables)")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
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

	var dialer ctd.Dialer = ctd.SerialDialer{
		PortName: config.SerialPort,
		BaudRate: config.BaudRate,
	}
	if config.SerialPort == SimPort {
		logger.Warn("Using the CTD emulator")
		dialer = sim.New(sim.DefaultSettings())
	}

	ctdConfig, err := ctd.NewConfigBuilder().
		WithDialer(dialer).
		WithLogger(logger.With("component", "ctd")).
		WithCommandTimeout(config.CommandTimeout).
		WithModeDeadline(config.ModeDeadline).
		WithWakePulse(config.WakePulse).
		Build()
	if err != nil {
		logger.Error("Failed to create CTD config", "error", err)
		os.Exit(1)
	}

	d, err := ctd.New(context.Background(), ctdConfig)
	if err != nil {
		logger.Error("Failed to open CTD", "error", err)
		os.Exit(1)
	}

	var publisher publish.Publisher = publish.Discard{}
	if config.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		r, err := publish.NewRedis(ctx, publish.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
			Channel:  config.Redis.Channel,
			Keep:     config.Redis.Keep,
		}, logger.With("component", "publish"))
		cancel()
		if err != nil {
			logger.Error("Failed to connect publisher", "error", err)
			os.Exit(1)
		}
		publisher = r
	}

	serial, result := d.SerialNumber(context.Background())
	if result != ctd.Success {
		logger.Warn("CTD did not report its serial number", "result", result.String())
	}
	logger.Info("Starting CTD link", "port", config.SerialPort, "serial_number", serial)

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:     logger.With("component", "server"),
			Driver:     d,
			Metrics:    monitor.New(),
			Publisher:  publisher,
			Instrument: serial,
		},
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
	}

	logger.Info("Closing CTD connection")
	if err := d.Close(); err != nil {
		logger.Error("Failed to close CTD", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close publisher", "error", err)
	}
}
