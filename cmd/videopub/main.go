// Package main implements videopub, a command that publishes an encoded
// video file to a messaging channel. It reads base64-encoded frames one
// per line, streams them through the reactive pipeline, and publishes
// them with the messaging client.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/c360/videostream/config"
	"github.com/c360/videostream/logging"
	"github.com/c360/videostream/metric"
	"github.com/c360/videostream/pkg/tlsutil"
	"github.com/c360/videostream/rtm"
	"github.com/c360/videostream/streams"
	"github.com/c360/videostream/video"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "videopub"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	slog.Info("Starting videopub",
		"version", Version,
		"build_time", BuildTime,
		"channel", cfg.Channel.Name)

	tlsConfig, err := tlsutil.LoadClientConfig(cfg.TLS)
	if err != nil {
		return fmt.Errorf("load TLS config: %w", err)
	}

	// optional NATS log mirror for fleet-wide log collection
	appLog := logging.NewLogger(appName, cfg.Bot.ID, nil, logger)
	if cfg.Logging.NATSURL != "" {
		nc, err := nats.Connect(cfg.Logging.NATSURL)
		if err != nil {
			return fmt.Errorf("connect log mirror: %w", err)
		}
		defer nc.Close()
		appLog = logging.NewLogger(appName, cfg.Bot.ID, nc, logger)
	}

	metricsRegistry := metric.NewMetricsRegistry()

	fatalErrs := make(chan error, 1)
	client := rtm.NewClient(cfg.Endpoint.URL(),
		rtm.WithLogger(logger),
		rtm.WithTLSConfig(tlsConfig),
		rtm.WithMetrics(metricsRegistry.CoreMetrics()),
		rtm.WithErrorCallback(func(err error) {
			select {
			case fatalErrs <- err:
			default:
			}
		}))

	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("start messaging client: %w", err)
	}
	appLog.Info("publishing to channel " + cfg.Channel.Name)

	source, err := frameSource(cliCfg.InputPath)
	if err != nil {
		return err
	}
	source = streams.DoFinally(source, func() {
		if client.Status() == rtm.StatusRunning {
			if err := client.Stop(); err != nil {
				slog.Error("error stopping messaging client", "error", err)
			}
		}
	})

	sink := video.NewChannelSink(client, cfg.Channel.Name, logger)
	done := make(chan error, 1)
	sink.Done = func() { done <- nil }
	sink.Failure = func(err error) { done <- err }

	go source.Subscribe(sink)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			appLog.Error("publish stream failed", err)
			return err
		}
		appLog.Info("publish stream complete")
		return nil
	case err := <-fatalErrs:
		appLog.Error("messaging client failed", err)
		return fmt.Errorf("messaging client failed: %w", err)
	case sig := <-sigs:
		slog.Info("Shutting down", "signal", sig.String())
		if client.Status() == rtm.StatusRunning {
			return client.Stop()
		}
		return nil
	}
}

// frameSource streams the input file as encoded packets, one frame per
// base64 line.
func frameSource(path string) (streams.Publisher[video.EncodedPacket], error) {
	lines, err := video.FileLineSource(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return streams.FlatMap(lines, func(line string) streams.Publisher[video.EncodedPacket] {
		if line == "" {
			return streams.Empty[video.EncodedPacket]()
		}
		data, err := base64.StdEncoding.DecodeString(line)
		if err != nil {
			return streams.Error[video.EncodedPacket](fmt.Errorf("malformed frame line: %w", err))
		}
		return streams.Of[video.EncodedPacket](video.EncodedFrame{Data: data})
	}), nil
}
