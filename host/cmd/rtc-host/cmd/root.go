// Package cmd is the rtc-host command line
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pdflogger/core"
	"pdflogger/host/config"
	"pdflogger/host/logger"
	"pdflogger/host/rtc"
	"pdflogger/host/serial"
)

var (
	// configPath is the settings file
	configPath string
	// device overrides the serial device from the settings file
	device string
	// logLevel overrides the log level from the settings file
	logLevel string
	// loopback talks to an in-process emulated device instead of a port
	loopback bool
	// loopbackSkew is the emulated oscillator error in ppm
	loopbackSkew float64

	rootCmd = &cobra.Command{
		Use:   "rtc-host",
		Short: "Inspect and drive the data logger RTC.",
		Long: `Host tool for the RTC of the PDF data logger.

Reads the tick counter and clock descriptor, arms the alarm, reads and
loads the calendar and measures oscillator drift against the host clock.
With --loopback the commands run against an emulated device.`,
		SilenceUsage: true,
	}
)

// Execute runs the rtc-host CLI and exits with non-zero status on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to settings file (default "+config.DefaultConfigFilename+")")
	flags.StringVarP(&device, "device", "d", "", "serial device of the logger")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&loopback, "loopback", false, "use an in-process emulated device")
	flags.Float64Var(&loopbackSkew, "loopback-skew", 0, "emulated oscillator error in ppm")

	if err := flags.MarkHidden("loopback-skew"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(clockCmd, infoCmd, statusCmd, armCmd, calendarCmd, driftCmd)
}

// session is one connected client with its settings
type session struct {
	cfg    *config.Config
	client *rtc.Client
}

// withSession loads settings, connects and runs fn
func withSession(fn func(ctx context.Context, s *session) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if device != "" {
		cfg.Device = device
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	lvl, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	logger.SetLevel(lvl)

	port, name, err := openPort(cfg)
	if err != nil {
		return err
	}
	ctx = logger.WithKV(ctx, "device", name)
	logger.DebugKV(ctx, "connected", "response_timeout", cfg.ResponseTimeout)

	client := rtc.NewClient(port, cfg.ResponseTimeout)
	defer func() {
		if err := client.Close(); err != nil {
			logger.WarnKV(ctx, "close port", "error", err)
		}
	}()

	return fn(ctx, &session{cfg: cfg, client: client})
}

func openPort(cfg *config.Config) (io.ReadWriteCloser, string, error) {
	if loopback {
		lb, err := rtc.NewLoopback(rtc.LoopbackOptions{
			Source:  core.OscInternal32000,
			SkewPPM: loopbackSkew,
		})
		if err != nil {
			return nil, "", fmt.Errorf("start loopback: %w", err)
		}
		return lb, "loopback", nil
	}

	port, err := serial.Open(&serial.Config{
		Device:      cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, "", err
	}
	return port, port.Device(), nil
}
