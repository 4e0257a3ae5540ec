package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pdflogger/core"
	"pdflogger/host/logger"
	"pdflogger/host/rtc"
)

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Print the raw tick counter.",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			ticks, err := s.client.Clock(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), ticks)
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the clock descriptor and fault state.",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			cfg, err := s.client.Config(ctx)
			if err != nil {
				return err
			}
			shutdown, err := s.client.FaultState(ctx)
			if err != nil {
				return err
			}

			source := "external crystal"
			if cfg.Internal {
				source = "internal RC"
			}
			out := c.OutOrStdout()
			fmt.Fprintf(out, "source:     %s\n", source)
			fmt.Fprintf(out, "frequency:  %d Hz\n", cfg.Frequency)
			fmt.Fprintf(out, "accuracy:   %d ppm\n", cfg.AccuracyPPM)
			fmt.Fprintf(out, "max count:  %#x\n", cfg.MaxCount)
			fmt.Fprintf(out, "horizon:    %d ticks\n", cfg.Space().Horizon())
			fmt.Fprintf(out, "shutdown:   %t\n", shutdown)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the alarm state.",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			status, err := s.client.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(c, status)
			return nil
		})
	},
}

var armAbsolute bool

var armCmd = &cobra.Command{
	Use:   "arm <ticks>",
	Short: "Arm the alarm ticks from now (or at an absolute tick with --at).",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		v, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return fmt.Errorf("parse ticks: %w", err)
		}
		return withSession(func(ctx context.Context, s *session) error {
			var status rtc.Status
			if armAbsolute {
				status, err = s.client.Arm(ctx, uint32(v))
			} else {
				status, err = s.client.ArmIn(ctx, uint32(v))
			}
			if err != nil {
				return err
			}
			logger.InfoKV(ctx, "alarm armed", "target", status.Target)
			printStatus(c, status)
			return nil
		})
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar [set <RFC3339>|now]",
	Short: "Print or load the calendar.",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		var (
			load bool
			when time.Time
		)
		switch {
		case len(args) == 0:
		case args[0] == "set" && len(args) == 2:
			load = true
			if args[1] == "now" {
				when = time.Now()
				break
			}
			t, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("parse time: %w", err)
			}
			when = t
		default:
			return fmt.Errorf("usage: %s", c.Use)
		}

		return withSession(func(ctx context.Context, s *session) error {
			var (
				t   time.Time
				err error
			)
			if load {
				t, err = s.client.SetCalendar(ctx, when)
				if err == nil {
					logger.InfoKV(ctx, "calendar loaded", "time", t)
				}
			} else {
				t, err = s.client.Calendar(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), t.Format(time.RFC3339))
			return nil
		})
	},
}

var (
	driftSamples  int
	driftInterval time.Duration
)

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Measure oscillator drift against the host clock.",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			samples := s.cfg.Drift.Samples
			if driftSamples > 0 {
				samples = driftSamples
			}
			interval := s.cfg.Drift.Interval
			if driftInterval > 0 {
				interval = driftInterval
			}

			ctx = logger.WithName(ctx, "drift")
			logger.InfoKV(ctx, "sampling", "samples", samples, "interval", interval)
			report, err := rtc.MeasureDrift(ctx, s.client, samples, interval)
			if err != nil {
				return err
			}
			if !report.WithinAccuracy {
				logger.WarnKV(ctx, "drift outside nominal accuracy",
					"ppm", report.PPM, "accuracy_ppm", report.AccuracyPPM)
			}

			out := c.OutOrStdout()
			fmt.Fprintf(out, "samples:    %d over %v\n", report.Samples, report.Elapsed)
			fmt.Fprintf(out, "ticks:      %d at %d Hz\n", report.Ticks, report.Frequency)
			fmt.Fprintf(out, "drift:      %+.1f ppm\n", report.PPM)
			fmt.Fprintf(out, "accuracy:   %d ppm (within: %t)\n", report.AccuracyPPM, report.WithinAccuracy)
			return nil
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	armCmd.Flags().BoolVar(&armAbsolute, "at", false, "treat ticks as an absolute counter value")
	driftCmd.Flags().IntVarP(&driftSamples, "samples", "n", 0, "number of samples (default from settings)")
	driftCmd.Flags().DurationVarP(&driftInterval, "interval", "i", 0, "time between samples (default from settings)")
}

func printStatus(c *cobra.Command, status rtc.Status) {
	state := map[core.AlarmMode]string{
		core.AlarmIdle:  "idle",
		core.AlarmArmed: "armed",
		core.AlarmFired: "fired",
	}[status.State]

	out := c.OutOrStdout()
	fmt.Fprintf(out, "state:      %s\n", state)
	fmt.Fprintf(out, "target:     %d\n", status.Target)
	fmt.Fprintf(out, "fires:      %d\n", status.Fires)
	fmt.Fprintf(out, "discarded:  %d\n", status.Discarded)
}
