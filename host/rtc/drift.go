package rtc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrTooFewSamples is returned when a drift run asks for less than two samples
var ErrTooFewSamples = errors.New("drift needs at least two samples")

// DriftReport compares the device counter against the host clock
type DriftReport struct {
	Samples        int
	Elapsed        time.Duration // Host time between first and last sample
	Ticks          uint64        // Device ticks over the same span, unwrapped
	Frequency      uint32
	PPM            float64 // Positive when the device runs fast
	AccuracyPPM    uint16
	WithinAccuracy bool // |PPM| within the nominal accuracy of the source
}

// Drift measures device clock drift by sampling the counter. Now and
// Wait default to the wall clock; tests replace them.
type Drift struct {
	Client   *Client
	Samples  int
	Interval time.Duration
	Now      func() time.Time
	Wait     func(ctx context.Context, d time.Duration) error
}

// Measure takes the samples and computes the drift. Consecutive samples
// must be less than half a counter range apart.
func (d *Drift) Measure(ctx context.Context) (DriftReport, error) {
	if d.Samples < 2 {
		return DriftReport{}, ErrTooFewSamples
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	wait := d.Wait
	if wait == nil {
		wait = sleepContext
	}

	cfg, err := d.Client.Config(ctx)
	if err != nil {
		return DriftReport{}, fmt.Errorf("read clock config: %w", err)
	}
	space := cfg.Space()
	if uint64(d.Interval.Seconds()*float64(cfg.Frequency)) >= uint64(space.Horizon()) {
		return DriftReport{}, fmt.Errorf("sample interval %v exceeds the counter horizon", d.Interval)
	}

	var (
		start, last time.Time
		prev        uint32
		ticks       uint64
	)
	for i := 0; i < d.Samples; i++ {
		if i > 0 {
			if err := wait(ctx, d.Interval); err != nil {
				return DriftReport{}, err
			}
		}
		clock, err := d.Client.Clock(ctx)
		if err != nil {
			return DriftReport{}, fmt.Errorf("sample %d: %w", i, err)
		}
		last = now()
		if i == 0 {
			start = last
		} else {
			ticks += uint64(space.Distance(prev, clock))
		}
		prev = clock
	}

	report := DriftReport{
		Samples:     d.Samples,
		Elapsed:     last.Sub(start),
		Ticks:       ticks,
		Frequency:   cfg.Frequency,
		AccuracyPPM: cfg.AccuracyPPM,
	}
	if report.Elapsed > 0 {
		device := float64(ticks) / float64(cfg.Frequency)
		host := report.Elapsed.Seconds()
		report.PPM = (device - host) / host * 1e6
	}
	report.WithinAccuracy = math.Abs(report.PPM) <= float64(cfg.AccuracyPPM)
	return report, nil
}

// MeasureDrift is a shortcut for a wall-clock Drift run
func MeasureDrift(ctx context.Context, client *Client, samples int, interval time.Duration) (DriftReport, error) {
	d := &Drift{Client: client, Samples: samples, Interval: interval}
	return d.Measure(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
