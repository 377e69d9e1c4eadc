package search

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// DefaultPathDelay paces path reconstruction, faster than any visit speed
const DefaultPathDelay = 2 * time.Millisecond

// Pacer suspends a run between steps. Pause returns a non-nil error when the
// run should be cancelled.
type Pacer interface {
	Pause(ctx context.Context, phase Phase) error
}

// PacerFunc adapts a function to the Pacer interface
type PacerFunc func(ctx context.Context, phase Phase) error

// Pause calls f
func (f PacerFunc) Pause(ctx context.Context, phase Phase) error {
	return f(ctx, phase)
}

// NoDelay runs steps back to back, yielding the processor between them
type NoDelay struct{}

// Pause yields and reports context cancellation
func (NoDelay) Pause(ctx context.Context, phase Phase) error {
	runtime.Gosched()
	return ctx.Err()
}

// DelayPacer sleeps Visit after search steps and Path after trace steps
type DelayPacer struct {
	Visit time.Duration
	Path  time.Duration
}

// Pause waits for the phase's delay or until ctx is done
func (p DelayPacer) Pause(ctx context.Context, phase Phase) error {
	delay := p.Visit
	if phase == PhaseTrace {
		delay = p.Path
	}
	if delay <= 0 {
		return NoDelay{}.Pause(ctx, phase)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Speed is a named visit delay
type Speed struct {
	Name  string        `json:"name"`
	Delay time.Duration `json:"delay_ns"`
}

// Speed presets
var (
	SpeedSlow    = Speed{Name: "slow", Delay: 50 * time.Millisecond}
	SpeedMedium  = Speed{Name: "medium", Delay: 20 * time.Millisecond}
	SpeedFast    = Speed{Name: "fast", Delay: 5 * time.Millisecond}
	SpeedInstant = Speed{Name: "instant", Delay: 0}
)

// DefaultSpeed is used when none is configured. A fresh visualizer starts
// at the slow preset.
var DefaultSpeed = SpeedSlow

// Speeds lists the presets from slowest to fastest
var Speeds = []Speed{SpeedSlow, SpeedMedium, SpeedFast, SpeedInstant}

// ParseSpeed resolves a preset name
func ParseSpeed(name string) (Speed, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultSpeed, nil
	}
	for _, speed := range Speeds {
		if speed.Name == name {
			return speed, nil
		}
	}
	return Speed{}, fmt.Errorf("unknown speed %q (use slow, medium, fast or instant)", name)
}

// Pacer returns a pacer using this speed for visits and DefaultPathDelay for
// path steps
func (s Speed) Pacer() Pacer {
	path := DefaultPathDelay
	if s.Delay == 0 {
		path = 0
	}
	return DelayPacer{Visit: s.Delay, Path: path}
}
