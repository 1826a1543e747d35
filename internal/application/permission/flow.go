// Package permission drives the setup sequence a device must complete before
// native scheduling is allowed: notification permission, battery optimization,
// autostart. The flow is a small linear state machine; the display layer only
// observes it through callbacks and pokes it with Advance/Skip.
package permission

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Step is one stage of the setup flow.
type Step string

const (
	StepNotification Step = "notification"
	StepBattery      Step = "battery"
	StepAutoStart    Step = "autostart"
	StepComplete     Step = "complete"
)

// settleDelay is how long to wait after opening a platform settings screen
// before re-checking state; the user needs time to act.
const settleDelay = 2 * time.Second

// Platform is the device capability surface the flow drives. All calls are
// fallible remote-style calls.
type Platform interface {
	RequestNotificationPermission(ctx context.Context) (granted bool, err error)
	IsBatteryOptimized(ctx context.Context) (bool, error)
	OpenBatterySettings(ctx context.Context) error
	// OpenAutoStartSettings reports available=false when the device exposes
	// no autostart screen; the flow then falls back to OpenAppSettings.
	OpenAutoStartSettings(ctx context.Context) (available bool, err error)
	OpenAppSettings(ctx context.Context) error
}

// Callbacks is the observer surface for the display layer. Any field may be
// nil.
type Callbacks struct {
	StepChanged           func(Step)
	PermissionDenied      func()
	BatteryStillOptimized func()
	SetupComplete         func()
}

// Flow sequences Notification -> Battery -> AutoStart -> Complete.
type Flow struct {
	mu        sync.Mutex
	step      Step
	completed bool // setup-complete fired at least once

	platform Platform
	cb       Callbacks
	log      *zap.Logger
	settle   time.Duration
}

// New builds a flow starting at the notification step. settle <= 0 uses the
// default settle delay.
func New(platform Platform, cb Callbacks, log *zap.Logger, settle time.Duration) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	if settle <= 0 {
		settle = settleDelay
	}
	return &Flow{
		step:     StepNotification,
		platform: platform,
		cb:       cb,
		log:      log,
		settle:   settle,
	}
}

// Step returns the current step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Complete reports whether the flow has reached the terminal step.
func (f *Flow) Complete() bool { return f.Step() == StepComplete }

// Initialize re-checks device state and positions the flow accordingly. It is
// re-entrant: called on every launch, it regresses an already-completed flow
// back to the step whose requirement no longer holds (e.g. the user revoked
// notification permission since last run).
func (f *Flow) Initialize(ctx context.Context) error {
	granted, err := f.platform.RequestNotificationPermission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		f.setStep(StepNotification)
		return nil
	}

	optimized, err := f.platform.IsBatteryOptimized(ctx)
	if err != nil {
		return err
	}
	if optimized {
		f.setStep(StepBattery)
		return nil
	}

	f.mu.Lock()
	done := f.completed
	f.mu.Unlock()
	if done {
		f.setStep(StepComplete)
	} else {
		f.setStep(StepAutoStart)
	}
	return nil
}

// Advance executes the current step's action and moves forward on success.
// Completing the final step fires the setup-complete signal exactly once
// across the flow's lifetime.
func (f *Flow) Advance(ctx context.Context) error {
	switch f.Step() {
	case StepNotification:
		return f.advanceNotification(ctx)
	case StepBattery:
		return f.advanceBattery(ctx)
	case StepAutoStart:
		return f.advanceAutoStart(ctx, false)
	default:
		return nil
	}
}

// Skip bypasses the current step without its native call. Only the autostart
// step is user-skippable; Skip anywhere else is a no-op.
func (f *Flow) Skip(ctx context.Context) error {
	if f.Step() != StepAutoStart {
		return nil
	}
	return f.advanceAutoStart(ctx, true)
}

func (f *Flow) advanceNotification(ctx context.Context) error {
	granted, err := f.platform.RequestNotificationPermission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		// Denial is an exit signal, not a state: the flow stays here until
		// the user resolves it.
		f.log.Warn("notification permission denied")
		if f.cb.PermissionDenied != nil {
			f.cb.PermissionDenied()
		}
		return nil
	}

	// Skip the battery step entirely when optimization is already off.
	optimized, err := f.platform.IsBatteryOptimized(ctx)
	if err != nil {
		return err
	}
	if optimized {
		f.setStep(StepBattery)
	} else {
		f.setStep(StepAutoStart)
	}
	return nil
}

func (f *Flow) advanceBattery(ctx context.Context) error {
	if err := f.platform.OpenBatterySettings(ctx); err != nil {
		return err
	}
	if err := f.wait(ctx); err != nil {
		return err
	}
	optimized, err := f.platform.IsBatteryOptimized(ctx)
	if err != nil {
		return err
	}
	if optimized {
		f.log.Info("battery optimization still enabled, continuing anyway")
		if f.cb.BatteryStillOptimized != nil {
			f.cb.BatteryStillOptimized()
		}
	}
	// Advances regardless of outcome.
	f.setStep(StepAutoStart)
	return nil
}

func (f *Flow) advanceAutoStart(ctx context.Context, skip bool) error {
	if !skip {
		available, err := f.platform.OpenAutoStartSettings(ctx)
		if err != nil {
			return err
		}
		if !available {
			if err := f.platform.OpenAppSettings(ctx); err != nil {
				return err
			}
		}
		if err := f.wait(ctx); err != nil {
			return err
		}
	}
	f.setStep(StepComplete)
	return nil
}

func (f *Flow) setStep(next Step) {
	f.mu.Lock()
	changed := f.step != next
	f.step = next
	fireComplete := next == StepComplete && !f.completed
	if fireComplete {
		f.completed = true
	}
	f.mu.Unlock()

	if changed {
		f.log.Info("permission flow step changed", zap.String("step", string(next)))
		if f.cb.StepChanged != nil {
			f.cb.StepChanged(next)
		}
	}
	if fireComplete && f.cb.SetupComplete != nil {
		f.cb.SetupComplete()
	}
}

func (f *Flow) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.settle):
		return nil
	}
}
