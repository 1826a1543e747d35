package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePlatform struct {
	granted          bool
	grantErr         error
	optimized        bool
	batteryOpened    int
	autoStartOpened  int
	appOpened        int
	autoStartUnavail bool
}

func (p *fakePlatform) RequestNotificationPermission(context.Context) (bool, error) {
	return p.granted, p.grantErr
}
func (p *fakePlatform) IsBatteryOptimized(context.Context) (bool, error) {
	return p.optimized, nil
}
func (p *fakePlatform) OpenBatterySettings(context.Context) error {
	p.batteryOpened++
	return nil
}
func (p *fakePlatform) OpenAutoStartSettings(context.Context) (bool, error) {
	p.autoStartOpened++
	return !p.autoStartUnavail, nil
}
func (p *fakePlatform) OpenAppSettings(context.Context) error {
	p.appOpened++
	return nil
}

type spy struct {
	steps     []Step
	denied    int
	warned    int
	completed int
}

func (s *spy) callbacks() Callbacks {
	return Callbacks{
		StepChanged:           func(st Step) { s.steps = append(s.steps, st) },
		PermissionDenied:      func() { s.denied++ },
		BatteryStillOptimized: func() { s.warned++ },
		SetupComplete:         func() { s.completed++ },
	}
}

func newFlow(p Platform, s *spy) *Flow {
	return New(p, s.callbacks(), zap.NewNop(), time.Millisecond)
}

func TestAdvance_FullRunOptimizedDevice(t *testing.T) {
	p := &fakePlatform{granted: true, optimized: true}
	s := &spy{}
	f := newFlow(p, s)
	ctx := context.Background()

	require.NoError(t, f.Advance(ctx)) // notification -> battery
	assert.Equal(t, StepBattery, f.Step())

	p.optimized = true // user didn't change anything in settings
	require.NoError(t, f.Advance(ctx)) // battery -> autostart, with warning
	assert.Equal(t, StepAutoStart, f.Step())
	assert.Equal(t, 1, p.batteryOpened)
	assert.Equal(t, 1, s.warned)

	require.NoError(t, f.Advance(ctx)) // autostart -> complete
	assert.Equal(t, StepComplete, f.Step())
	assert.Equal(t, 1, p.autoStartOpened)
	assert.Equal(t, 1, s.completed)
	assert.Equal(t, []Step{StepBattery, StepAutoStart, StepComplete}, s.steps)
}

func TestAdvance_BatteryStepSkippedWhenUnoptimized(t *testing.T) {
	p := &fakePlatform{granted: true, optimized: false}
	s := &spy{}
	f := newFlow(p, s)

	require.NoError(t, f.Advance(context.Background()))
	assert.Equal(t, StepAutoStart, f.Step())
	assert.Zero(t, p.batteryOpened)
}

func TestAdvance_DenialStaysOnNotificationStep(t *testing.T) {
	p := &fakePlatform{granted: false}
	s := &spy{}
	f := newFlow(p, s)

	require.NoError(t, f.Advance(context.Background()))
	assert.Equal(t, StepNotification, f.Step())
	assert.Equal(t, 1, s.denied)
	assert.Empty(t, s.steps)
}

func TestAdvance_PlatformErrorPropagates(t *testing.T) {
	p := &fakePlatform{grantErr: errors.New("bridge down")}
	f := newFlow(p, &spy{})
	assert.Error(t, f.Advance(context.Background()))
	assert.Equal(t, StepNotification, f.Step())
}

func TestSkip_OnlyAutoStartIsSkippable(t *testing.T) {
	p := &fakePlatform{granted: true, optimized: false}
	s := &spy{}
	f := newFlow(p, s)
	ctx := context.Background()

	require.NoError(t, f.Skip(ctx)) // no-op on notification step
	assert.Equal(t, StepNotification, f.Step())

	require.NoError(t, f.Advance(ctx))
	require.Equal(t, StepAutoStart, f.Step())

	require.NoError(t, f.Skip(ctx))
	assert.Equal(t, StepComplete, f.Step())
	assert.Zero(t, p.autoStartOpened, "skip must not touch the platform")
	assert.Equal(t, 1, s.completed)
}

func TestAdvance_AutoStartFallsBackToAppSettings(t *testing.T) {
	p := &fakePlatform{granted: true, optimized: false, autoStartUnavail: true}
	s := &spy{}
	f := newFlow(p, s)
	ctx := context.Background()

	require.NoError(t, f.Advance(ctx))
	require.NoError(t, f.Advance(ctx))
	assert.Equal(t, StepComplete, f.Step())
	assert.Equal(t, 1, p.appOpened)
}

func TestSetupCompleteFiresOnce(t *testing.T) {
	p := &fakePlatform{granted: true, optimized: false}
	s := &spy{}
	f := newFlow(p, s)
	ctx := context.Background()

	require.NoError(t, f.Advance(ctx))
	require.NoError(t, f.Skip(ctx))
	require.Equal(t, 1, s.completed)

	// Regression and recovery must not re-fire the one-time signal.
	p.granted = false
	require.NoError(t, f.Initialize(ctx))
	assert.Equal(t, StepNotification, f.Step())

	p.granted = true
	require.NoError(t, f.Initialize(ctx))
	assert.Equal(t, StepComplete, f.Step())
	assert.Equal(t, 1, s.completed)
}

func TestInitialize_RegressesToBatteryWhenReoptimized(t *testing.T) {
	p := &fakePlatform{granted: true, optimized: false}
	s := &spy{}
	f := newFlow(p, s)
	ctx := context.Background()

	require.NoError(t, f.Advance(ctx))
	require.NoError(t, f.Skip(ctx))
	require.True(t, f.Complete())

	// The OS re-enabled battery optimization since last run.
	p.optimized = true
	require.NoError(t, f.Initialize(ctx))
	assert.Equal(t, StepBattery, f.Step())
}

func TestInitialize_FreshDeviceLandsOnAutoStart(t *testing.T) {
	p := &fakePlatform{granted: true, optimized: false}
	f := newFlow(p, &spy{})

	require.NoError(t, f.Initialize(context.Background()))
	assert.Equal(t, StepAutoStart, f.Step(), "never completed, so autostart is still pending")
}
