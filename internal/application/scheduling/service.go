// Package scheduling orchestrates notification create/update/toggle/delete/
// reactivate operations across the in-memory store, the persistence layer and
// the native alarm subsystem.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-quicknotif/internal/domain"
	"github.com/go-quicknotif/internal/logsink"
	"github.com/go-quicknotif/internal/pkg/nativeid"
	"github.com/go-quicknotif/internal/pkg/recid"
	"github.com/go-quicknotif/internal/pkg/timespec"
	"go.uber.org/zap"
)

const (
	// notificationTitle is what the native side displays; the body is the
	// user's name for the reminder.
	notificationTitle = "Quick Notif"

	// A target within minScheduleDelay of now may be missed by the native
	// subsystem; such targets are pushed out by fallbackDelay instead.
	minScheduleDelay = 500 * time.Millisecond
	fallbackDelay    = time.Second

	// defaultSettleDelay is how long to wait before polling the native
	// pending list, since native enqueueing is not immediately observable.
	defaultSettleDelay = 1500 * time.Millisecond
)

// NativeAlarms is the abstract native alarm subsystem. Cancel is idempotent;
// canceling an unknown ID is not an error.
type NativeAlarms interface {
	Schedule(ctx context.Context, id int32, payload domain.AlarmPayload, at time.Time) error
	Cancel(ctx context.Context, id int32) error
	ListPending(ctx context.Context) ([]int32, error)
}

// Store is the subset of the notification store the engine needs.
type Store interface {
	Get(id string) (domain.Notification, bool)
	List() []domain.Notification
	Upsert(ctx context.Context, n domain.Notification) error
	Remove(ctx context.Context, id string) error
	AddName(ctx context.Context, name string) error
	RecentNames() []string
}

// Service is the scheduling engine. Operations given an unknown ID are silent
// no-ops. All native-touching steps are skipped when no native subsystem is
// available (nil alarms), leaving state purely in-memory/persisted.
type Service interface {
	Schedule(ctx context.Context, name, timeSpec string, kind domain.Kind) (string, error)
	Toggle(ctx context.Context, id string) error
	Edit(ctx context.Context, id, timeSpec string, kind domain.Kind) error
	Delete(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string) error
	ClearExpired(ctx context.Context) (int, error)
	List() []domain.Notification
	RecentNames() []string
}

// Deps holds the engine's collaborators. Alarms may be nil (web mode); Sink,
// Now and SettleDelay default when zero. Gate, when set, must report whether
// native scheduling is currently permitted; a closed gate fails Schedule with
// ErrPermissionDenied before any state is touched.
type Deps struct {
	Store       Store
	Alarms      NativeAlarms
	Sink        logsink.Sink
	Gate        func() bool
	Log         *zap.Logger
	Now         func() time.Time
	SettleDelay time.Duration
}

type service struct {
	store  Store
	alarms NativeAlarms
	sink   logsink.Sink
	gate   func() bool
	log    *zap.Logger
	now    func() time.Time
	settle time.Duration
}

func NewService(d Deps) Service {
	s := &service{
		store:  d.Store,
		alarms: d.Alarms,
		sink:   d.Sink,
		gate:   d.Gate,
		log:    d.Log,
		now:    d.Now,
		settle: d.SettleDelay,
	}
	if s.sink == nil {
		s.sink = logsink.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.settle == 0 {
		s.settle = defaultSettleDelay
	}
	return s
}

// Schedule creates and arms a new notification. All-or-nothing: a native
// scheduling failure (including failed post-schedule verification) rolls the
// store insertion back and returns ErrScheduleFailed.
func (s *service) Schedule(ctx context.Context, name, timeSpec string, kind domain.Kind) (string, error) {
	if s.alarms != nil && s.gate != nil && !s.gate() {
		return "", domain.ErrPermissionDenied
	}
	now := s.now()
	scheduledAt, err := timespec.Compute(timeSpec, kind, now)
	if err != nil {
		return "", err
	}

	n := domain.Notification{
		ID:          recid.New(now),
		Name:        name,
		Time:        timeSpec,
		Kind:        kind,
		Enabled:     true,
		ScheduledAt: scheduledAt,
		UpdatedAt:   now,
	}
	if kind == domain.KindRelative {
		iv := timespec.RelativeMillis(timeSpec)
		n.IntervalMS = &iv
	}

	if err := s.store.Upsert(ctx, n); err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	if err := s.store.AddName(ctx, name); err != nil {
		s.log.Warn("recording recent name failed", zap.Error(err), zap.String("name", name))
	}

	if s.alarms != nil {
		if err := s.armAndVerify(ctx, n, now); err != nil {
			if rmErr := s.store.Remove(ctx, n.ID); rmErr != nil {
				s.log.Error("rollback after failed scheduling also failed", zap.Error(rmErr), zap.String("id", n.ID))
			}
			s.sink.Record(ctx, logsink.Error("scheduling failed, rolled back", err, n.ID))
			return "", fmt.Errorf("%w: %v", domain.ErrScheduleFailed, err)
		}
	}

	s.sink.Record(ctx, logsink.Schedule(n.ID, n.Name, n.ScheduledAt, string(kind)))
	return n.ID, nil
}

// Toggle flips enabled. Enabling a notification whose target has already
// elapsed recomputes a fresh target from the stored spec before re-arming.
// Native failures here are logged, never propagated.
func (s *service) Toggle(ctx context.Context, id string) error {
	n, ok := s.store.Get(id)
	if !ok {
		return nil
	}
	now := s.now()
	n.Enabled = !n.Enabled
	n.UpdatedAt = now

	if s.alarms != nil {
		nativeID := nativeid.FromString(id)
		if n.Enabled {
			if !n.ScheduledAt.After(now) {
				at, err := timespec.Compute(n.Time, n.Kind, now)
				if err != nil {
					s.log.Warn("recompute on toggle failed, keeping stored target", zap.Error(err), zap.String("id", id))
				} else {
					n.ScheduledAt = at
				}
			}
			if err := s.alarms.Schedule(ctx, nativeID, s.payload(n), n.ScheduledAt); err != nil {
				s.log.Warn("native re-arm on toggle failed", zap.Error(err), zap.String("id", id))
				s.sink.Record(ctx, logsink.Error("toggle re-arm failed", err, id))
			}
		} else {
			s.cancelNative(ctx, nativeID, id)
		}
	}
	return s.store.Upsert(ctx, n)
}

// Edit replaces the notification's time spec, recomputes its target and
// re-enables it. The existing native alarm is canceled first.
func (s *service) Edit(ctx context.Context, id, timeSpec string, kind domain.Kind) error {
	n, ok := s.store.Get(id)
	if !ok {
		return nil
	}
	now := s.now()
	scheduledAt, err := timespec.Compute(timeSpec, kind, now)
	if err != nil {
		return err
	}

	if s.alarms != nil {
		s.cancelNative(ctx, nativeid.FromString(id), id)
	}

	n.Time = timeSpec
	n.Kind = kind
	n.ScheduledAt = scheduledAt
	n.UpdatedAt = now
	n.Enabled = true
	if kind == domain.KindRelative {
		iv := timespec.RelativeMillis(timeSpec)
		n.IntervalMS = &iv
	} else {
		n.IntervalMS = nil
	}

	if s.alarms != nil {
		at := n.ScheduledAt
		if !at.After(now.Add(minScheduleDelay)) {
			at = now.Add(fallbackDelay)
		}
		if err := s.alarms.Schedule(ctx, nativeid.FromString(id), s.payload(n), at); err != nil {
			s.log.Warn("native re-arm on edit failed", zap.Error(err), zap.String("id", id))
			s.sink.Record(ctx, logsink.Error("edit re-arm failed", err, id))
		}
	}
	return s.store.Upsert(ctx, n)
}

// Delete cancels the native alarm best-effort and removes the notification.
func (s *service) Delete(ctx context.Context, id string) error {
	n, ok := s.store.Get(id)
	if !ok {
		return nil
	}
	if s.alarms != nil {
		s.cancelNative(ctx, nativeid.FromString(id), id)
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.sink.Record(ctx, logsink.Delete(id, n.Name))
	return nil
}

// Reactivate is edit-to-self: a fresh target is computed from the stored
// time spec and applied through Edit.
func (s *service) Reactivate(ctx context.Context, id string) error {
	n, ok := s.store.Get(id)
	if !ok {
		return nil
	}
	if err := s.Edit(ctx, id, n.Time, n.Kind); err != nil {
		return err
	}
	if updated, ok := s.store.Get(id); ok {
		s.sink.Record(ctx, logsink.Reactivate(id, updated.Name, updated.ScheduledAt))
	}
	return nil
}

// ClearExpired deletes every notification whose target has already elapsed
// and returns how many were removed.
func (s *service) ClearExpired(ctx context.Context) (int, error) {
	now := s.now()
	cleared := 0
	for _, n := range s.store.List() {
		if n.ScheduledAt.Before(now) {
			if err := s.Delete(ctx, n.ID); err != nil {
				return cleared, err
			}
			cleared++
		}
	}
	return cleared, nil
}

func (s *service) List() []domain.Notification { return s.store.List() }

func (s *service) RecentNames() []string { return s.store.RecentNames() }

// armAndVerify schedules the native alarm, waits for the settle delay, then
// confirms the ID is visible in the native pending set.
func (s *service) armAndVerify(ctx context.Context, n domain.Notification, now time.Time) error {
	nativeID := nativeid.FromString(n.ID)
	at := n.ScheduledAt
	if !at.After(now.Add(minScheduleDelay)) {
		at = now.Add(fallbackDelay)
	}
	if err := s.alarms.Schedule(ctx, nativeID, s.payload(n), at); err != nil {
		return fmt.Errorf("native schedule: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.settle):
	}

	pending, err := s.alarms.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	exists := slices.Contains(pending, nativeID)
	s.sink.Record(ctx, logsink.Verify(n.ID, n.Name, exists, len(pending)))
	if !exists {
		return errors.New("alarm absent from native pending set after settle delay")
	}
	return nil
}

// cancelNative cancels best-effort: adapter errors are logged, never fatal,
// so disabling or deleting always succeeds from the store's perspective.
func (s *service) cancelNative(ctx context.Context, nativeID int32, id string) {
	if err := s.alarms.Cancel(ctx, nativeID); err != nil {
		s.log.Warn("native cancel failed", zap.Error(err), zap.String("id", id))
		s.sink.Record(ctx, logsink.Error("native cancel failed", err, id))
	}
}

func (s *service) payload(n domain.Notification) domain.AlarmPayload {
	return domain.AlarmPayload{
		Title:          notificationTitle,
		Body:           n.Name,
		NotificationID: n.ID,
	}
}
