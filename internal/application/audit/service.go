// Package audit reconciles the notification store against the native alarm
// subsystem: records the store believes are armed but the native side has
// dropped get reactivated, and native alarms with no backing record get
// reported.
package audit

import (
	"context"
	"crypto/rand"
	"fmt"
	"slices"
	"time"

	"github.com/go-quicknotif/internal/domain"
	"github.com/go-quicknotif/internal/logsink"
	"github.com/go-quicknotif/internal/pkg/nativeid"
	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// initialCheckDelay is how long after startup the first reconciliation runs,
// giving adapters time to come up before being probed.
const initialCheckDelay = 5 * time.Second

// NativeAlarms is the primary native channel the auditor probes.
type NativeAlarms interface {
	ListPending(ctx context.Context) ([]int32, error)
}

// AlarmProbe is a secondary native channel (e.g. a watchdog's no-create
// pending-intent probe). It answers which of the candidate IDs it can see.
// Optional.
type AlarmProbe interface {
	ListScheduled(ctx context.Context, candidates []int32) ([]int32, error)
}

// Engine is the slice of the scheduling engine the auditor heals through.
type Engine interface {
	Reactivate(ctx context.Context, id string) error
}

// Store is the read surface the auditor inspects.
type Store interface {
	List() []domain.Notification
}

// Report is the outcome of one reconciliation run.
type Report struct {
	RunID       string    `json:"run_id"`
	RanAt       time.Time `json:"ran_at"`
	StoreCount  int       `json:"store_count"`
	NativeCount int       `json:"native_count"`
	Synced      int       `json:"synced"`
	OrphanedIDs []string  `json:"orphaned_ids"`
	MissingIDs  []int32   `json:"missing_ids"`
	Reactivated int       `json:"reactivated"`
}

// Service runs reconciliation passes, on demand and on a schedule.
type Service interface {
	Run(ctx context.Context) (Report, error)
	Start(ctx context.Context, interval time.Duration) error
	Stop()
}

// Deps holds the auditor's collaborators. Probe may be nil; Sink, Log and Now
// default when zero.
type Deps struct {
	Store  Store
	Alarms NativeAlarms
	Probe  AlarmProbe
	Engine Engine
	Sink   logsink.Sink
	Log    *zap.Logger
	Now    func() time.Time
}

type service struct {
	store  Store
	alarms NativeAlarms
	probe  AlarmProbe
	engine Engine
	sink   logsink.Sink
	log    *zap.Logger
	now    func() time.Time

	cron    *cron.Cron
	initial *time.Timer
}

func NewService(d Deps) Service {
	s := &service{
		store:  d.Store,
		alarms: d.Alarms,
		probe:  d.Probe,
		engine: d.Engine,
		sink:   d.Sink,
		log:    d.Log,
		now:    d.Now,
	}
	if s.sink == nil {
		s.sink = logsink.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run executes one reconciliation pass. Orphaned records (in the store,
// absent from every native channel) are reactivated one by one; reactivation
// errors are logged and the pass continues. Missing alarms (native, no
// backing record) are reported only.
func (s *service) Run(ctx context.Context) (Report, error) {
	now := s.now()
	report := Report{
		RunID: ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		RanAt: now,
	}

	native, err := s.nativeScheduled(ctx)
	if err != nil {
		return report, fmt.Errorf("probe native channels: %w", err)
	}

	records := s.store.List()
	report.StoreCount = len(records)
	report.NativeCount = len(native)

	// Only enabled records with a future target are expected natively.
	expected := make(map[int32]string)
	for _, n := range records {
		if n.NativeEligible(now) {
			expected[nativeid.FromString(n.ID)] = n.ID
		}
	}

	for nid, id := range expected {
		if !slices.Contains(native, nid) {
			report.OrphanedIDs = append(report.OrphanedIDs, id)
		}
	}
	slices.Sort(report.OrphanedIDs)
	for _, nid := range native {
		if _, ok := expected[nid]; !ok {
			report.MissingIDs = append(report.MissingIDs, nid)
		}
	}
	slices.Sort(report.MissingIDs)
	report.Synced = len(expected) - len(report.OrphanedIDs)

	for _, id := range report.OrphanedIDs {
		if err := s.engine.Reactivate(ctx, id); err != nil {
			s.log.Error("reactivating orphaned notification failed",
				zap.String("id", id), zap.String("run_id", report.RunID), zap.Error(err))
			continue
		}
		report.Reactivated++
	}

	s.sink.Record(ctx, logsink.SystemCheck(report.StoreCount, report.NativeCount, report.OrphanedIDs, report.MissingIDs))
	s.log.Info("reconciliation pass complete",
		zap.String("run_id", report.RunID),
		zap.Int("store", report.StoreCount),
		zap.Int("native", report.NativeCount),
		zap.Int("orphaned", len(report.OrphanedIDs)),
		zap.Int("missing", len(report.MissingIDs)),
		zap.Int("reactivated", report.Reactivated))
	return report, nil
}

// nativeScheduled unions the primary pending list with whatever the secondary
// probe confirms for the store's own candidate IDs. A record visible on either
// channel counts as armed.
func (s *service) nativeScheduled(ctx context.Context) ([]int32, error) {
	pending, err := s.alarms.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending alarms: %w", err)
	}
	seen := make(map[int32]struct{}, len(pending))
	for _, id := range pending {
		seen[id] = struct{}{}
	}

	if s.probe != nil {
		candidates := make([]int32, 0)
		for _, n := range s.store.List() {
			candidates = append(candidates, nativeid.FromString(n.ID))
		}
		confirmed, err := s.probe.ListScheduled(ctx, candidates)
		if err != nil {
			s.log.Warn("secondary alarm probe failed, using primary channel only", zap.Error(err))
		} else {
			for _, id := range confirmed {
				seen[id] = struct{}{}
			}
		}
	}

	out := make([]int32, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

// Start schedules periodic reconciliation at the given interval plus one
// initial pass shortly after startup. Errors from scheduled passes are logged,
// never fatal.
func (s *service) Start(ctx context.Context, interval time.Duration) error {
	if s.cron != nil {
		return nil
	}
	job := func() {
		if _, err := s.Run(ctx); err != nil {
			s.log.Error("scheduled reconciliation failed", zap.Error(err))
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), job); err != nil {
		return fmt.Errorf("register reconciliation job: %w", err)
	}
	c.Start()
	s.cron = c
	s.initial = time.AfterFunc(initialCheckDelay, job)
	return nil
}

// Stop halts the periodic runner. Safe to call without Start.
func (s *service) Stop() {
	if s.initial != nil {
		s.initial.Stop()
		s.initial = nil
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
}
