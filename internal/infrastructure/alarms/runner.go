// Package alarms is a process-local realization of the native alarm
// subsystem: armed IDs live as timers inside the process, fire through an
// optional publisher, and are visible via the same schedule/cancel/
// list-pending surface a device alarm manager would expose.
package alarms

import (
	"context"
	"sync"
	"time"

	"github.com/go-quicknotif/internal/domain"
	"github.com/go-quicknotif/internal/logsink"
	"go.uber.org/zap"
)

// Publisher delivers a fired notification to the outside world. Optional.
type Publisher interface {
	Publish(ctx context.Context, title, body string) error
}

type armed struct {
	timer   *time.Timer
	payload domain.AlarmPayload
	at      time.Time
}

// Runner holds the armed timer set. Scheduling an already-armed ID replaces
// its timer; Cancel is idempotent.
type Runner struct {
	mu        sync.Mutex
	pending   map[int32]*armed
	publisher Publisher
	sink      logsink.Sink
	log       *zap.Logger
}

func NewRunner(publisher Publisher, sink logsink.Sink, log *zap.Logger) *Runner {
	if sink == nil {
		sink = logsink.Nop{}
	}
	return &Runner{
		pending:   make(map[int32]*armed),
		publisher: publisher,
		sink:      sink,
		log:       log,
	}
}

// Schedule arms id to fire at the given instant.
func (r *Runner) Schedule(_ context.Context, id int32, payload domain.AlarmPayload, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.pending[id]; ok {
		prev.timer.Stop()
	}
	a := &armed{payload: payload, at: at}
	a.timer = time.AfterFunc(time.Until(at), func() { r.fire(id) })
	r.pending[id] = a
	return nil
}

// Cancel disarms id. Unknown IDs are not an error.
func (r *Runner) Cancel(_ context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.pending[id]; ok {
		a.timer.Stop()
		delete(r.pending, id)
	}
	return nil
}

// ListPending returns the currently armed IDs.
func (r *Runner) ListPending(_ context.Context) ([]int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int32, 0, len(r.pending))
	for id := range r.pending {
		out = append(out, id)
	}
	return out, nil
}

// ListScheduled is the secondary probe channel: it answers which of the
// candidate IDs are actually armed, without creating anything.
func (r *Runner) ListScheduled(_ context.Context, candidates []int32) ([]int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int32, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := r.pending[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Shutdown stops every armed timer without firing.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.pending {
		a.timer.Stop()
		delete(r.pending, id)
	}
}

func (r *Runner) fire(id int32) {
	r.mu.Lock()
	a, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r.sink.Record(ctx, logsink.Fire(a.payload.NotificationID, a.payload.Body))
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, a.payload.Title, a.payload.Body); err != nil {
			r.log.Warn("fire delivery failed",
				zap.String("id", a.payload.NotificationID), zap.Error(err))
		}
	}
}
