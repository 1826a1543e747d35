package alarms

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-quicknotif/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memPublisher struct {
	mu     sync.Mutex
	bodies []string
	done   chan struct{}
}

func (p *memPublisher) Publish(_ context.Context, _, body string) error {
	p.mu.Lock()
	p.bodies = append(p.bodies, body)
	p.mu.Unlock()
	select {
	case p.done <- struct{}{}:
	default:
	}
	return nil
}

func payload(id string) domain.AlarmPayload {
	return domain.AlarmPayload{Title: "Quick Notif", Body: "coffee", NotificationID: id}
}

func TestScheduleCancelListPending(t *testing.T) {
	r := NewRunner(nil, nil, zap.NewNop())
	defer r.Shutdown()
	ctx := context.Background()
	far := time.Now().Add(time.Hour)

	require.NoError(t, r.Schedule(ctx, 100, payload("a"), far))
	require.NoError(t, r.Schedule(ctx, 200, payload("b"), far))

	pending, err := r.ListPending(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int32{100, 200}, pending)

	require.NoError(t, r.Cancel(ctx, 100))
	require.NoError(t, r.Cancel(ctx, 100), "cancel is idempotent")
	require.NoError(t, r.Cancel(ctx, 9999), "unknown id is not an error")

	pending, err = r.ListPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int32{200}, pending)
}

func TestScheduleSameIDReplacesTimer(t *testing.T) {
	r := NewRunner(nil, nil, zap.NewNop())
	defer r.Shutdown()
	ctx := context.Background()

	require.NoError(t, r.Schedule(ctx, 100, payload("a"), time.Now().Add(time.Hour)))
	require.NoError(t, r.Schedule(ctx, 100, payload("a"), time.Now().Add(2*time.Hour)))

	pending, err := r.ListPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int32{100}, pending)
}

func TestListScheduledProbesCandidatesOnly(t *testing.T) {
	r := NewRunner(nil, nil, zap.NewNop())
	defer r.Shutdown()
	ctx := context.Background()

	require.NoError(t, r.Schedule(ctx, 100, payload("a"), time.Now().Add(time.Hour)))
	require.NoError(t, r.Schedule(ctx, 200, payload("b"), time.Now().Add(time.Hour)))

	got, err := r.ListScheduled(ctx, []int32{100, 300})
	require.NoError(t, err)
	assert.Equal(t, []int32{100}, got)
}

func TestFireDeliversAndDisarms(t *testing.T) {
	pub := &memPublisher{done: make(chan struct{}, 1)}
	r := NewRunner(pub, nil, zap.NewNop())
	defer r.Shutdown()
	ctx := context.Background()

	require.NoError(t, r.Schedule(ctx, 100, payload("a"), time.Now().Add(10*time.Millisecond)))

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("alarm did not fire")
	}

	pub.mu.Lock()
	assert.Equal(t, []string{"coffee"}, pub.bodies)
	pub.mu.Unlock()

	pending, err := r.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "fired alarm must leave the pending set")
}
