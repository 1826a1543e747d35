package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-quicknotif/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memPrefs is an in-memory PreferenceStore.
type memPrefs struct {
	values map[string]string
	sets   int
}

func newMemPrefs() *memPrefs { return &memPrefs{values: make(map[string]string)} }

func (m *memPrefs) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memPrefs) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	m.sets++
	return nil
}

func notif(id string, at time.Time) domain.Notification {
	return domain.Notification{
		ID:          id,
		Name:        "n-" + id,
		Time:        "14:30",
		Kind:        domain.KindAbsolute,
		Enabled:     true,
		ScheduledAt: at,
		UpdatedAt:   at,
	}
}

func TestList_SortedAndCopied(t *testing.T) {
	s := New(newMemPrefs(), 10, zap.NewNop())
	base := time.Now()
	require.NoError(t, s.Upsert(context.Background(), notif("b", base.Add(2*time.Hour))))
	require.NoError(t, s.Upsert(context.Background(), notif("a", base.Add(time.Hour))))
	require.NoError(t, s.Upsert(context.Background(), notif("c", base.Add(3*time.Hour))))

	got := s.List()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})

	// Mutating the returned slice must not affect store state.
	got[0].Name = "mutated"
	again, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "n-a", again.Name)
}

func TestRemove_UnknownIsNoop(t *testing.T) {
	s := New(newMemPrefs(), 10, zap.NewNop())
	require.NoError(t, s.Upsert(context.Background(), notif("a", time.Now())))
	require.NoError(t, s.Remove(context.Background(), "nope"))
	assert.Len(t, s.List(), 1)
}

func TestAddName_BoundedDedupedMostRecentFirst(t *testing.T) {
	s := New(newMemPrefs(), 10, zap.NewNop())
	ctx := context.Background()
	for i := 1; i <= 12; i++ {
		require.NoError(t, s.AddName(ctx, fmt.Sprintf("name-%d", i)))
	}
	names := s.RecentNames()
	require.Len(t, names, 10)
	assert.Equal(t, "name-12", names[0])
	assert.Equal(t, "name-3", names[9])

	// Re-adding an existing name moves it to the front without growing the list.
	require.NoError(t, s.AddName(ctx, "name-5"))
	names = s.RecentNames()
	require.Len(t, names, 10)
	assert.Equal(t, "name-5", names[0])

	// Empty names are never recorded.
	require.NoError(t, s.AddName(ctx, ""))
	assert.Len(t, s.RecentNames(), 10)
}

func TestEveryMutationFlushes(t *testing.T) {
	prefs := newMemPrefs()
	s := New(prefs, 10, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, notif("a", time.Now())))
	require.NoError(t, s.AddName(ctx, "coffee"))
	require.NoError(t, s.Remove(ctx, "a"))

	// Each mutation writes both fixed keys.
	assert.Equal(t, 6, prefs.sets)
	assert.Contains(t, prefs.values, "notifications")
	assert.Contains(t, prefs.values, "savedNames")
}

func TestLoad_Roundtrip(t *testing.T) {
	prefs := newMemPrefs()
	ctx := context.Background()
	at := time.Date(2026, 2, 19, 14, 30, 0, 0, time.UTC)

	first := New(prefs, 10, zap.NewNop())
	interval := int64(5400000)
	n := notif("a", at)
	n.Kind = domain.KindRelative
	n.Time = "1 hour 30 minutes"
	n.IntervalMS = &interval
	require.NoError(t, first.Upsert(ctx, n))
	require.NoError(t, first.AddName(ctx, "coffee"))

	second := New(prefs, 10, zap.NewNop())
	require.NoError(t, second.Load(ctx))

	got, ok := second.Get("a")
	require.True(t, ok)
	assert.Equal(t, n.Time, got.Time)
	assert.Equal(t, domain.KindRelative, got.Kind)
	require.NotNil(t, got.IntervalMS)
	assert.Equal(t, interval, *got.IntervalMS)
	assert.True(t, got.ScheduledAt.Equal(at))
	assert.Equal(t, []string{"coffee"}, second.RecentNames())
}

func TestLoad_UpdatedAtFallsBackToCreatedAt(t *testing.T) {
	prefs := newMemPrefs()
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	blob, err := json.Marshal([]map[string]any{{
		"id":          "old",
		"name":        "legacy",
		"time":        "09:00",
		"type":        "absolute",
		"enabled":     true,
		"scheduledAt": created.Format(time.RFC3339),
		"createdAt":   created.Format(time.RFC3339),
	}})
	require.NoError(t, err)
	prefs.values["notifications"] = string(blob)

	s := New(prefs, 10, zap.NewNop())
	require.NoError(t, s.Load(context.Background()))

	got, ok := s.Get("old")
	require.True(t, ok)
	assert.True(t, got.UpdatedAt.Equal(created))
}

func TestLoad_BothTimestampsAbsentDefaultsToNow(t *testing.T) {
	prefs := newMemPrefs()
	prefs.values["notifications"] = `[{"id":"x","name":"","time":"10:00","type":"absolute","enabled":true,"scheduledAt":"2026-02-19T10:00:00Z"}]`

	s := New(prefs, 10, zap.NewNop())
	before := time.Now()
	require.NoError(t, s.Load(context.Background()))

	got, ok := s.Get("x")
	require.True(t, ok)
	assert.False(t, got.UpdatedAt.Before(before))
}

// Pins the open-question decision: corrupt persisted state resets to empty
// instead of failing startup.
func TestLoad_CorruptPayloadResetsEmpty(t *testing.T) {
	prefs := newMemPrefs()
	prefs.values["notifications"] = `{not json[`
	prefs.values["savedNames"] = `also broken`

	s := New(prefs, 10, zap.NewNop())
	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.List())
	assert.Empty(t, s.RecentNames())
}
