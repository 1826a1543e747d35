// Package store owns the authoritative in-memory notification set and the
// recent-names list, persisting both through an abstract key-value store
// after every mutation.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-quicknotif/internal/domain"
	"go.uber.org/zap"
)

// PreferenceStore is the abstract persistence boundary: opaque string blobs
// keyed by name. Implementations may be remote and fallible.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Fixed persistence keys; shared with every other reader of the store.
const (
	notificationsKey = "notifications"
	savedNamesKey    = "savedNames"
)

// Store is the single in-memory writer of record for notifications. It guards
// its own slices so concurrent readers are safe, but callers must serialize
// operation sequences that target the same notification ID.
type Store struct {
	mu       sync.Mutex
	prefs    PreferenceStore
	log      *zap.Logger
	maxNames int

	items map[string]domain.Notification
	names []string
}

func New(prefs PreferenceStore, maxNames int, log *zap.Logger) *Store {
	return &Store{
		prefs:    prefs,
		log:      log,
		maxNames: maxNames,
		items:    make(map[string]domain.Notification),
	}
}

// Load hydrates the store from persistence. A payload that fails to decode is
// treated as recoverable: the affected set resets to empty and the failure is
// logged loudly, because a scheduler that refuses to start repairs nothing.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, found, err := s.prefs.Get(ctx, notificationsKey)
	if err != nil {
		return fmt.Errorf("load %s: %w", notificationsKey, err)
	}
	if found {
		items, err := decodeNotifications([]byte(raw))
		if err != nil {
			s.log.Error("persisted notifications are malformed, resetting to empty state", zap.Error(err))
			items = nil
		}
		s.items = make(map[string]domain.Notification, len(items))
		for _, n := range items {
			s.items[n.ID] = n
		}
	}

	raw, found, err = s.prefs.Get(ctx, savedNamesKey)
	if err != nil {
		return fmt.Errorf("load %s: %w", savedNamesKey, err)
	}
	if found {
		names, err := decodeNames([]byte(raw))
		if err != nil {
			s.log.Error("persisted names are malformed, resetting to empty state", zap.Error(err))
			names = nil
		}
		s.names = names
	}
	return nil
}

// List returns a defensive copy of all notifications sorted ascending by
// scheduled time.
func (s *Store) List() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, 0, len(s.items))
	for _, n := range s.items {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}

// Get returns the notification with the given ID, if present.
func (s *Store) Get(id string) (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	return n, ok
}

// Upsert inserts or replaces a notification and flushes to persistence.
func (s *Store) Upsert(ctx context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[n.ID] = n
	return s.flushLocked(ctx)
}

// Remove deletes the notification with the given ID and flushes. Removing an
// unknown ID is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return s.flushLocked(ctx)
}

// RecentNames returns a copy of the saved-names list, most recent first.
func (s *Store) RecentNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// AddName records a successfully scheduled name: moved to the front if
// already present, prepended otherwise, truncated to the configured maximum.
// Empty names are not recorded.
func (s *Store) AddName(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]string, 0, len(s.names)+1)
	next = append(next, name)
	for _, n := range s.names {
		if n != name {
			next = append(next, n)
		}
	}
	if len(next) > s.maxNames {
		next = next[:s.maxNames]
	}
	s.names = next
	return s.flushLocked(ctx)
}

func (s *Store) flushLocked(ctx context.Context) error {
	items := make([]domain.Notification, 0, len(s.items))
	for _, n := range s.items {
		items = append(items, n)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ScheduledAt.Before(items[j].ScheduledAt)
	})

	itemsJSON, err := encodeNotifications(items)
	if err != nil {
		return fmt.Errorf("encode notifications: %w", err)
	}
	namesJSON, err := encodeNames(s.names)
	if err != nil {
		return fmt.Errorf("encode names: %w", err)
	}
	if err := s.prefs.Set(ctx, notificationsKey, string(itemsJSON)); err != nil {
		return fmt.Errorf("persist %s: %w", notificationsKey, err)
	}
	if err := s.prefs.Set(ctx, savedNamesKey, string(namesJSON)); err != nil {
		return fmt.Errorf("persist %s: %w", savedNamesKey, err)
	}
	return nil
}
