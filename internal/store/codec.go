package store

import (
	"encoding/json"
	"time"

	"github.com/go-quicknotif/internal/domain"
)

// persistedNotification is the on-disk shape. Field names are fixed for
// forward/backward compatibility with every other reader of the persisted
// blob; older shapes carried createdAt instead of updatedAt.
type persistedNotification struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Time        string      `json:"time"`
	Kind        domain.Kind `json:"type"`
	Enabled     bool        `json:"enabled"`
	ScheduledAt time.Time   `json:"scheduledAt"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
	Interval    *int64      `json:"interval,omitempty"`
}

func encodeNotifications(items []domain.Notification) ([]byte, error) {
	out := make([]persistedNotification, 0, len(items))
	for _, n := range items {
		updatedAt := n.UpdatedAt
		out = append(out, persistedNotification{
			ID:          n.ID,
			Name:        n.Name,
			Time:        n.Time,
			Kind:        n.Kind,
			Enabled:     n.Enabled,
			ScheduledAt: n.ScheduledAt,
			UpdatedAt:   &updatedAt,
			Interval:    n.IntervalMS,
		})
	}
	return json.Marshal(out)
}

func decodeNotifications(raw []byte) ([]domain.Notification, error) {
	var persisted []persistedNotification
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(persisted))
	for _, p := range persisted {
		updatedAt := time.Now()
		switch {
		case p.UpdatedAt != nil:
			updatedAt = *p.UpdatedAt
		case p.CreatedAt != nil:
			updatedAt = *p.CreatedAt
		}
		out = append(out, domain.Notification{
			ID:          p.ID,
			Name:        p.Name,
			Time:        p.Time,
			Kind:        p.Kind,
			Enabled:     p.Enabled,
			ScheduledAt: p.ScheduledAt,
			UpdatedAt:   updatedAt,
			IntervalMS:  p.Interval,
		})
	}
	return out, nil
}

func encodeNames(names []string) ([]byte, error) {
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

func decodeNames(raw []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, err
	}
	return names, nil
}
