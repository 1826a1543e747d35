package domain

import "time"

// Kind tags how a notification's Time string must be interpreted.
type Kind string

const (
	// KindAbsolute means Time is a wall-clock "HH:MM" target.
	KindAbsolute Kind = "absolute"
	// KindRelative means Time is a duration phrase like "1 hour 30 minutes".
	KindRelative Kind = "relative"
)

// Notification is one user-created reminder. The JSON field names are a
// cross-platform contract shared with the persisted store and must not change.
type Notification struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"` // may be empty ("unnamed")
	Time        string    `json:"time"` // original user-entered spec, preserved verbatim
	Kind        Kind      `json:"type"`
	Enabled     bool      `json:"enabled"`
	ScheduledAt time.Time `json:"scheduledAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	// IntervalMS is the total duration in milliseconds, cached for relative
	// notifications so reactivation does not need to re-parse Time.
	IntervalMS *int64 `json:"interval,omitempty"`
}

// NativeEligible reports whether the notification is expected to have a live
// native alarm: enabled with a strictly-future scheduled time.
func (n *Notification) NativeEligible(now time.Time) bool {
	return n.Enabled && n.ScheduledAt.After(now)
}

// AlarmPayload is what the native alarm subsystem displays when an alarm fires.
type AlarmPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	// NotificationID is the opaque record ID the integer alarm ID was derived from.
	NotificationID string `json:"notification_id"`
}
