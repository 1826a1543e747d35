// Package logsink is the append-only debug recorder for scheduling activity.
// Entries are typed, formatted to a single line each, and written best-effort:
// a sink failure must never fail the operation that produced the entry.
package logsink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EntryType tags what kind of event an entry records.
type EntryType string

const (
	TypeSchedule    EntryType = "SCHEDULE"
	TypeVerify      EntryType = "VERIFY"
	TypeFire        EntryType = "FIRE"
	TypeDelete      EntryType = "DELETE"
	TypeReactivate  EntryType = "REACTIVATE"
	TypeSystemCheck EntryType = "SYSTEM_CHECK"
	TypeError       EntryType = "ERROR"
	TypeBoot        EntryType = "BOOT"
)

// Entry is one structured debug record.
type Entry struct {
	Timestamp          time.Time
	Type               EntryType
	NotificationID     string
	NotificationName   string
	ScheduledAt        *time.Time
	Message            string
	NativePendingCount *int
	StoreCount         *int
	Details            map[string]any
}

// Sink accepts entries. Implementations swallow their own failures.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

// formatEntry renders one entry as a single log line.
func formatEntry(e Entry) string {
	parts := []string{
		"[" + e.Timestamp.Format(time.RFC3339) + "]",
		"[" + string(e.Type) + "]",
	}
	if e.NotificationID != "" {
		parts = append(parts, "[ID:"+shortID(e.NotificationID)+"]")
	}
	if e.NotificationName != "" {
		parts = append(parts, "["+e.NotificationName+"]")
	}
	parts = append(parts, e.Message)
	if e.NativePendingCount != nil {
		parts = append(parts, fmt.Sprintf("[Native:%d]", *e.NativePendingCount))
	}
	if e.StoreCount != nil {
		parts = append(parts, fmt.Sprintf("[Store:%d]", *e.StoreCount))
	}
	if len(e.Details) > 0 {
		if blob, err := json.Marshal(e.Details); err == nil {
			parts = append(parts, "[Details:"+string(blob)+"]")
		}
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}

// Schedule builds the entry for a freshly scheduled notification.
func Schedule(id, name string, at time.Time, kind string) Entry {
	return Entry{
		Timestamp:        time.Now(),
		Type:             TypeSchedule,
		NotificationID:   id,
		NotificationName: name,
		ScheduledAt:      &at,
		Message:          fmt.Sprintf("scheduled %s notification for %s", kind, at.Format(time.RFC3339)),
	}
}

// Verify builds the entry for a post-schedule verification probe.
func Verify(id, name string, exists bool, nativeCount int) Entry {
	msg := "verified in native pending list"
	if !exists {
		msg = "NOT found in native pending list"
	}
	return Entry{
		Timestamp:          time.Now(),
		Type:               TypeVerify,
		NotificationID:     id,
		NotificationName:   name,
		NativePendingCount: &nativeCount,
		Message:            msg,
	}
}

// Fire builds the entry for an alarm that has triggered.
func Fire(id, name string) Entry {
	return Entry{
		Timestamp:        time.Now(),
		Type:             TypeFire,
		NotificationID:   id,
		NotificationName: name,
		Message:          "notification fired",
	}
}

// Delete builds the entry for a removed notification.
func Delete(id, name string) Entry {
	return Entry{
		Timestamp:        time.Now(),
		Type:             TypeDelete,
		NotificationID:   id,
		NotificationName: name,
		Message:          "notification deleted",
	}
}

// Reactivate builds the entry for a re-armed notification.
func Reactivate(id, name string, at time.Time) Entry {
	return Entry{
		Timestamp:        time.Now(),
		Type:             TypeReactivate,
		NotificationID:   id,
		NotificationName: name,
		ScheduledAt:      &at,
		Message:          "reactivated for " + at.Format(time.RFC3339),
	}
}

// Error builds an error entry. id may be empty when no record is involved.
func Error(msg string, err error, id string) Entry {
	details := map[string]any{}
	if err != nil {
		details["error"] = err.Error()
	}
	return Entry{
		Timestamp:      time.Now(),
		Type:           TypeError,
		NotificationID: id,
		Message:        "ERROR: " + msg,
		Details:        details,
	}
}

// Boot builds the entry recorded once at startup.
func Boot() Entry {
	return Entry{
		Timestamp: time.Now(),
		Type:      TypeBoot,
		Message:   "process started, checking notifications",
	}
}

// SystemCheck builds the audit-pass entry. The sink annotates orphaned IDs
// with record names at write time through its injected name lookup.
func SystemCheck(storeCount, nativeCount int, orphanedIDs []string, missingIDs []int32) Entry {
	msg := "system check complete"
	if len(orphanedIDs) > 0 {
		msg = fmt.Sprintf("system check: %d orphaned", len(orphanedIDs))
	}
	return Entry{
		Timestamp:          time.Now(),
		Type:               TypeSystemCheck,
		StoreCount:         &storeCount,
		NativePendingCount: &nativeCount,
		Message:            msg,
		Details: map[string]any{
			"synced":          storeCount - len(orphanedIDs),
			"orphanedInStore": len(orphanedIDs),
			"missingInStore":  len(missingIDs),
			"orphanedIds":     orphanedIDs,
			"missingIds":      missingIDs,
		},
	}
}
