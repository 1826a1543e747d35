package logsink

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Rotation thresholds: rotate once the file exceeds maxLines, keeping the
// newest keepLines and handing the trimmed head to the archiver if one exists.
const (
	defaultMaxLines  = 10000
	defaultKeepLines = 1000
)

// Archiver receives rotated-out log segments. Optional.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte) error
}

// NameLookup resolves a notification ID to its current name. Injected after
// construction so the sink never imports the engine.
type NameLookup func(id string) (string, bool)

// FileSink writes formatted entries to a single local log file with rotation.
// Every failure is swallowed after being logged operationally.
type FileSink struct {
	mu        sync.Mutex
	path      string
	maxLines  int
	keepLines int
	lines     int
	archive   Archiver
	lookup    NameLookup
	log       *zap.Logger
}

// NewFileSink creates a sink appending to path. archive may be nil.
func NewFileSink(path string, archive Archiver, log *zap.Logger) *FileSink {
	f := &FileSink{
		path:      path,
		maxLines:  defaultMaxLines,
		keepLines: defaultKeepLines,
		archive:   archive,
		log:       log,
	}
	if raw, err := os.ReadFile(path); err == nil {
		f.lines = strings.Count(string(raw), "\n")
	}
	return f
}

// SetNameLookup injects the record-name resolver used to annotate
// SYSTEM_CHECK entries.
func (f *FileSink) SetNameLookup(fn NameLookup) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookup = fn
}

// Record formats and appends the entry. Best-effort by contract.
func (f *FileSink) Record(ctx context.Context, e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.annotateLocked(&e)
	line := formatEntry(e)

	if err := f.appendLocked(ctx, line); err != nil {
		f.log.Warn("debug log write failed", zap.Error(err))
	}
}

// Contents returns the current log file, empty when it does not exist yet.
func (f *FileSink) Contents() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Clear truncates the log, leaving a single marker entry.
func (f *FileSink) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	marker := formatEntry(Entry{
		Timestamp: time.Now(),
		Type:      TypeSystemCheck,
		Message:   "log cleared",
	}) + "\n"
	if err := os.WriteFile(f.path, []byte(marker), 0o644); err != nil {
		return err
	}
	f.lines = 1
	return nil
}

// Stats summarises the log by entry type.
type Stats struct {
	TotalEntries         int `json:"total_entries"`
	Schedules            int `json:"schedules"`
	Verifications        int `json:"verifications"`
	Fires                int `json:"fires"`
	Deletes              int `json:"deletes"`
	Reactivations        int `json:"reactivations"`
	SystemChecks         int `json:"system_checks"`
	Errors               int `json:"errors"`
	VerificationFailures int `json:"verification_failures"`
}

// Stats scans the log file and counts entries per type.
func (f *FileSink) Stats() (Stats, error) {
	content, err := f.Contents()
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	for _, line := range strings.Split(content, "\n") {
		if line == "" {
			continue
		}
		s.TotalEntries++
		switch {
		case strings.Contains(line, "["+string(TypeSchedule)+"]"):
			s.Schedules++
		case strings.Contains(line, "["+string(TypeVerify)+"]"):
			s.Verifications++
			if strings.Contains(line, "NOT found in native pending list") {
				s.VerificationFailures++
			}
		case strings.Contains(line, "["+string(TypeFire)+"]"):
			s.Fires++
		case strings.Contains(line, "["+string(TypeDelete)+"]"):
			s.Deletes++
		case strings.Contains(line, "["+string(TypeReactivate)+"]"):
			s.Reactivations++
		case strings.Contains(line, "["+string(TypeSystemCheck)+"]"):
			s.SystemChecks++
		case strings.Contains(line, "["+string(TypeError)+"]"):
			s.Errors++
		}
	}
	return s, nil
}

// annotateLocked resolves orphaned IDs to "name (id...)" strings on
// SYSTEM_CHECK entries when a lookup has been injected.
func (f *FileSink) annotateLocked(e *Entry) {
	if e.Type != TypeSystemCheck || f.lookup == nil || e.Details == nil {
		return
	}
	ids, ok := e.Details["orphanedIds"].([]string)
	if !ok || len(ids) == 0 {
		return
	}
	details := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, found := f.lookup(id); found && name != "" {
			details = append(details, fmt.Sprintf("%s (%s)", name, shortID(id)))
		} else {
			details = append(details, shortID(id))
		}
	}
	e.Details["orphanedNotifications"] = details
	e.Message = fmt.Sprintf("system check: %d orphaned: %s", len(ids), strings.Join(details, ", "))
}

func (f *FileSink) appendLocked(ctx context.Context, line string) error {
	if f.lines >= f.maxLines {
		if err := f.rotateLocked(ctx); err != nil {
			f.log.Warn("debug log rotation failed", zap.Error(err))
		}
	}
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()
	if _, err := fh.WriteString(line + "\n"); err != nil {
		return err
	}
	f.lines++
	return nil
}

// rotateLocked keeps the newest keepLines lines and archives the trimmed head.
func (f *FileSink) rotateLocked(ctx context.Context) error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) <= f.keepLines {
		f.lines = len(lines)
		return nil
	}
	head := lines[:len(lines)-f.keepLines]
	tail := lines[len(lines)-f.keepLines:]

	if f.archive != nil {
		key := fmt.Sprintf("notification_debug/%s.log", time.Now().UTC().Format("20060102T150405Z"))
		if err := f.archive.Archive(ctx, key, []byte(strings.Join(head, "\n")+"\n")); err != nil {
			f.log.Warn("log segment archive failed", zap.Error(err))
		}
	}

	if err := os.WriteFile(f.path, []byte(strings.Join(tail, "\n")+"\n"), 0o644); err != nil {
		return err
	}
	f.lines = len(tail)
	return nil
}
