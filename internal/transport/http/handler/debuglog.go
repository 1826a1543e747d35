package handler

import (
	"net/http"

	"github.com/go-quicknotif/internal/logsink"
)

// DebugLog is the slice of the file sink the handler needs.
type DebugLog interface {
	Contents() (string, error)
	Clear() error
	Stats() (logsink.Stats, error)
}

// DebugLogHandler serves the on-device debug log.
type DebugLogHandler struct {
	log DebugLog
}

func NewDebugLogHandler(log DebugLog) *DebugLogHandler {
	return &DebugLogHandler{log: log}
}

func (h *DebugLogHandler) Get(w http.ResponseWriter, _ *http.Request) {
	content, err := h.log.Contents()
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(content))
}

func (h *DebugLogHandler) Clear(w http.ResponseWriter, _ *http.Request) {
	if err := h.log.Clear(); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "log cleared"})
}

func (h *DebugLogHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.log.Stats()
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
