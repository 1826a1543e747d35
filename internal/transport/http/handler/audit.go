package handler

import (
	"net/http"

	"github.com/go-quicknotif/internal/application/audit"
)

// AuditHandler triggers on-demand reconciliation runs.
type AuditHandler struct {
	svc audit.Service
}

func NewAuditHandler(svc audit.Service) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func (h *AuditHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Run(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
