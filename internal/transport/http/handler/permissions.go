package handler

import (
	"net/http"

	"github.com/go-quicknotif/internal/application/permission"
)

// PermissionHandler exposes the setup flow state machine.
type PermissionHandler struct {
	flow *permission.Flow
}

func NewPermissionHandler(flow *permission.Flow) *PermissionHandler {
	return &PermissionHandler{flow: flow}
}

func (h *PermissionHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PermissionEnvelope{
		Step:     string(h.flow.Step()),
		Complete: h.flow.Complete(),
	})
}

func (h *PermissionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.Advance(r.Context()); err != nil {
		httpError(w, err)
		return
	}
	h.Get(w, r)
}

func (h *PermissionHandler) Skip(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.Skip(r.Context()); err != nil {
		httpError(w, err)
		return
	}
	h.Get(w, r)
}
