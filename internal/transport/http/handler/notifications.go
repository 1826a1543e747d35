package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-quicknotif/internal/application/scheduling"
	"github.com/go-quicknotif/internal/domain"
	"github.com/go-quicknotif/internal/pkg/validate"
)

// NotificationHandler handles notification scheduling endpoints.
type NotificationHandler struct {
	svc scheduling.Service
}

func NewNotificationHandler(svc scheduling.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type scheduleRequest struct {
	Name string `json:"name"`
	Time string `json:"time" validate:"required"`
	Type string `json:"type" validate:"required,oneof=absolute relative"`
}

type editRequest struct {
	Time string `json:"time" validate:"required"`
	Type string `json:"type" validate:"required,oneof=absolute relative"`
}

func (h *NotificationHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.svc.Schedule(r.Context(), req.Name, req.Time, domain.Kind(req.Type))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedEnvelope{ID: id})
}

func (h *NotificationHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.List())
}

func (h *NotificationHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Edit(r.Context(), chi.URLParam(r, "id"), req.Time, domain.Kind(req.Type)); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "notification updated"})
}

func (h *NotificationHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Toggle(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "notification toggled"})
}

func (h *NotificationHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "notification reactivated"})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "notification deleted"})
}

func (h *NotificationHandler) ClearExpired(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.svc.ClearExpired(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClearedEnvelope{Cleared: cleared})
}

func (h *NotificationHandler) RecentNames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.RecentNames())
}
