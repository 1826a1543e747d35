package handler

import (
	"encoding/json"
	"net/http"

	jwtinfra "github.com/go-quicknotif/internal/infrastructure/jwt"
	"github.com/go-quicknotif/internal/pkg/validate"
)

// AuthHandler issues device tokens for the API boundary.
type AuthHandler struct {
	provider *jwtinfra.Provider
}

func NewAuthHandler(provider *jwtinfra.Provider) *AuthHandler {
	return &AuthHandler{provider: provider}
}

type tokenRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.provider.Sign(req.DeviceID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: token})
}
