package http

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/service"
)

type DebugHandler struct {
	service service.CheckoutService
	token   string
	log     *slog.Logger
}

func NewDebugHandler(svc service.CheckoutService, token string, log *slog.Logger) *DebugHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DebugHandler{service: svc, token: token, log: log}
}

type sessionsResponse struct {
	Count    int               `json:"count"`
	Sessions []*domain.Session `json:"sessions"`
}

// GET /debug/sessions
func (h *DebugHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "Missing or invalid debug token", nil)
		return
	}

	sessions, err := h.service.Sessions(r.Context())
	if errors.Is(err, service.ErrListingUnsupported) {
		respondError(w, r, http.StatusNotImplemented, "not_implemented", "Session listing is not supported by this store", nil)
		return
	}
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	respondJSON(w, http.StatusOK, sessionsResponse{Count: len(sessions), Sessions: sessions})
}

func (h *DebugHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}
