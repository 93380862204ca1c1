package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/pkg/logger"
)

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func respondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	respondJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: logger.RequestID(r.Context()),
	})
}

// handleError maps a domain error onto its status code. Anything untyped is
// logged and answered with a generic internal error.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) int {
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.KindInternal {
		log.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		respondError(w, r, http.StatusInternalServerError, string(domain.KindInternal), "Internal server error", nil)
		return http.StatusInternalServerError
	}

	status := statusFor(de.Kind)
	if de.Kind == domain.KindUpstream {
		log.WarnContext(r.Context(), "upstream failure", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	respondError(w, r, status, string(de.Kind), de.Message, de.Details)
	return status
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
