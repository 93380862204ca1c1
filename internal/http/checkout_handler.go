package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fjod/acp-checkout/internal/idempotency"
	"github.com/fjod/acp-checkout/internal/metrics"
	"github.com/fjod/acp-checkout/internal/service"
)

const ReplayedHeader = "Idempotent-Replayed"

type CheckoutHandler struct {
	service service.CheckoutService
	guard   *idempotency.Guard
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewCheckoutHandler(svc service.CheckoutService, guard *idempotency.Guard, m *metrics.Metrics, log *slog.Logger) *CheckoutHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutHandler{service: svc, guard: guard, metrics: m, log: log}
}

// POST /create_checkout
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "create_checkout", func(ctx context.Context) (any, error) {
		var dto CreateCheckoutRequestDTO
		if err := decode(w, r, &dto); err != nil {
			return nil, err
		}
		req, err := dto.toDomain()
		if err != nil {
			return nil, err
		}
		return h.service.Create(ctx, req)
	})
}

// POST /update_checkout
func (h *CheckoutHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "update_checkout", func(ctx context.Context) (any, error) {
		var dto UpdateCheckoutRequestDTO
		if err := decode(w, r, &dto); err != nil {
			return nil, err
		}
		req, err := dto.toDomain()
		if err != nil {
			return nil, err
		}
		return h.service.Update(ctx, req)
	})
}

// POST /complete_checkout
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "complete_checkout", func(ctx context.Context) (any, error) {
		var dto CompleteCheckoutRequestDTO
		if err := decode(w, r, &dto); err != nil {
			return nil, err
		}
		req, err := dto.toDomain()
		if err != nil {
			return nil, err
		}
		return h.service.Complete(ctx, req)
	})
}

// POST /cancel_checkout
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "cancel_checkout", func(ctx context.Context) (any, error) {
		var dto CancelCheckoutRequestDTO
		if err := decode(w, r, &dto); err != nil {
			return nil, err
		}
		req, err := dto.toDomain()
		if err != nil {
			return nil, err
		}
		return h.service.Cancel(ctx, req)
	})
}

// serve runs op behind the idempotency guard and writes either the fresh or
// the replayed body. Only successful bodies are ever stored.
func (h *CheckoutHandler) serve(w http.ResponseWriter, r *http.Request, operation string, op func(ctx context.Context) (any, error)) {
	body, replayed, err := h.guard.Do(r.Context(), operation, idempotency.Key(r), func(ctx context.Context) ([]byte, error) {
		resp, err := op(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
	if err != nil {
		status := handleError(w, r, h.log, err)
		h.metrics.ObserveRequest(operation, strconv.Itoa(status))
		return
	}

	if replayed {
		w.Header().Set(ReplayedHeader, "true")
		h.metrics.ObserveReplay(operation)
	}
	respondRaw(w, http.StatusOK, body)
	h.metrics.ObserveRequest(operation, strconv.Itoa(http.StatusOK))
}
