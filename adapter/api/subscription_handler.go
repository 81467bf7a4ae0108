package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	subApp "github.com/felixgeelhaar/subscriptions/internal/subscriptions/application"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/infrastructure/billing"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

// SubscriptionHandler handles subscription API requests.
type SubscriptionHandler struct {
	service *subApp.Service
	metrics *observability.InMemoryMetrics
	logger  *slog.Logger
	notices *noticeHub
}

// SubscriptionHandlerConfig holds dependencies for the subscription handler.
type SubscriptionHandlerConfig struct {
	Service *subApp.Service
	Metrics *observability.InMemoryMetrics
	Logger  *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(cfg SubscriptionHandlerConfig) *SubscriptionHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SubscriptionHandler{
		service: cfg.Service,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		notices: newNoticeHub(cfg.Logger),
	}
}

// Run consumes the service's notices until ctx ends and publishes them on
// the event stream as "notice" events. It must be the only consumer of
// Service.Commands while the handler serves requests.
func (h *SubscriptionHandler) Run(ctx context.Context) {
	h.notices.consume(ctx, h.service.Commands())
}

type purchaseRequest struct {
	Plan  string `json:"plan"`
	Reset bool   `json:"reset,omitempty"`
}

type purchaseResponse struct {
	Purchase domain.PurchaseResult `json:"purchase"`
	View     subApp.View           `json:"view"`
}

// GetSubscription handles GET /api/v1/subscription. With ?refresh=true
// the catalog and purchases are reloaded first.
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if err := h.service.Load(r.Context()); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.service.View())
}

// ListPlans handles GET /api/v1/subscription/plans
func (h *SubscriptionHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	if !h.ensureLoaded(w, r) {
		return
	}
	plans := h.service.View().Plans
	if plans == nil {
		plans = []subApp.PlanAction{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// Purchase handles POST /api/v1/subscription/purchases. The response is
// 202 because the resulting status arrives through purchase events.
func (h *SubscriptionHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, &APIError{Status: http.StatusBadRequest, Code: "bad_request", Message: "invalid JSON body"})
		return
	}
	plan, err := domain.ParsePlanKey(req.Plan)
	if err != nil {
		writeError(w, &APIError{Status: http.StatusBadRequest, Code: "unknown_plan", Message: err.Error()})
		return
	}
	if !h.ensureLoaded(w, r) {
		return
	}

	result, err := h.service.Buy(r.Context(), plan, subApp.BuyOptions{Reset: req.Reset})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, purchaseResponse{Purchase: result, View: h.service.View()})
}

// Recover handles POST /api/v1/subscription/recover
func (h *SubscriptionHandler) Recover(w http.ResponseWriter, r *http.Request) {
	if !h.ensureLoaded(w, r) {
		return
	}
	if err := h.service.Recover(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.service.View())
}

// StreamEvents handles GET /api/v1/subscription/events as a server-sent
// event stream. The current view is sent first, then one "subscription"
// event per change and one "notice" event per presentation notice.
func (h *SubscriptionHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "streaming unsupported"})
		return
	}

	ctx := r.Context()
	notices, unsubscribe := h.notices.subscribe()
	defer unsubscribe()
	sub := h.service.Store().Subscribe(ctx)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case snapshot, open := <-sub.C():
			if !open {
				return
			}
			view := subApp.Render(snapshot)
			err = writeEvent(w, "subscription", fmt.Sprint(view.Version), view)
		case text := <-notices:
			err = writeEvent(w, "notice", "", noticeEvent{Message: text})
		}
		if err != nil {
			h.logger.DebugContext(ctx, "event stream closed", "error", err)
			return
		}
		flusher.Flush()
	}
}

type noticeEvent struct {
	Message string `json:"message"`
}

func writeEvent(w http.ResponseWriter, event, id string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// Metrics handles GET /api/v1/metrics
func (h *SubscriptionHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		writeJSON(w, http.StatusOK, map[string]int64{})
		return
	}
	writeJSON(w, http.StatusOK, h.metrics.Counters())
}

func (h *SubscriptionHandler) ensureLoaded(w http.ResponseWriter, r *http.Request) bool {
	if h.service.View().Ready {
		return true
	}
	if err := h.service.Load(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP statuses. Notices raised
// by the failure reach clients through the event stream.
func (h *SubscriptionHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := &APIError{Status: http.StatusBadGateway, Code: "billing_error", Message: err.Error()}
	switch {
	case errors.Is(err, domain.ErrUnknownPlan):
		apiErr.Status, apiErr.Code = http.StatusBadRequest, "unknown_plan"
	case errors.Is(err, domain.ErrPlanUnavailable), errors.Is(err, domain.ErrProductDetailsMissing):
		apiErr.Status, apiErr.Code = http.StatusConflict, "plan_unavailable"
	case errors.Is(err, domain.ErrNoPurchase):
		apiErr.Status, apiErr.Code = http.StatusNotFound, "no_purchase"
	case errors.Is(err, domain.ErrPurchaseFailed):
		apiErr.Status, apiErr.Code = http.StatusPaymentRequired, "purchase_failed"
	case errors.Is(err, billing.ErrCircuitOpen):
		apiErr.Status, apiErr.Code = http.StatusServiceUnavailable, "billing_unavailable"
	}
	if apiErr.Status >= http.StatusInternalServerError {
		h.logger.WarnContext(r.Context(), "subscription request failed", "error", err, "status", apiErr.Status)
	}
	writeError(w, apiErr)
}
