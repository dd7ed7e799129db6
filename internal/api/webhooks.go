package api

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/konekt/standardbooks-sync/internal/sync"
)

// RegisterWebhookRoutes mounts the order-status webhook. Shops that cannot
// publish to Kafka directly post status transitions here instead.
func RegisterWebhookRoutes(mux *http.ServeMux, svc *sync.Service, log *zap.SugaredLogger) {
	mux.Handle("/api/webhooks/order-status", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processStatusWebhook(svc, log, w, r)
	}), "order-status-webhook"))
}

func processStatusWebhook(svc *sync.Service, log *zap.SugaredLogger, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		OrderID   string `json:"orderId"`
		OldStatus string `json:"oldStatus"`
		NewStatus string `json:"newStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if payload.OrderID == "" {
		http.Error(w, "missing orderId", http.StatusBadRequest)
		return
	}

	if err := svc.HandleStatusChange(r.Context(), payload.OrderID, payload.NewStatus); err != nil {
		log.Errorw("status webhook sync failed", "order_id", payload.OrderID, "error", err)
		http.Error(w, "sync failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]any{"status": "received"})
}
