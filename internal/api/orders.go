package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/konekt/standardbooks-sync/internal/sync"
)

// RegisterOrderRoutes wires the manual submission endpoints into the mux.
// These back the merchant's "send to accounting" actions.
func RegisterOrderRoutes(mux *http.ServeMux, svc *sync.Service, store sync.Store) {
	mux.Handle("/api/orders/", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleOrders(svc, store, w, r)
	}), "orders"))
}

func handleOrders(svc *sync.Service, store sync.Store, w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	orderID, action := parts[0], parts[1]

	switch action {
	case "submit", "submit-no-stock":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		updateStock := action == "submit"
		if err := svc.SubmitOrder(r.Context(), orderID, updateStock); err != nil {
			http.Error(w, "sync failed", http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"status": "synced", "orderId": orderID})

	case "refs":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		invoiceID, customerCode, err := store.InvoiceRef(r.Context(), orderID)
		if err != nil {
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{
			"orderId":      orderID,
			"invoiceId":    invoiceID,
			"customerCode": customerCode,
		})

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
