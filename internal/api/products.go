package api

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/konekt/standardbooks-sync/internal/product"
)

// RegisterProductRoutes mounts the manual product refresh endpoint.
func RegisterProductRoutes(mux *http.ServeMux, refresher *product.Refresher, log *zap.SugaredLogger) {
	mux.Handle("/api/products/", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleProducts(refresher, log, w, r)
	}), "products"))
}

func handleProducts(refresher *product.Refresher, log *zap.SugaredLogger, w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "refresh" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sku := parts[0]

	if err := refresher.RefreshStock(r.Context(), sku); err != nil {
		log.Errorw("stock refresh failed", "sku", sku, "error", err)
		http.Error(w, "refresh failed", http.StatusBadGateway)
		return
	}
	if err := refresher.RefreshArticle(r.Context(), sku); err != nil {
		log.Errorw("article refresh failed", "sku", sku, "error", err)
		http.Error(w, "refresh failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]any{"status": "refreshed", "sku": sku})
}
