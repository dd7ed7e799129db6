package api

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/konekt/standardbooks-sync/internal/taxes"
)

// RegisterTaxRoutes exposes the external tax table so the admin can fill in
// the VAT code mapping against live data.
func RegisterTaxRoutes(mux *http.ServeMux, svc *taxes.Service) {
	mux.Handle("/api/taxes", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		table, err := svc.Table(r.Context())
		if err != nil {
			http.Error(w, "tax table unavailable", http.StatusBadGateway)
			return
		}
		writeJSON(w, table)
	}), "taxes"))
}
