package api

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/konekt/standardbooks-sync/internal/cache"
	"github.com/konekt/standardbooks-sync/internal/standardbooks"
)

// articlesTTL bounds how stale the cached article register may get.
const articlesTTL = time.Hour

// RegisterArticleRoutes exposes the external article register, cached, so
// the admin can match SKUs against article codes.
func RegisterArticleRoutes(mux *http.ServeMux, client *standardbooks.Client, c cache.Cache, log *zap.SugaredLogger) {
	mux.Handle("/api/articles", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var articles []standardbooks.Article
		if ok, err := c.Get(r.Context(), cache.AllArticlesKey(), &articles); err == nil && ok {
			writeJSON(w, articles)
			return
		}

		articles, err := client.GetAllArticles(r.Context())
		if err != nil {
			http.Error(w, "article register unavailable", http.StatusBadGateway)
			return
		}
		if err := c.Set(r.Context(), cache.AllArticlesKey(), articles, articlesTTL); err != nil {
			log.Warnw("failed to cache article register", "error", err)
		}
		writeJSON(w, articles)
	}), "articles"))
}
