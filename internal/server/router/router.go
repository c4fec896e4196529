// Package router wires up the API routes and applies the middleware chain
// (RequestID → CORS → Metrics → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/mfeineis/elm-advanced-package-search/internal/server/handler"
	"github.com/mfeineis/elm-advanced-package-search/pkg/health"
	"github.com/mfeineis/elm-advanced-package-search/pkg/metrics"
	"github.com/mfeineis/elm-advanced-package-search/pkg/middleware"
)

// New builds the full HTTP handler with all routes and middleware.
//
// Route table:
//
//	GET    /api/v1/search            → ranked search
//	GET    /api/v1/search/explain    → per-document score breakdown
//	GET    /api/v1/search/suggest    → term completion by prefix
//	GET    /api/v1/packages          → browse listing (Postgres)
//	GET    /api/v1/packages/{name}   → single package record
//	PUT    /api/v1/packages/{name}   → upsert package
//	DELETE /api/v1/packages/{name}   → delete package
//	GET    /api/v1/stats             → index + query statistics
//	GET    /health                   → aggregate health report
func New(h *handler.Handler, checker *health.Checker, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	// Health (no middleware requirements beyond the chain)
	mux.HandleFunc("GET /health", checker.Handler())

	// Search API
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/explain", h.SearchExplain)
	mux.HandleFunc("GET /api/v1/search/suggest", h.Suggest)

	// Package API
	mux.HandleFunc("GET /api/v1/packages", h.ListPackages)
	mux.HandleFunc("GET /api/v1/packages/{name}", h.GetPackage)
	mux.HandleFunc("PUT /api/v1/packages/{name}", h.PutPackage)
	mux.HandleFunc("DELETE /api/v1/packages/{name}", h.DeletePackage)

	// Stats API
	mux.HandleFunc("GET /api/v1/stats", h.Stats)

	// Middleware chain — applied inside-out:
	// request → RequestID → CORS → Metrics → Timeout → mux
	var chain http.Handler = mux
	chain = middleware.Timeout(requestTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	return chain
}
