package httpserver

import (
	"net/http"

	"baas/backend/services/degradation-service/internal/http/handlers"
	"baas/backend/services/degradation-service/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	RunsHandlers    *handlers.RunsHandlers
	ResultsHandlers *handlers.ResultsHandlers
	HealthHandler   http.HandlerFunc
}

// NewRouter wires HTTP routes. Everything under /api requires authMiddleware.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, deps.HealthHandler))

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware)
	}

	mux.Handle("/api/runs", method(http.MethodPost, authenticated(deps.RunsHandlers.Trigger)))
	mux.Handle("/api/runs/latest", method(http.MethodGet, authenticated(deps.RunsHandlers.Latest)))
	mux.Handle("/api/references", method(http.MethodGet, authenticated(deps.ResultsHandlers.References)))
	mux.Handle("/api/degradation", method(http.MethodGet, authenticated(deps.ResultsHandlers.Degradation)))
	mux.Handle("/api/indicators", method(http.MethodGet, authenticated(deps.ResultsHandlers.Indicators)))

	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
