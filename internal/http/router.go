package httpserver

import (
	"net/http"

	"greenhouse/internal/http/handlers"
	"greenhouse/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	ReadingsHandlers *handlers.ReadingsHandlers
	StreamHandler    http.HandlerFunc
	HealthHandler    http.HandlerFunc
}

// NewRouter wires HTTP routes. Every route except health sits behind the
// bearer token middleware.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/v1/health", method(http.MethodGet, deps.HealthHandler))

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware)
	}

	mux.Handle("/api/v1/readings", methods(map[string]http.Handler{
		http.MethodPost: authenticated(deps.ReadingsHandlers.Create),
		http.MethodGet:  authenticated(deps.ReadingsHandlers.List),
	}))

	if deps.StreamHandler != nil {
		mux.Handle("/api/v1/readings/stream", method(http.MethodGet, authenticated(deps.StreamHandler).ServeHTTP))
	}

	return mux
}

func method(expected string, handler http.HandlerFunc) http.Handler {
	return methods(map[string]http.Handler{expected: handler})
}

func methods(allowed map[string]http.Handler) http.Handler {
	allow := ""
	for m := range allowed {
		if allow != "" {
			allow += ", "
		}
		allow += m
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := allowed[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
