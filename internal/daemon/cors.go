package daemon

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"picker/internal/observability"
)

// corsMiddleware answers browser preflights and tags responses for allowed
// origins. "*" allows every origin; an empty list disables CORS headers.
// Allow-Methods for non-simple methods comes from mux.CORSMethodMiddleware,
// which must run first.
func corsMiddleware(origins []string) mux.MiddlewareFunc {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", observability.RequestIDHeader}),
		handlers.ExposedHeaders([]string{observability.RequestIDHeader}),
		handlers.MaxAge(600),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}
