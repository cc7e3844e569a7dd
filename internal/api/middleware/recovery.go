package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/draftroom/internal/api/apierr"
	"github.com/mcoot/draftroom/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Clients get a JSON INTERNAL_ERROR naming the request so it can be found in the logs.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, r *http.Request, _ any) {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		apierr.WriteError(w, apierr.NewInternalErrorf("internal server error (request %s)", id))
		return
	}
	apierr.WriteError(w, apierr.NewInternalError())
}
