package httpx

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// OTelMiddleware traces requests, naming spans after the matched route template so
// /v1/databases/{name} does not fan out into one span name per database.
func OTelMiddleware() func(http.Handler) http.Handler {
	return otelhttp.NewMiddleware("data-uploader",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					return r.Method + " " + tpl
				}
			}
			return r.Method + " " + r.URL.Path
		}),
	)
}
