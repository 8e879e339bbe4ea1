package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(a *API) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation - must be registered first
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	mux.HandleFunc("/health", a.HealthHandler)
	mux.HandleFunc("/status", a.StatusHandler)

	mux.HandleFunc("/webhook/retell", a.WebhookHandler)
	mux.HandleFunc("/api/retry-failed", a.RetryFailedHandler)

	return mux
}
