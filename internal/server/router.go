package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"payment-webhook-service/internal/metrics"
	"payment-webhook-service/internal/model"
)

// NewRouter serves one webhook route per enabled provider plus the
// operational endpoints.
func NewRouter(webhooks map[model.Provider]http.Handler, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)

	router.HandleFunc("/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	for provider, handler := range webhooks {
		name := "webhook-" + string(provider)
		router.Handle("/webhooks/"+string(provider), instrumentHandler(name, handler)).
			Methods(http.MethodPost).
			Name(name)
		logger.Info("Registered webhook route", "provider", provider)
	}

	return router
}
