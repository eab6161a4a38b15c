package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"

	"payment-webhook-service/internal/logcontext"
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware attaches a correlation id to the request context so every
// log line of the delivery carries it.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, requestID)

		ctx := logcontext.AppendCtx(r.Context(), slog.String("requestId", requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func instrumentHandler(name string, handler http.Handler) http.Handler {
	duration := metrics.GetOrCreateHistogram(fmt.Sprintf(`http_request_duration_seconds{handler=%q}`, name))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler.ServeHTTP(wrapped, r)

		duration.UpdateDuration(startTime)
		metrics.GetOrCreateCounter(fmt.Sprintf(`http_requests_total{handler=%q,code=%q}`,
			name, strconv.Itoa(wrapped.statusCode))).Inc()
	})
}

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
