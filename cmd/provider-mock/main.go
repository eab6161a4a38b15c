// Command provider-mock stands in for the Flutterwave transaction verify API.
// Point flutterwave.base-url at http://localhost:8085/<mode>.
package main

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"payment-webhook-service/internal/payload"
)

const (
	errorRate   = 0.5
	contentType = "application/json"
	verifyPath  = "/v3/transactions/{id}/verify"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func main() {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, countMiddleware)

	router.HandleFunc("/always-success"+verifyPath, alwaysSuccessHandler).Methods(http.MethodGet)
	router.HandleFunc("/success-delayed"+verifyPath, successDelayedHandler).Methods(http.MethodGet)
	router.HandleFunc("/always-fail"+verifyPath, alwaysFailHandler).Methods(http.MethodGet)
	router.HandleFunc("/random-fail"+verifyPath, randomFailHandler).Methods(http.MethodGet)

	if err := http.ListenAndServe(":8085", router); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func writeVerified(w http.ResponseWriter, r *http.Request, status string) {
	id := mux.Vars(r)["id"]
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload.FlutterwaveVerifyResponse{
		Status:  "success",
		Message: "Transaction fetched successfully",
		Data: &payload.FlutterwaveVerifyData{
			ID:     json.Number(id),
			TxRef:  r.URL.Query().Get("tx_ref"),
			Status: status,
		},
	})
}

func writeError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(payload.FlutterwaveVerifyResponse{Status: "error", Message: "Internal Server Error"})
}

// status lets a caller pick the verified status with ?status=, default successful.
func status(r *http.Request) string {
	if s := r.URL.Query().Get("status"); s != "" {
		return s
	}
	return "successful"
}

func alwaysSuccessHandler(w http.ResponseWriter, r *http.Request) {
	writeVerified(w, r, status(r))
}

func successDelayedHandler(w http.ResponseWriter, r *http.Request) {
	delay := time.Duration(3+rand.IntN(6)) * time.Second
	time.Sleep(delay)
	writeVerified(w, r, status(r))
}

func alwaysFailHandler(w http.ResponseWriter, _ *http.Request) {
	writeError(w)
}

func randomFailHandler(w http.ResponseWriter, r *http.Request) {
	if rand.Float64() < errorRate {
		writeError(w)
		return
	}
	writeVerified(w, r, status(r))
}
