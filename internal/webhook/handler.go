package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"
)

type okResponse struct {
	OK bool `json:"ok"`
}

// Handler accepts one provider's deliveries over HTTP.
type Handler struct {
	pipeline     *Pipeline
	provider     Provider
	maxBodyBytes int64
	logger       *slog.Logger
}

func NewHandler(pipeline *Pipeline, provider Provider, maxBodyBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline:     pipeline,
		provider:     provider,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.WarnContext(r.Context(), "Error reading request body", "error", err)
		http.Error(w, "error reading request body", http.StatusBadRequest)
		return
	}

	_, err = h.pipeline.Process(r.Context(), h.provider, r.Header.Get(h.provider.Verifier.Header()), body)
	if err != nil {
		var e *Error
		if !errors.As(err, &e) {
			e = newError(KindInternal, err)
		}
		http.Error(w, e.Message(), e.Kind.StatusCode())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(okResponse{OK: true}); err != nil {
		h.logger.ErrorContext(r.Context(), "Error writing response", "error", err)
	}
}
