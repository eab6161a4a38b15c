package main

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	lrw.body.Write(b)
	return lrw.ResponseWriter.Write(b)
}

var (
	mu          sync.Mutex
	idMap       = make(map[string]bool)
	duplicateID = make(map[string]bool)
)

// loggingMiddleware logs each verify call and reports transaction ids verified
// more than once.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("Request", "method", r.Method, "path", r.URL.Path, "authorization", r.Header.Get("Authorization") != "")

		if id := mux.Vars(r)["id"]; id != "" {
			mu.Lock()
			if idMap[id] {
				duplicateID[id] = true
			} else {
				idMap[id] = true
			}
			mu.Unlock()
		}

		lrw := &loggingResponseWriter{ResponseWriter: w, body: &bytes.Buffer{}}
		next.ServeHTTP(lrw, r)

		logger.Info("Response", "body", lrw.body.String())

		mu.Lock()
		for id := range duplicateID {
			logger.Info("Duplicate transaction id", "id", id)
		}
		mu.Unlock()
	})
}

var (
	endpointCounts = make(map[string]int)
)

func countMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		endpointCounts[r.URL.Path]++
		count := endpointCounts[r.URL.Path]
		mu.Unlock()

		logger.Info("Endpoint called", "path", r.URL.Path, "count", count)
		next.ServeHTTP(w, r)
	})
}
