package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"wikirag/docstore"
)

const defaultTopK = 6

// HitSearcher retrieves chunks relevant to a query.
type HitSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]docstore.Hit, error)
}

// Answerer generates a grounded answer from hits.
type Answerer interface {
	Answer(ctx context.Context, query string, hits []docstore.Hit) (string, error)
}

// APIServer is the JSON query API.
type APIServer struct {
	log       *slog.Logger
	retriever HitSearcher
	generator Answerer
}

// NewAPIServer wires the query routes and CORS middleware.
func NewAPIServer(log *slog.Logger, retriever HitSearcher, generator Answerer, corsOrigins []string) http.Handler {
	s := &APIServer{
		log:       log,
		retriever: retriever,
		generator: generator,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /query", s.query)

	return corsMiddleware(corsOrigins)(mux)
}

func (s *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query         string `json:"query"`
	TopK          int    `json:"top_k"`
	ReturnSources *bool  `json:"return_sources"`
}

type queryResponse struct {
	Answer  string             `json:"answer"`
	Sources []docstore.Payload `json:"sources"`
}

func (s *APIServer) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}

	hits, err := s.retriever.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.log.Error("retrieval failed", "error", err, "query_len", len(req.Query))
		http.Error(w, "retrieval failed", http.StatusInternalServerError)
		return
	}

	answer, err := s.generator.Answer(r.Context(), req.Query, hits)
	if err != nil {
		s.log.Error("generation failed", "error", err)
		http.Error(w, "generation failed", http.StatusInternalServerError)
		return
	}

	sources := []docstore.Payload{}
	if req.ReturnSources == nil || *req.ReturnSources {
		for _, h := range hits {
			sources = append(sources, h.Payload)
		}
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:  answer,
		Sources: sources,
	})
}

// writeJSON buffers the encoded body first so headers are only sent
// after encoding succeeds.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("failed to write response body", "error", err)
	}
}

// corsMiddleware handles CORS preflight and response headers for the
// configured origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := originSet[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
