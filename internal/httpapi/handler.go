// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// maxBodyBytes bounds the search request body.
const maxBodyBytes = 64 << 10

// Searcher runs one evidence search. *evidence.Engine satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) types.SearchResult
}

// Handler serves the HTTP endpoints.
type Handler struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewHandler returns a Handler backed by searcher.
func NewHandler(searcher Searcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{searcher: searcher, logger: logger.With("component", "httpapi")}
}

type searchRequest struct {
	Query string `json:"query"`
}

// Healthz reports that the process is serving.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search answers POST /v1/evidence/search. A search that finds nothing is
// still a 200 with retry_needed set.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	result := h.searcher.Search(r.Context(), req.Query)
	h.logger.Info("search served",
		"request_id", chimw.GetReqID(r.Context()),
		"papers", len(result.Papers), "success", result.Success)
	writeJSON(w, http.StatusOK, result)
}
