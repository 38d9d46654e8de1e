package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/kenolab/retriever/internal/retrieval"
	"github.com/kenolab/retriever/internal/service"
)

type handlers struct {
	svc    *service.QueryService
	logger *slog.Logger

	// Ingest replaces backend state wholesale; one at a time.
	ingestMu sync.Mutex
}

type ingestRequest struct {
	Documents []retrieval.Document `json:"documents"`
}

type ingestResponse struct {
	Ingested int `json:"ingested"`
}

type searchResponse struct {
	Results []retrieval.Candidate `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.ingestMu.Lock()
	err := h.svc.Ingest(r.Context(), req.Documents)
	h.ingestMu.Unlock()
	if err != nil {
		h.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Ingested: len(req.Documents)})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	var req service.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := h.svc.Search(r.Context(), req)
	if err != nil {
		h.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	var req service.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := h.svc.Ask(r.Context(), req)
	if err != nil {
		h.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

// writeBackendError maps the retrieval error taxonomy onto status codes.
// Caller mistakes are 4xx; everything else surfaces as a hard 500 — there is
// no degraded-mode fallback.
func (h *handlers) writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retrieval.ErrEmptyCorpus),
		errors.Is(err, retrieval.ErrDimensionMismatch),
		errors.Is(err, retrieval.ErrMissingEmbedding):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, retrieval.ErrNotBuilt):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("backend operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
