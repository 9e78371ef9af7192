package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gulalabs1-droid/textwingman/backend/internal/service/dynamics"
	"github.com/gulalabs1-droid/textwingman/backend/pkg/utils"
)

// MaxBodyBytes bounds request bodies. Transcripts are pasted text.
const MaxBodyBytes = 256 << 10

// Analyzer is the subset of dynamics.Service the handlers use.
type Analyzer interface {
	Analyze(ctx context.Context, req dynamics.Request) (dynamics.Analysis, error)
	Score(req dynamics.Request) (dynamics.Report, error)
}

// Handler serves the analysis REST endpoints.
type Handler struct {
	svc Analyzer
}

func New(svc Analyzer) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze", h.handleAnalyze)
	r.Post("/score", h.handleScore)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := DecodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	req, ok := DecodeRequest(w, r)
	if !ok {
		return
	}

	report, err := h.svc.Score(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, report)
}

// DecodeRequest reads a dynamics.Request body and writes a 400 on failure.
func DecodeRequest(w http.ResponseWriter, r *http.Request) (dynamics.Request, bool) {
	var req dynamics.Request
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return dynamics.Request{}, false
	}
	return req, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, dynamics.ErrEmptyTranscript) {
		utils.RespondError(w, http.StatusBadRequest, "transcript must contain at least one \"You:\" or \"Them:\" line")
		return
	}
	log.Printf("[analysis] request failed: %v", err)
	utils.RespondError(w, http.StatusInternalServerError, "analysis failed")
}
