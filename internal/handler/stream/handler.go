package stream

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gulalabs1-droid/textwingman/backend/internal/handler/analysis"
	"github.com/gulalabs1-droid/textwingman/backend/internal/service/dynamics"
	"github.com/gulalabs1-droid/textwingman/backend/pkg/utils"
)

// Handler streams an analysis over Server-Sent Events: the deterministic
// scores first, then the full analysis once the model has answered.
type Handler struct {
	svc analysis.Analyzer
}

// New creates a new stream handler
func New(svc analysis.Analyzer) *Handler {
	return &Handler{svc: svc}
}

// StreamEvent is the payload of "error" and "done" events.
type StreamEvent struct {
	Event    string `json:"event"`
	ID       string `json:"id,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RegisterRoutes mounts the stream endpoint on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze/stream", func(w http.ResponseWriter, r *http.Request) {
		req, ok := analysis.DecodeRequest(w, r)
		if !ok {
			return
		}
		if err := h.HandleStreamRequest(r.Context(), w, req); err != nil && !errors.Is(err, dynamics.ErrEmptyTranscript) {
			log.Printf("[stream] error handling request: %v", err)
		}
	})
}

// HandleStreamRequest writes "scores", then "analysis", then "done". An
// empty transcript is reported as a 400 before the stream opens.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, req dynamics.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return errors.New("streaming unsupported")
	}

	report, err := h.svc.Score(req)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return err
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "scores", report)

	result, err := h.svc.Analyze(ctx, req)
	if err != nil {
		h.sendSSEError(w, flusher, "analysis failed")
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	utils.SendSSEEvent(w, flusher, "analysis", result)
	utils.SendSSEEvent(w, flusher, "done", StreamEvent{Event: "done", ID: result.ID, Finished: true})
	return nil
}

func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, message string) {
	utils.SendSSEEvent(w, flusher, "error", StreamEvent{Event: "error", Error: message, Finished: true})
}
