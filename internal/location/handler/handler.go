// Package handler wires the location ingest endpoint. Each accepted ping
// triggers a detection pass for the subject, so callers see the safety
// consequences of the position they just reported.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	anomalymodels "trailguard/internal/anomaly/models"
	"trailguard/internal/location/models"
	id "trailguard/pkg/domain"
	"trailguard/pkg/platform/httputil"
	"trailguard/pkg/requestcontext"
)

// Recorder persists validated pings.
type Recorder interface {
	RecordPing(ctx context.Context, ping models.LocationPing) error
}

// PassRunner runs one detection pass for a subject.
type PassRunner interface {
	DetectionPass(ctx context.Context, subjectID id.SubjectID) (*anomalymodels.PassResult, error)
}

// Handler wires the location ingest endpoint.
type Handler struct {
	recorder Recorder
	passes   PassRunner
	logger   *slog.Logger
}

// New constructs a location handler.
func New(recorder Recorder, passes PassRunner, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, passes: passes, logger: logger}
}

// Register mounts the ingest endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/locations", h.HandleIngest)
}

// HandleIngest handles POST /locations requests: record the ping, then run a
// detection pass and return its result.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeJSON[ingestRequest](w, r)
	if !ok {
		return
	}
	subjectID, err := id.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ping := models.LocationPing{
		SubjectID: subjectID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Altitude:  req.Altitude,
		Timestamp: req.Timestamp,
	}
	if err := h.recorder.RecordPing(ctx, ping); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.passes.DetectionPass(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "detection pass failed after ingest",
			"request_id", requestID,
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "location ingested",
		"request_id", requestID,
		"subject_id", subjectID,
		"pass_status", result.Status,
		"signals", len(result.DetectedNow),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusAccepted, result)
}

type ingestRequest struct {
	SubjectID string    `json:"subject_id"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
