// Package handler wires the anomaly endpoints to the lifecycle service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"trailguard/internal/anomaly/models"
	id "trailguard/pkg/domain"
	dErrors "trailguard/pkg/domain-errors"
	"trailguard/pkg/platform/httputil"
	"trailguard/pkg/requestcontext"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service defines the anomaly operations the handler exposes.
type Service interface {
	DetectionPass(ctx context.Context, subjectID id.SubjectID) (*models.PassResult, error)
	List(ctx context.Context, status models.Status, limit int) ([]models.Anomaly, error)
	Resolve(ctx context.Context, anomalyID id.AnomalyID, status, notes string) (models.Anomaly, error)
}

// Handler wires anomaly endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an anomaly handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts anomaly endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/anomalies", h.HandleList)
	r.Get("/anomalies/{id}", h.HandleDetectionPass)
	r.Put("/anomalies/{id}/resolve", h.HandleResolve)
}

// HandleList handles GET /anomalies?status=&limit= requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := models.Status(r.URL.Query().Get("status"))

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer"))
			return
		}
		limit = clampLimit(n)
	}

	anomalies, err := h.service.List(ctx, status, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Anomalies: emptyWhenNil(anomalies)})
}

// HandleDetectionPass handles GET /anomalies/{id} requests, where id is a
// subject. It runs a detection pass and returns the signals detected now
// alongside the subject's active anomaly set.
func (h *Handler) HandleDetectionPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.DetectionPass(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "detection pass failed",
			"request_id", requestID,
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "detection pass completed",
		"request_id", requestID,
		"subject_id", subjectID,
		"pass_status", result.Status,
		"signals", len(result.DetectedNow),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleResolve handles PUT /anomalies/{id}/resolve requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	anomalyID, err := id.ParseAnomalyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed anomaly id"))
		return
	}

	req, ok := httputil.DecodeJSON[resolveRequest](w, r)
	if !ok {
		return
	}

	anomaly, err := h.service.Resolve(ctx, anomalyID, req.Status, req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "anomaly resolution failed",
			"request_id", requestID,
			"anomaly_id", anomalyID,
			"status", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "anomaly resolution applied",
		"request_id", requestID,
		"anomaly_id", anomalyID,
		"status", anomaly.Status,
		"operator_id", requestcontext.OperatorID(ctx),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, anomaly)
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

func emptyWhenNil(anomalies []models.Anomaly) []models.Anomaly {
	if anomalies == nil {
		return []models.Anomaly{}
	}
	return anomalies
}

type resolveRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type listResponse struct {
	Anomalies []models.Anomaly `json:"anomalies"`
}
