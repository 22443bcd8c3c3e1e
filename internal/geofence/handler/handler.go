// Package handler wires the geofence endpoints to the evaluator and the
// anomaly lifecycle.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trailguard/internal/geofence/models"
	id "trailguard/pkg/domain"
	"trailguard/pkg/platform/httputil"
	"trailguard/pkg/requestcontext"
)

// Checker runs a geofence evaluation with anomaly side effects.
type Checker interface {
	CheckGeofence(ctx context.Context, subjectID id.SubjectID, lat, lon float64) (*models.Evaluation, error)
}

// Catalog lists the active restricted zones.
type Catalog interface {
	ActiveZones(ctx context.Context) ([]models.RestrictedZone, error)
}

// Handler wires geofence endpoints.
type Handler struct {
	checker Checker
	catalog Catalog
	logger  *slog.Logger
}

// New constructs a geofence handler.
func New(checker Checker, catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{checker: checker, catalog: catalog, logger: logger}
}

// Register mounts geofence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/geofence/check", h.HandleCheck)
	r.Get("/geofence/zones", h.HandleZones)
}

// HandleCheck handles POST /geofence/check requests. A breach opens an
// anomaly for the subject as a side effect.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[checkRequest](w, r)
	if !ok {
		return
	}
	subjectID, err := id.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	eval, err := h.checker.CheckGeofence(ctx, subjectID, req.Latitude, req.Longitude)
	if err != nil {
		h.logger.ErrorContext(ctx, "geofence check failed",
			"request_id", requestcontext.RequestID(ctx),
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eval)
}

// HandleZones handles GET /geofence/zones requests.
func (h *Handler) HandleZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.catalog.ActiveZones(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if zones == nil {
		zones = []models.RestrictedZone{}
	}
	httputil.WriteJSON(w, http.StatusOK, zonesResponse{Zones: zones})
}

type checkRequest struct {
	SubjectID string  `json:"subject_id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type zonesResponse struct {
	Zones []models.RestrictedZone `json:"zones"`
}
