// Package service owns the anomaly lifecycle: it turns detector signals into
// stored anomaly records, applies the score consequences, and handles the
// operator resolution flow.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trailguard/internal/anomaly/models"
	"trailguard/internal/detect"
	gfmodels "trailguard/internal/geofence/models"
	locmodels "trailguard/internal/location/models"
	"trailguard/internal/platform/config"
	"trailguard/internal/platform/metrics"
	"trailguard/internal/platform/subjectlock"
	id "trailguard/pkg/domain"
	dErrors "trailguard/pkg/domain-errors"
	"trailguard/pkg/platform/events"
	"trailguard/pkg/requestcontext"
)

// Store persists anomaly records.
type Store interface {
	// InsertIfNoActive inserts unless an active anomaly of the same type
	// already exists for the subject. Reports whether the row was inserted.
	InsertIfNoActive(ctx context.Context, anomaly models.Anomaly) (bool, error)
	GetByID(ctx context.Context, anomalyID id.AnomalyID) (models.Anomaly, error)
	UpdateResolution(ctx context.Context, anomalyID id.AnomalyID, status models.Status, resolvedAt time.Time, metadata map[string]any) error
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]models.Anomaly, error)
	List(ctx context.Context, status models.Status, limit int) ([]models.Anomaly, error)
}

// LocationReader supplies the ping window and itinerary for a pass.
type LocationReader interface {
	RecentWindow(ctx context.Context, subjectID id.SubjectID, limit int) ([]locmodels.LocationPing, error)
	Waypoints(ctx context.Context, subjectID id.SubjectID) ([]locmodels.ItineraryWaypoint, error)
}

// ScoreAdjuster is the safety score ledger write path.
type ScoreAdjuster interface {
	ApplyDelta(ctx context.Context, subjectID id.SubjectID, delta int, reason string) (int, error)
}

// GeofenceEvaluator tests positions against the restricted zone catalog.
type GeofenceEvaluator interface {
	Evaluate(ctx context.Context, lat, lon float64) (*gfmodels.Evaluation, error)
}

type Service struct {
	store     Store
	locations LocationReader
	scores    ScoreAdjuster
	geofence  GeofenceEvaluator
	runner    *detect.Runner
	locks     *subjectlock.KeyedMutex
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher *events.Publisher
	tracer    trace.Tracer
	cfg       config.Detection
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEventPublisher(p *events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(store Store, locations LocationReader, scores ScoreAdjuster, geofence GeofenceEvaluator, cfg config.Detection, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "anomaly store is required")
	}
	if locations == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "location reader is required")
	}
	if scores == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "score adjuster is required")
	}
	if geofence == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "geofence evaluator is required")
	}
	s := &Service{
		store:     store,
		locations: locations,
		scores:    scores,
		geofence:  geofence,
		runner:    detect.NewRunner(cfg),
		locks:     subjectlock.New(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("trailguard/anomaly"),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DetectionPass runs every detector over the subject's recent window, opens
// anomalies for the signals that are not already covered by an active one of
// the same type, and applies the score deductions for the new ones. The
// result carries the currently-true signals and the subject's full active
// anomaly set, tagged separately so callers can tell "detected now" from
// "already active".
func (s *Service) DetectionPass(ctx context.Context, subjectID id.SubjectID) (*models.PassResult, error) {
	if subjectID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}

	ctx, span := s.tracer.Start(ctx, "anomaly.DetectionPass",
		trace.WithAttributes(attribute.String("subject_id", subjectID.String())))
	defer span.End()

	started := time.Now()
	defer func() { s.metrics.ObservePass(time.Since(started)) }()

	window, err := s.locations.RecentWindow(ctx, subjectID, s.cfg.WindowSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load location window")
	}
	if len(window) == 0 {
		// No pings means no basis for any signal, including inactivity.
		return &models.PassResult{
			Status:      models.PassStatusNoData,
			DetectedNow: []detect.Signal{},
			Anomalies:   []models.Anomaly{},
		}, nil
	}

	waypoints, err := s.locations.Waypoints(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load itinerary")
	}

	now := requestcontext.Now(ctx)
	signals, failures := s.runner.Run(ctx, now, window, waypoints)
	for _, f := range failures {
		s.metrics.IncDetectorFailure(f.Detector)
		s.logger.ErrorContext(ctx, "detector failed, pass continues",
			"subject_id", subjectID,
			"detector", f.Detector,
			"error", f.Err.Error(),
		)
	}

	// The geofence check rides along with every pass, evaluated at the most
	// recent position. Its failure is isolated like any detector's.
	latest := window[0]
	if breach, err := s.breachSignal(ctx, latest.Latitude, latest.Longitude); err != nil {
		s.metrics.IncDetectorFailure(string(detect.TypeGeofenceBreach))
		s.logger.ErrorContext(ctx, "geofence evaluation failed, pass continues",
			"subject_id", subjectID,
			"error", err.Error(),
		)
	} else if breach != nil {
		signals = append(signals, *breach)
	}

	span.SetAttributes(attribute.Int("signals", len(signals)))

	if _, err := s.openAnomalies(ctx, subjectID, signals, now); err != nil {
		return nil, err
	}

	active, err := s.activeForSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	result := &models.PassResult{
		Status:      models.PassStatusNormal,
		DetectedNow: signals,
		Anomalies:   active,
	}
	if result.DetectedNow == nil {
		result.DetectedNow = []detect.Signal{}
	}
	if len(signals) > 0 {
		result.Status = models.PassStatusAnomalous
	}
	return result, nil
}

// activeForSubject returns the subject's active anomalies, most recent first.
func (s *Service) activeForSubject(ctx context.Context, subjectID id.SubjectID) ([]models.Anomaly, error) {
	all, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list anomalies")
	}
	active := make([]models.Anomaly, 0, len(all))
	for _, a := range all {
		if a.Status == models.StatusActive {
			active = append(active, a)
		}
	}
	return active, nil
}

// Resolve moves an anomaly into a terminal state. Resolving restores half of
// the original deduction; marking a false positive restores nothing, since
// the detection itself was wrong rather than the danger passing.
func (s *Service) Resolve(ctx context.Context, anomalyID id.AnomalyID, rawStatus, notes string) (models.Anomaly, error) {
	status, err := models.ParseResolutionStatus(rawStatus)
	if err != nil {
		return models.Anomaly{}, err
	}

	anomaly, err := s.store.GetByID(ctx, anomalyID)
	if err != nil {
		return models.Anomaly{}, err
	}

	defer s.locks.Lock(anomaly.SubjectID)()

	// Re-read under the subject lock so two concurrent resolutions of the
	// same anomaly cannot both restore score.
	anomaly, err = s.store.GetByID(ctx, anomalyID)
	if err != nil {
		return models.Anomaly{}, err
	}
	if anomaly.Status.IsTerminal() {
		return models.Anomaly{}, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("anomaly is already %s", anomaly.Status))
	}

	resolvedAt := requestcontext.Now(ctx)
	metadata := mergeResolutionNotes(anomaly.Metadata, notes)

	if err := s.store.UpdateResolution(ctx, anomalyID, status, resolvedAt, metadata); err != nil {
		return models.Anomaly{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update anomaly")
	}

	if status == models.StatusResolved {
		if restore := -anomaly.Severity.Deduction() / 2; restore != 0 {
			if _, err := s.scores.ApplyDelta(ctx, anomaly.SubjectID, restore, "anomaly_resolved"); err != nil {
				s.logger.ErrorContext(ctx, "score restore failed after resolution",
					"anomaly_id", anomalyID,
					"subject_id", anomaly.SubjectID,
					"error", err.Error(),
				)
			}
		}
	}

	action := events.ActionAnomalyResolved
	if status == models.StatusFalsePositive {
		action = events.ActionAnomalyFalsePositive
	}
	s.emit(ctx, events.Event{
		Action:      action,
		SubjectID:   anomaly.SubjectID,
		AnomalyID:   anomalyID.String(),
		AnomalyType: string(anomaly.Type),
		Severity:    string(anomaly.Severity),
	})
	s.metrics.IncAnomalyClosed(string(status))

	anomaly.Status = status
	anomaly.ResolvedAt = &resolvedAt
	anomaly.Metadata = metadata

	s.logger.InfoContext(ctx, "anomaly closed",
		"anomaly_id", anomalyID,
		"subject_id", anomaly.SubjectID,
		"type", anomaly.Type,
		"status", status,
	)
	return anomaly, nil
}

// CheckGeofence evaluates an explicit position for a subject. A breach opens
// a geofence anomaly through the same dedup and deduction path as a pass.
func (s *Service) CheckGeofence(ctx context.Context, subjectID id.SubjectID, lat, lon float64) (*gfmodels.Evaluation, error) {
	if subjectID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}

	ctx, span := s.tracer.Start(ctx, "anomaly.CheckGeofence",
		trace.WithAttributes(attribute.String("subject_id", subjectID.String())))
	defer span.End()

	eval, err := s.geofence.Evaluate(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	s.metrics.IncGeofenceCheck(eval.Breached)
	span.SetAttributes(attribute.Bool("breached", eval.Breached))

	if eval.Breached {
		signal := signalFromBreach(eval, lat, lon)
		if _, err := s.openAnomalies(ctx, subjectID, []detect.Signal{*signal}, requestcontext.Now(ctx)); err != nil {
			return nil, err
		}
	}
	return eval, nil
}

// GetBySubject returns all of a subject's anomalies, most recent first.
func (s *Service) GetBySubject(ctx context.Context, subjectID id.SubjectID) ([]models.Anomaly, error) {
	if subjectID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	anomalies, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list anomalies")
	}
	return anomalies, nil
}

// List returns anomalies across subjects, optionally filtered by status.
func (s *Service) List(ctx context.Context, status models.Status, limit int) ([]models.Anomaly, error) {
	if status != "" && !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid status filter")
	}
	anomalies, err := s.store.List(ctx, status, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list anomalies")
	}
	return anomalies, nil
}

// openAnomalies inserts one anomaly per signal that is not already covered by
// an active anomaly of the same type, deducting score for each new one. The
// check-then-insert runs under the subject's lock so concurrent passes for
// the same subject cannot double-open.
func (s *Service) openAnomalies(ctx context.Context, subjectID id.SubjectID, signals []detect.Signal, now time.Time) ([]models.Anomaly, error) {
	if len(signals) == 0 {
		return nil, nil
	}

	defer s.locks.Lock(subjectID)()

	var created []models.Anomaly
	for _, sig := range signals {
		anomaly := models.Anomaly{
			ID:          id.NewAnomalyID(),
			SubjectID:   subjectID,
			Type:        sig.Type,
			Severity:    sig.Severity,
			Description: sig.Description,
			Latitude:    sig.Latitude,
			Longitude:   sig.Longitude,
			Metadata:    sig.Metadata,
			Status:      models.StatusActive,
			DetectedAt:  now,
		}

		inserted, err := s.store.InsertIfNoActive(ctx, anomaly)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record anomaly")
		}
		if !inserted {
			// An active anomaly of this type already covers the condition;
			// no duplicate row and no second deduction.
			continue
		}
		created = append(created, anomaly)

		score, err := s.scores.ApplyDelta(ctx, subjectID, sig.Severity.Deduction(), string(sig.Type))
		if err != nil {
			s.logger.ErrorContext(ctx, "score deduction failed for new anomaly",
				"anomaly_id", anomaly.ID,
				"subject_id", subjectID,
				"error", err.Error(),
			)
		}

		action := events.ActionAnomalyCreated
		if sig.Type == detect.TypeGeofenceBreach {
			action = events.ActionGeofenceBreach
		}
		s.emit(ctx, events.Event{
			Action:      action,
			SubjectID:   subjectID,
			AnomalyID:   anomaly.ID.String(),
			AnomalyType: string(sig.Type),
			Severity:    string(sig.Severity),
			Score:       score,
		})
		s.metrics.IncAnomalyCreated(string(sig.Type), string(sig.Severity))

		s.logger.InfoContext(ctx, "anomaly opened",
			"anomaly_id", anomaly.ID,
			"subject_id", subjectID,
			"type", sig.Type,
			"severity", sig.Severity,
		)
	}
	return created, nil
}

// breachSignal evaluates the geofence at a position and converts any breach
// into a signal, severity taken from the dominant zone's risk.
func (s *Service) breachSignal(ctx context.Context, lat, lon float64) (*detect.Signal, error) {
	eval, err := s.geofence.Evaluate(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	s.metrics.IncGeofenceCheck(eval.Breached)
	if !eval.Breached {
		return nil, nil
	}
	return signalFromBreach(eval, lat, lon), nil
}

func signalFromBreach(eval *gfmodels.Evaluation, lat, lon float64) *detect.Signal {
	dominant := eval.Dominant
	names := make([]string, 0, len(eval.BreachedZones))
	for _, zd := range eval.BreachedZones {
		names = append(names, zd.Zone.Name)
	}
	return &detect.Signal{
		Type:        detect.TypeGeofenceBreach,
		Severity:    dominant.Risk.Severity(),
		Description: fmt.Sprintf("inside restricted zone %q (%s risk)", dominant.Name, dominant.Risk),
		Latitude:    lat,
		Longitude:   lon,
		Metadata: map[string]any{
			"zone_id":        dominant.ID.String(),
			"zone_name":      dominant.Name,
			"risk_level":     eval.RiskLevel,
			"breached_zones": names,
		},
	}
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	_ = s.publisher.Emit(ctx, event)
}

// mergeResolutionNotes copies the metadata and records operator notes under
// resolution_notes without clobbering anything a detector wrote.
func mergeResolutionNotes(metadata map[string]any, notes string) map[string]any {
	if notes == "" {
		return metadata
	}
	merged := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		merged[k] = v
	}
	if _, exists := merged["resolution_notes"]; !exists {
		merged["resolution_notes"] = notes
	}
	return merged
}
