package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"trailguard/internal/anomaly/service"
	"trailguard/internal/anomaly/store"
	gfservice "trailguard/internal/geofence/service"
	gfstore "trailguard/internal/geofence/store"
	locmodels "trailguard/internal/location/models"
	locstore "trailguard/internal/location/store"
	"trailguard/internal/platform/config"
	scoreservice "trailguard/internal/safetyscore/service"
	scorestore "trailguard/internal/safetyscore/store"
	id "trailguard/pkg/domain"
	"trailguard/pkg/requestcontext"
)

type AnomalyHandlerSuite struct {
	suite.Suite
	router    chi.Router
	svc       *service.Service
	locations *locstore.InMemoryLocationStore
	now       time.Time
}

func TestAnomalyHandlerSuite(t *testing.T) {
	suite.Run(t, new(AnomalyHandlerSuite))
}

func (s *AnomalyHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Detection{
		WindowSize:           10,
		InactivityThreshold:  30 * time.Minute,
		MaxPlausibleSpeedMPS: 55,
	}

	s.locations = locstore.NewInMemoryLocationStore()
	scores, err := scoreservice.New(scorestore.NewInMemoryScoreStore(), scoreservice.WithLogger(logger))
	s.Require().NoError(err)
	geofence, err := gfservice.New(gfstore.NewInMemoryZoneStore(), cfg, gfservice.WithLogger(logger))
	s.Require().NoError(err)

	svc, err := service.New(store.NewInMemoryAnomalyStore(), s.locations, scores, geofence, cfg, service.WithLogger(logger))
	s.Require().NoError(err)
	s.svc = svc

	// Pings must be recent against the wall clock: the GET endpoint runs a
	// fresh pass, and stale pings would trip the inactivity detector.
	s.now = time.Now().UTC()
	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

// openAnomaly seeds a GPS jump and runs a pass, returning the anomaly it
// opened.
func (s *AnomalyHandlerSuite) openAnomaly(subjectID id.SubjectID) id.AnomalyID {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	s.Require().NoError(s.locations.Insert(ctx, locmodels.LocationPing{
		SubjectID: subjectID, Latitude: 28.6, Longitude: 77.2, Timestamp: s.now.Add(-time.Minute),
	}))
	s.Require().NoError(s.locations.Insert(ctx, locmodels.LocationPing{
		SubjectID: subjectID, Latitude: 28.7, Longitude: 77.2, Timestamp: s.now,
	}))
	result, err := s.svc.DetectionPass(ctx, subjectID)
	s.Require().NoError(err)
	s.Require().Len(result.Anomalies, 1)
	return result.Anomalies[0].ID
}

func (s *AnomalyHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AnomalyHandlerSuite) TestGetRunsPassAndReturnsActiveSet() {
	s.openAnomaly("subject-1")

	w := s.do(http.MethodGet, "/anomalies/subject-1", nil)
	s.Equal(http.StatusOK, w.Code)

	var resp struct {
		Status      string           `json:"status"`
		DetectedNow []map[string]any `json:"detected_now"`
		Anomalies   []map[string]any `json:"anomalies"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("anomalies_detected", resp.Status)
	s.Require().Len(resp.DetectedNow, 1, "the GPS jump is still the latest window")
	s.Require().Len(resp.Anomalies, 1)
	s.Equal("speed_anomaly", resp.Anomalies[0]["type"])
	s.Equal("active", resp.Anomalies[0]["status"])
}

func (s *AnomalyHandlerSuite) TestGetUnknownSubjectReportsNoData() {
	w := s.do(http.MethodGet, "/anomalies/subject-unknown", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"no_data","detected_now":[],"anomalies":[]}`, w.Body.String())
}

func (s *AnomalyHandlerSuite) TestListFiltersByStatus() {
	first := s.openAnomaly("subject-a")
	s.openAnomaly("subject-b")

	resolved := s.do(http.MethodPut, "/anomalies/"+first.String()+"/resolve",
		map[string]string{"status": "resolved"})
	s.Require().Equal(http.StatusOK, resolved.Code)

	w := s.do(http.MethodGet, "/anomalies?status=active&limit=50", nil)
	s.Equal(http.StatusOK, w.Code)

	var resp struct {
		Anomalies []map[string]any `json:"anomalies"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Anomalies, 1)
	s.Equal("subject-b", resp.Anomalies[0]["subject_id"])
}

func (s *AnomalyHandlerSuite) TestListRejectsNonNumericLimit() {
	w := s.do(http.MethodGet, "/anomalies?limit=many", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AnomalyHandlerSuite) TestResolveHappyPath() {
	anomalyID := s.openAnomaly("subject-r")

	w := s.do(http.MethodPut, "/anomalies/"+anomalyID.String()+"/resolve",
		map[string]string{"status": "resolved", "notes": "phone contact made"})
	s.Equal(http.StatusOK, w.Code)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("resolved", resp["status"])
	s.NotEmpty(resp["resolved_at"])
	metadata := resp["metadata"].(map[string]any)
	s.Equal("phone contact made", metadata["resolution_notes"])
}

func (s *AnomalyHandlerSuite) TestResolveUnknownAnomalyIs404() {
	w := s.do(http.MethodPut, "/anomalies/"+id.NewAnomalyID().String()+"/resolve",
		map[string]string{"status": "resolved"})
	s.Equal(http.StatusNotFound, w.Code)

	var resp map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("not_found", resp["error"])
}

func (s *AnomalyHandlerSuite) TestResolveMalformedIDIs400() {
	w := s.do(http.MethodPut, "/anomalies/not-a-uuid/resolve",
		map[string]string{"status": "resolved"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AnomalyHandlerSuite) TestResolveInvalidStatusIs400() {
	anomalyID := s.openAnomaly("subject-s")

	w := s.do(http.MethodPut, "/anomalies/"+anomalyID.String()+"/resolve",
		map[string]string{"status": "closed"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AnomalyHandlerSuite) TestResolveTwiceIs409() {
	anomalyID := s.openAnomaly("subject-t")

	w := s.do(http.MethodPut, "/anomalies/"+anomalyID.String()+"/resolve",
		map[string]string{"status": "resolved"})
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPut, "/anomalies/"+anomalyID.String()+"/resolve",
		map[string]string{"status": "false_positive"})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *AnomalyHandlerSuite) TestResolveMalformedBodyIs400() {
	anomalyID := s.openAnomaly("subject-u")

	req := httptest.NewRequest(http.MethodPut, "/anomalies/"+anomalyID.String()+"/resolve",
		bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)
}
