package detect

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	locmodels "trailguard/internal/location/models"
	"trailguard/internal/platform/config"
)

// Runner executes the signal detectors for one pass. Detectors are mutually
// independent, so they run concurrently; a failure in one is isolated and
// reported without suppressing the others' signals.
type Runner struct {
	cfg config.Detection
}

func NewRunner(cfg config.Detection) *Runner {
	return &Runner{cfg: cfg}
}

// Failure records one isolated detector failure within a pass.
type Failure struct {
	Detector string
	Err      error
}

// Run evaluates all ping-window detectors and returns the currently-true
// signals plus any isolated failures. The returned signals are ordered
// deterministically (inactivity, route_deviation, altitude_drop,
// speed_anomaly) regardless of completion order.
func (r *Runner) Run(ctx context.Context, now time.Time, window []locmodels.LocationPing, waypoints []locmodels.ItineraryWaypoint) ([]Signal, []Failure) {
	type slot struct {
		name string
		fn   func() *Signal
	}
	slots := []slot{
		{string(TypeInactivity), func() *Signal { return Inactivity(r.cfg, now, window) }},
		{string(TypeRouteDeviation), func() *Signal { return RouteDeviation(r.cfg, window, waypoints) }},
		{string(TypeAltitudeDrop), func() *Signal { return AltitudeDrop(r.cfg, window) }},
		{string(TypeSpeedAnomaly), func() *Signal { return SpeedAnomaly(r.cfg, window) }},
	}

	results := make([]*Signal, len(slots))
	failures := make([]*Failure, len(slots))

	g, _ := errgroup.WithContext(ctx)
	for i, s := range slots {
		i, s := i, s
		g.Go(func() error {
			// A detector must never take the pass down: malformed data that
			// panics one detector is recorded as an isolated failure.
			defer func() {
				if rec := recover(); rec != nil {
					failures[i] = &Failure{Detector: s.name, Err: fmt.Errorf("detector panic: %v", rec)}
				}
			}()
			results[i] = s.fn()
			return nil
		})
	}
	_ = g.Wait()

	signals := make([]Signal, 0, len(results))
	for _, res := range results {
		if res != nil {
			signals = append(signals, *res)
		}
	}
	var failed []Failure
	for _, f := range failures {
		if f != nil {
			failed = append(failed, *f)
		}
	}
	return signals, failed
}
