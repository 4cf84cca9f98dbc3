// Package strategy contains entry signal detectors. A detector is a pure
// function of the bar series: it holds no position state and never talks to
// the broker, which keeps it deterministic and trivially testable.
package strategy

import (
	"github.com/rxtech-lab/argo-fleet/internal/series"
	"github.com/rxtech-lab/argo-fleet/internal/types"
)

// Detector evaluates a bar series and emits an entry signal.
type Detector interface {
	// Name returns the name of the detector.
	Name() string
	// Evaluate inspects the series and returns a signal. Evaluate never
	// errors; a series too short to evaluate yields a no-action signal.
	Evaluate(s *series.Series) types.Signal
}
