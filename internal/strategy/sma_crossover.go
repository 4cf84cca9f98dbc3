package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-fleet/internal/series"
	"github.com/rxtech-lab/argo-fleet/internal/types"
)

// DefaultSMAPeriod is the moving average window used when no period is configured.
const DefaultSMAPeriod = 20

// SMACrossover signals a long entry when the close crosses above its simple
// moving average: the previous close was below the previous average and the
// latest close is above the latest average. It needs period+1 bars before it
// can evaluate; until then it returns no action.
type SMACrossover struct {
	period int
}

var _ Detector = (*SMACrossover)(nil)

// NewSMACrossover creates a crossover detector with the given window.
// Non-positive periods fall back to DefaultSMAPeriod.
func NewSMACrossover(period int) *SMACrossover {
	if period <= 0 {
		period = DefaultSMAPeriod
	}

	return &SMACrossover{
		period: period,
	}
}

// Name returns the name of the detector.
func (d *SMACrossover) Name() string {
	return fmt.Sprintf("sma_crossover_%d", d.period)
}

// Evaluate checks the latest two closes against their moving averages.
func (d *SMACrossover) Evaluate(s *series.Series) types.Signal {
	last, ok := s.Last()
	if !ok {
		return d.noAction(types.Bar{}) //nolint:exhaustruct // empty series carries no bar
	}

	// period+1 closes are needed to compute two consecutive averages
	if s.Len() < d.period+1 {
		return d.noAction(last)
	}

	closes := s.Closes(d.period + 1)
	prevClose := closes[len(closes)-2]
	currClose := closes[len(closes)-1]
	prevAvg := mean(closes[:d.period])
	currAvg := mean(closes[1:])

	if prevClose < prevAvg && currClose > currAvg {
		return types.Signal{
			Time:   last.Time,
			Type:   types.SignalTypeEnterLong,
			Name:   d.Name(),
			Reason: "close crossed above moving average",
			RawValue: map[string]float64{
				"prev_close": prevClose,
				"prev_avg":   prevAvg,
				"curr_close": currClose,
				"curr_avg":   currAvg,
			},
			Symbol: last.Symbol,
		}
	}

	return d.noAction(last)
}

func (d *SMACrossover) noAction(bar types.Bar) types.Signal {
	return types.Signal{
		Time:     bar.Time,
		Type:     types.SignalTypeNoAction,
		Name:     d.Name(),
		Reason:   "",
		RawValue: nil,
		Symbol:   bar.Symbol,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
