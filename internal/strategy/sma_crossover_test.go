package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-fleet/internal/series"
	"github.com/rxtech-lab/argo-fleet/internal/types"
)

type SMACrossoverTestSuite struct {
	suite.Suite
}

func TestSMACrossoverSuite(t *testing.T) {
	suite.Run(t, new(SMACrossoverTestSuite))
}

func (s *SMACrossoverTestSuite) seriesFromCloses(closes []float64) *series.Series {
	base := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	sr := series.NewSeries(len(closes) + 10)

	for i, c := range closes {
		sr.Add(types.Bar{
			Symbol: "AAPL",
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		})
	}

	return sr
}

func (s *SMACrossoverTestSuite) TestName() {
	s.Equal("sma_crossover_20", NewSMACrossover(20).Name())
	s.Equal("sma_crossover_5", NewSMACrossover(5).Name())
}

func (s *SMACrossoverTestSuite) TestDefaultPeriod() {
	s.Equal("sma_crossover_20", NewSMACrossover(0).Name())
	s.Equal("sma_crossover_20", NewSMACrossover(-3).Name())
}

func (s *SMACrossoverTestSuite) TestEmptySeries() {
	d := NewSMACrossover(20)
	sig := d.Evaluate(series.NewSeries(30))
	s.Equal(types.SignalTypeNoAction, sig.Type)
}

func (s *SMACrossoverTestSuite) TestTooFewBars() {
	d := NewSMACrossover(20)

	// Exactly period bars is still one short
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}

	sig := d.Evaluate(s.seriesFromCloses(closes))
	s.Equal(types.SignalTypeNoAction, sig.Type)
}

func (s *SMACrossoverTestSuite) TestCrossoverFires() {
	d := NewSMACrossover(20)

	// Nineteen flat closes, one dip below the average, then a pop above it
	closes := make([]float64, 0, 21)
	for i := 0; i < 19; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 99, 101)

	sig := d.Evaluate(s.seriesFromCloses(closes))
	s.Equal(types.SignalTypeEnterLong, sig.Type)
	s.Equal("AAPL", sig.Symbol)
	s.Equal("sma_crossover_20", sig.Name)
	s.NotNil(sig.RawValue)
}

func (s *SMACrossoverTestSuite) TestMonotonicRiseDoesNotFire() {
	d := NewSMACrossover(20)

	// A steady rise keeps every close above its average; the previous close
	// was never below, so no crossover occurs
	closes := make([]float64, 0, 25)
	for i := 0; i < 25; i++ {
		closes = append(closes, 100+float64(i))
	}

	sig := d.Evaluate(s.seriesFromCloses(closes))
	s.Equal(types.SignalTypeNoAction, sig.Type)
}

func (s *SMACrossoverTestSuite) TestFlatSeriesDoesNotFire() {
	d := NewSMACrossover(20)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}

	sig := d.Evaluate(s.seriesFromCloses(closes))
	s.Equal(types.SignalTypeNoAction, sig.Type)
}

func (s *SMACrossoverTestSuite) TestStillBelowAverageDoesNotFire() {
	d := NewSMACrossover(20)

	// Falling closes stay below the average on both bars
	closes := make([]float64, 0, 22)
	for i := 0; i < 22; i++ {
		closes = append(closes, 100-float64(i))
	}

	sig := d.Evaluate(s.seriesFromCloses(closes))
	s.Equal(types.SignalTypeNoAction, sig.Type)
}

func (s *SMACrossoverTestSuite) TestDeterministic() {
	d := NewSMACrossover(20)

	closes := make([]float64, 0, 21)
	for i := 0; i < 19; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 99, 101)

	sr := s.seriesFromCloses(closes)
	first := d.Evaluate(sr)
	second := d.Evaluate(sr)
	s.Equal(first.Type, second.Type)
	s.Equal(first.RawValue, second.RawValue)
}

func (s *SMACrossoverTestSuite) TestShortPeriod() {
	d := NewSMACrossover(3)

	// avg(100,100,99)=99.67 > 99 and avg(100,99,102)=100.33 < 102
	sig := d.Evaluate(s.seriesFromCloses([]float64{100, 100, 99, 102}))
	s.Equal(types.SignalTypeEnterLong, sig.Type)
}
