package types

import "time"

// Bar is a single immutable minute bar produced by the market data feed.
// Bars are appended to a series once and never mutated; a redelivered bar
// with the same start time overwrites the earlier copy.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Time   time.Time `yaml:"time" json:"time" csv:"time" validate:"required"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}
