package types

// Position is a snapshot of a holding fetched from the broker. The controller
// never owns it; it is cached only long enough to price the matching sell.
type Position struct {
	Symbol        string  `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Quantity      float64 `yaml:"quantity" json:"quantity" csv:"quantity" validate:"gte=0"`
	AvgEntryPrice float64 `yaml:"avg_entry_price" json:"avg_entry_price" csv:"avg_entry_price" validate:"gte=0"`
}
