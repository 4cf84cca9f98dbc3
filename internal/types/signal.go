package types

import "time"

type SignalType string

const (
	// SignalTypeEnterLong tells the controller to open a long position
	SignalTypeEnterLong SignalType = "enter_long"
	// SignalTypeNoAction tells the controller to take no action
	SignalTypeNoAction SignalType = "no_action"
)

type Signal struct {
	// Time is the time of the signal
	Time time.Time
	// Type is the type of the signal
	Type SignalType
	// Name is the name of the detector that produced the signal
	Name string
	// Reason is the reason for the signal
	Reason string
	// RawValue is the raw value behind the signal (e.g. moving average levels)
	RawValue any
	// Symbol is the symbol of the signal
	Symbol string
}
