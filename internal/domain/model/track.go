// Package model contains domain models passed between layers.
package model

import "time"

// Sample is one row of a tabular track. Measured fields are optional: a nil
// field was either absent from the source or masked by redaction.
type Sample struct {
	Timestamp time.Time
	Longitude *float64 // degrees
	Latitude  *float64 // degrees
	Elevation *float64 // metres
	HeartRate *int     // beats per minute
	Cadence   *int     // revolutions per minute
}

// Positioned reports whether the sample still carries any GPS or elevation value.
func (s Sample) Positioned() bool {
	return s.Longitude != nil || s.Latitude != nil || s.Elevation != nil
}

// MeasurementValue is one recorded value of a measurement point.
type MeasurementValue struct {
	Date          string // YYYY-MM-DD
	Time          string // hh:mm:ss.sssZ
	Determination string // value determination means, e.g. MEAS
	Unit          string
	Value         string
}

// MeasurementPoint is a named physical quantity channel with its values.
type MeasurementPoint struct {
	UID    string
	Name   string
	Values []MeasurementValue
}

// SerialProduct identifies the serialized product variant the measurement
// points belong to (the bicycle).
type SerialProduct struct {
	UID       string
	ProductID string
	VariantID string
	SerialID  string
}

// Layouts of the recDate date and time elements.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05.000Z"
)

// Reading is one (date, time, value) entry of a channel series.
type Reading struct {
	Date  string
	Time  string
	Value string
}

// NewReading renders ts in UTC using the recDate layouts.
func NewReading(ts time.Time, value string) Reading {
	ts = ts.UTC()
	return Reading{Date: ts.Format(DateLayout), Time: ts.Format(TimeLayout), Value: value}
}
