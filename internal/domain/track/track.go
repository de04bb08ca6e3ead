// Package track holds the tabular trek telemetry and its privacy redaction.
//
// A Track is built once from an external source and is immutable afterwards,
// except for a single redaction pass that masks the GPS and elevation fields
// of the rows falling inside a time window. Masked rows are kept so that row
// positions stay addressable.
package track

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/trekhums/internal/domain/model"
)

const earthRadiusKm = 6371

// Track is an ordered, strictly increasing sequence of samples.
type Track struct {
	samples  []model.Sample
	redacted bool
	masked   int
}

// New validates samples and returns a Track owning a copy of them.
func New(samples []model.Sample) (*Track, error) {
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	for i := 1; i < len(samples); i++ {
		if !samples[i].Timestamp.After(samples[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: row %d at %s follows %s", ErrNotMonotonic, i,
				samples[i].Timestamp.Format(time.RFC3339), samples[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	own := make([]model.Sample, len(samples))
	copy(own, samples)
	return &Track{samples: own}, nil
}

// Len returns the number of rows, masked rows included.
func (t *Track) Len() int { return len(t.samples) }

// Samples returns a copy of the rows.
func (t *Track) Samples() []model.Sample {
	out := make([]model.Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Start returns the first timestamp.
func (t *Track) Start() time.Time { return t.samples[0].Timestamp }

// End returns the last timestamp.
func (t *Track) End() time.Time { return t.samples[len(t.samples)-1].Timestamp }

// Redacted reports whether the redaction pass already ran.
func (t *Track) Redacted() bool { return t.redacted }

// Window is a redaction window relative to the first sample. It includes
// its start and excludes its end.
type Window struct {
	Offset   time.Duration
	Duration time.Duration
}

// Redact masks longitude, latitude and elevation of every sample whose
// timestamp lies in [start+Offset, start+Offset+Duration). It may run only
// once per track; a zero-length window still consumes that single pass.
// It returns the number of masked rows.
func (t *Track) Redact(w Window) (int, error) {
	if t.redacted {
		return 0, ErrAlreadyRedacted
	}
	if w.Offset < 0 || w.Duration < 0 {
		return 0, fmt.Errorf("%w: offset=%s duration=%s", ErrInvalidWindow, w.Offset, w.Duration)
	}
	t.redacted = true

	from := t.Start().Add(w.Offset)
	to := from.Add(w.Duration)
	n := 0
	for i := range t.samples {
		ts := t.samples[i].Timestamp
		if ts.Before(from) || !ts.Before(to) {
			continue
		}
		t.samples[i].Longitude = nil
		t.samples[i].Latitude = nil
		t.samples[i].Elevation = nil
		n++
	}
	t.masked = n
	return n, nil
}

// Distance returns the haversine length of the positioned part of the track
// in metres. Masked rows break the path; the gap is not counted.
func (t *Track) Distance() float64 {
	var total float64
	var prev *model.Sample
	for i := range t.samples {
		s := &t.samples[i]
		if s.Latitude == nil || s.Longitude == nil {
			prev = nil
			continue
		}
		if prev != nil {
			total += haversineKm(*prev.Latitude, *prev.Longitude, *s.Latitude, *s.Longitude)
		}
		prev = s
	}
	return total * 1000
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Summary is a short description of a track used in logs and remarks.
type Summary struct {
	Start     time.Time
	End       time.Time
	Samples   int
	Masked    int
	DistanceM float64
}

// Summary returns the track summary.
func (t *Track) Summary() Summary {
	return Summary{
		Start:     t.Start(),
		End:       t.End(),
		Samples:   len(t.samples),
		Masked:    t.masked,
		DistanceM: t.Distance(),
	}
}
