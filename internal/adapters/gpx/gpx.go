// Package gpx decodes Garmin GPX activity exports into track samples.
//
// Every trkpt element contributes one sample: lat/lon attributes, the ele
// and time children, and heart rate and cadence from the Garmin
// TrackPointExtension. Elements are matched by local name so any namespace
// prefix is accepted.
package gpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/okian/trekhums/internal/domain/model"
	"github.com/okian/trekhums/internal/domain/track"
)

// Sentinel kinds for decode errors.
var (
	ErrNoTrackPoints = errors.New("gpx document has no track points")
	ErrMalformed     = errors.New("malformed gpx document")
)

// Decode reads every track point of the document in r, in document order.
func Decode(ctx context.Context, r io.Reader) ([]model.Sample, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	points := doc.FindElements("//trkpt")
	if len(points) == 0 {
		return nil, ErrNoTrackPoints
	}

	samples := make([]model.Sample, 0, len(points))
	for i, pt := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := sample(pt)
		if err != nil {
			return nil, fmt.Errorf("%w: trkpt[%d]: %v", ErrMalformed, i+1, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Load decodes the file at path into a track.
func Load(ctx context.Context, path string) (*track.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := Decode(ctx, f)
	if err != nil {
		return nil, err
	}
	return track.New(samples)
}

func sample(pt *etree.Element) (model.Sample, error) {
	var s model.Sample

	raw := text(pt, "time")
	if raw == "" {
		return s, errors.New("missing time")
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return s, fmt.Errorf("time %q: %w", raw, err)
	}
	s.Timestamp = ts.UTC()

	if s.Latitude, err = optFloat(pt.SelectAttrValue("lat", "")); err != nil {
		return s, fmt.Errorf("lat: %w", err)
	}
	if s.Longitude, err = optFloat(pt.SelectAttrValue("lon", "")); err != nil {
		return s, fmt.Errorf("lon: %w", err)
	}
	if s.Elevation, err = optFloat(text(pt, "ele")); err != nil {
		return s, fmt.Errorf("ele: %w", err)
	}
	if s.HeartRate, err = optInt(text(pt, "extensions/TrackPointExtension/hr")); err != nil {
		return s, fmt.Errorf("hr: %w", err)
	}
	if s.Cadence, err = optInt(text(pt, "extensions/TrackPointExtension/cad")); err != nil {
		return s, fmt.Errorf("cad: %w", err)
	}
	return s, nil
}

func text(el *etree.Element, path string) string {
	found := el.FindElement(path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

func optFloat(v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func optInt(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
