package track

import (
	"strconv"

	"github.com/okian/trekhums/internal/domain/model"
	"github.com/okian/trekhums/internal/domain/types"
)

// Channel is one physical quantity column of the track.
type Channel struct {
	Name  string
	Unit  string
	value func(model.Sample) (string, bool)
}

// Channels returns the channels reported in a usage message, in emission order.
func Channels() []Channel {
	return []Channel{
		{Name: "BIKE GPS LATITUDE", Unit: types.UnitDegree, value: func(s model.Sample) (string, bool) { return float(s.Latitude) }},
		{Name: "BIKE GPS LONGITUDE", Unit: types.UnitDegree, value: func(s model.Sample) (string, bool) { return float(s.Longitude) }},
		{Name: "BIKE GPS ELEVATION", Unit: types.UnitMetre, value: func(s model.Sample) (string, bool) { return float(s.Elevation) }},
		{Name: "CYCLIST HEART RATE", Unit: types.UnitPerMinute, value: func(s model.Sample) (string, bool) { return integer(s.HeartRate) }},
		{Name: "BIKE CADENCE", Unit: types.UnitPerMinute, value: func(s model.Sample) (string, bool) { return integer(s.Cadence) }},
	}
}

// Series returns the readings of c in row order. Rows without a value for
// c (absent or masked) are skipped for this channel only.
func (t *Track) Series(c Channel) []model.Reading {
	if c.value == nil {
		return nil
	}
	out := make([]model.Reading, 0, len(t.samples))
	for _, s := range t.samples {
		v, ok := c.value(s)
		if !ok {
			continue
		}
		out = append(out, model.NewReading(s.Timestamp, v))
	}
	return out
}

func float(v *float64) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.FormatFloat(*v, 'f', -1, 64), true
}

func integer(v *int) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.Itoa(*v), true
}
