// Package measure encodes channel series into S5000F measurement points.
package measure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/trekhums/internal/domain/ident"
	"github.com/okian/trekhums/internal/domain/model"
	"github.com/okian/trekhums/internal/domain/track"
	"github.com/okian/trekhums/internal/domain/types"
)

// Sentinel kinds for encoder errors.
var (
	ErrInvalidChannel = errors.New("invalid measurement channel")
	ErrInvalidProduct = errors.New("invalid serial product")
)

// Option applies a configuration option to the Encoder.
type Option func(*Encoder)

// WithDeriver sets the identifier deriver.
func WithDeriver(d ident.Deriver) Option {
	return func(e *Encoder) {
		if d != nil {
			e.deriver = d
		}
	}
}

// Encoder turns named series into measurement points.
type Encoder struct {
	deriver ident.Deriver
}

// New constructs an Encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{deriver: ident.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode builds the measurement point for one channel. Values keep the
// order of series; nothing is sorted or deduplicated here, the track
// already guarantees chronological rows.
func (e *Encoder) Encode(name, unit string, series []model.Reading) (model.MeasurementPoint, error) {
	if strings.TrimSpace(name) == "" {
		return model.MeasurementPoint{}, fmt.Errorf("%w: empty name", ErrInvalidChannel)
	}
	if strings.TrimSpace(unit) == "" {
		return model.MeasurementPoint{}, fmt.Errorf("%w: %q has no unit", ErrInvalidChannel, name)
	}

	values := make([]model.MeasurementValue, len(series))
	for i, r := range series {
		values[i] = model.MeasurementValue{
			Date:          r.Date,
			Time:          r.Time,
			Determination: types.DeterminationMeasured,
			Unit:          unit,
			Value:         r.Value,
		}
	}
	return model.MeasurementPoint{
		UID:    e.deriver.Derive(ident.TagMeasurementPoint, name),
		Name:   name,
		Values: values,
	}, nil
}

// EncodeTrack encodes every channel of t that has at least one reading.
func (e *Encoder) EncodeTrack(t *track.Track) ([]model.MeasurementPoint, error) {
	var points []model.MeasurementPoint
	for _, c := range track.Channels() {
		series := t.Series(c)
		if len(series) == 0 {
			continue
		}
		p, err := e.Encode(c.Name, c.Unit, series)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// Product identifies the serialized product variant. Its uid is derived from
// "product:variant:serial".
func (e *Encoder) Product(productID, variantID, serialID string) (model.SerialProduct, error) {
	if productID == "" || variantID == "" || serialID == "" {
		return model.SerialProduct{}, fmt.Errorf("%w: product=%q variant=%q serial=%q",
			ErrInvalidProduct, productID, variantID, serialID)
	}
	seed := productID + ":" + variantID + ":" + serialID
	return model.SerialProduct{
		UID:       e.deriver.Derive(ident.TagSerialProduct, seed),
		ProductID: productID,
		VariantID: variantID,
		SerialID:  serialID,
	}, nil
}
