package forecast

import "errors"

// ErrNotFitted is returned when Transform is called before the scaler has
// seen training data. This is a contract violation, never silently defaulted.
var ErrNotFitted = errors.New("scaler: transform called before fit")

// MinMaxScaler rescales each feature column to [0,1] using per-feature
// minimum and maximum captured at fit time. The fitted ranges are persisted
// with the model snapshot so inference uses training-time scale.
type MinMaxScaler struct {
	Min    [NumFeatures]float64 `json:"min"`
	Max    [NumFeatures]float64 `json:"max"`
	Fitted bool                 `json:"fitted"`
}

// NewMinMaxScaler returns an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// FitTransform computes per-feature min/max over rows and returns the scaled
// feature matrix.
func (s *MinMaxScaler) FitTransform(rows []Observation) [][NumFeatures]float64 {
	for f := 0; f < NumFeatures; f++ {
		s.Min[f] = 0
		s.Max[f] = 0
	}
	for i, row := range rows {
		v := row.Features()
		for f := 0; f < NumFeatures; f++ {
			if i == 0 || v[f] < s.Min[f] {
				s.Min[f] = v[f]
			}
			if i == 0 || v[f] > s.Max[f] {
				s.Max[f] = v[f]
			}
		}
	}
	s.Fitted = true

	scaled, _ := s.Transform(rows)
	return scaled
}

// Transform scales rows using the fitted ranges. Constant columns map to 0.
func (s *MinMaxScaler) Transform(rows []Observation) ([][NumFeatures]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	out := make([][NumFeatures]float64, len(rows))
	for i, row := range rows {
		v := row.Features()
		for f := 0; f < NumFeatures; f++ {
			span := s.Max[f] - s.Min[f]
			if span == 0 {
				out[i][f] = 0
				continue
			}
			out[i][f] = (v[f] - s.Min[f]) / span
		}
	}
	return out, nil
}

// ScaleValue maps a single raw value for feature index f into [0,1],
// clamped to the fitted range. Used during autoregressive rollout to feed
// predictions back into the input window.
func (s *MinMaxScaler) ScaleValue(f int, v float64) (float64, error) {
	if !s.Fitted {
		return 0, ErrNotFitted
	}
	span := s.Max[f] - s.Min[f]
	if span == 0 {
		return 0, nil
	}
	scaled := (v - s.Min[f]) / span
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 1 {
		scaled = 1
	}
	return scaled, nil
}
