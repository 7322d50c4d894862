package forecast

import (
	"errors"
	"testing"
)

func TestTransformBeforeFit(t *testing.T) {
	s := NewMinMaxScaler()
	g := NewGenerator(5)

	_, err := s.Transform(g.Generate(10))
	if !errors.Is(err, ErrNotFitted) {
		t.Fatalf("Transform before fit: err = %v, want ErrNotFitted", err)
	}

	if _, err := s.ScaleValue(0, 12); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("ScaleValue before fit: err = %v, want ErrNotFitted", err)
	}
}

func TestFitTransformRange(t *testing.T) {
	s := NewMinMaxScaler()
	g := NewGenerator(5)
	rows := g.Generate(200)

	scaled := s.FitTransform(rows)
	if len(scaled) != len(rows) {
		t.Fatalf("FitTransform returned %d rows, want %d", len(scaled), len(rows))
	}
	for i, row := range scaled {
		for f, v := range row {
			if v < 0 || v > 1 {
				t.Errorf("row %d feature %s: scaled value %v outside [0,1]", i, FeatureNames[f], v)
			}
		}
	}
}

func TestTransformAfterFitMatchesTrainingScale(t *testing.T) {
	s := NewMinMaxScaler()
	g := NewGenerator(5)
	rows := g.Generate(200)

	first := s.FitTransform(rows)
	second, err := s.Transform(rows)
	if err != nil {
		t.Fatalf("Transform after fit failed: %v", err)
	}
	for i := range first {
		for f := range first[i] {
			if first[i][f] != second[i][f] {
				t.Errorf("row %d feature %d: fit_transform %v != transform %v", i, f, first[i][f], second[i][f])
			}
		}
	}
}

func TestTransformConstantFeature(t *testing.T) {
	s := NewMinMaxScaler()
	rows := []Observation{
		{Hour: 5, Temperature: 20, Demand: 50},
		{Hour: 9, Temperature: 20, Demand: 80},
	}
	scaled := s.FitTransform(rows)
	// temperature is constant: both rows must scale to 0 rather than divide by zero
	for i := range scaled {
		if scaled[i][5] != 0 {
			t.Errorf("row %d: constant feature scaled to %v, want 0", i, scaled[i][5])
		}
	}
}

func TestScaleValueClamped(t *testing.T) {
	s := NewMinMaxScaler()
	rows := []Observation{
		{PreviousDemand: 10},
		{PreviousDemand: 110},
	}
	s.FitTransform(rows)

	tests := []struct {
		in   float64
		want float64
	}{
		{10, 0},
		{110, 1},
		{60, 0.5},
		{-100, 0}, // below training min
		{1000, 1}, // above training max
	}
	for _, tt := range tests {
		got, err := s.ScaleValue(8, tt.in)
		if err != nil {
			t.Fatalf("ScaleValue(%v) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ScaleValue(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
