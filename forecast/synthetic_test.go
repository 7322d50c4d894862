package forecast

import (
	"sync"
	"testing"
	"time"
)

func TestGenerateCount(t *testing.T) {
	g := NewGenerator(42)

	for _, n := range []int{1, 10, 100, 1000} {
		got := g.Generate(n)
		if len(got) != n {
			t.Fatalf("Generate(%d) returned %d records", n, len(got))
		}
	}

	if got := g.Generate(0); got != nil {
		t.Errorf("Generate(0) = %v, want nil", got)
	}
}

func TestGenerateSchema(t *testing.T) {
	g := NewGenerator(42)
	obs := g.Generate(500)

	for i, o := range obs {
		if o.Hour < 0 || o.Hour > 23 {
			t.Errorf("record %d: hour %d out of range", i, o.Hour)
		}
		if o.DayOfWeek < 0 || o.DayOfWeek > 6 {
			t.Errorf("record %d: day_of_week %d out of range", i, o.DayOfWeek)
		}
		if o.Month < 1 || o.Month > 12 {
			t.Errorf("record %d: month %d out of range", i, o.Month)
		}
		if o.Demand < 0 {
			t.Errorf("record %d: demand %v negative", i, o.Demand)
		}
		if o.Precipitation < 0 {
			t.Errorf("record %d: precipitation %v negative", i, o.Precipitation)
		}
		if o.EventsCount < 0 {
			t.Errorf("record %d: events_count %d negative", i, o.EventsCount)
		}
	}
}

func TestGenerateHourlySpacing(t *testing.T) {
	g := NewGenerator(1)
	obs := g.Generate(48)

	epoch := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !obs[0].Timestamp.Equal(epoch) {
		t.Errorf("first timestamp = %v, want %v", obs[0].Timestamp, epoch)
	}
	for i := 1; i < len(obs); i++ {
		if diff := obs[i].Timestamp.Sub(obs[i-1].Timestamp); diff != time.Hour {
			t.Errorf("record %d: spacing %v, want 1h", i, diff)
		}
	}
}

func TestGenerateDerivedFeaturesBackfilled(t *testing.T) {
	g := NewGenerator(9)
	obs := g.Generate(100)

	// first record's previous_demand back-filled from the second
	if obs[0].PreviousDemand != obs[1].Demand {
		t.Errorf("record 0: previous_demand = %v, want %v", obs[0].PreviousDemand, obs[1].Demand)
	}
	for i := 1; i < len(obs); i++ {
		if obs[i].PreviousDemand != obs[i-1].Demand {
			t.Errorf("record %d: previous_demand = %v, want %v", i, obs[i].PreviousDemand, obs[i-1].Demand)
		}
	}
	// rolling mean present everywhere, including the short initial window
	for i, o := range obs {
		if o.RollingMean < 0 {
			t.Errorf("record %d: rolling_mean %v negative", i, o.RollingMean)
		}
		if o.RollingMean == 0 && o.Demand > 0 {
			t.Errorf("record %d: rolling_mean not filled", i)
		}
	}
}

func TestGenerateDemandWithinModelRange(t *testing.T) {
	g := NewGenerator(11)
	obs := g.Generate(2000)

	// demand = 50 + sin-term(0..40) + weekend(0/15) + holiday(0/25) + N(0,5);
	// anything far outside [0, 180] would mean the formula drifted
	sum := 0.0
	for i, o := range obs {
		if o.Demand > 180 {
			t.Errorf("record %d: demand %v implausibly high", i, o.Demand)
		}
		sum += o.Demand
	}
	mean := sum / float64(len(obs))
	if mean < 50 || mean > 95 {
		t.Errorf("mean demand = %v, want within [50, 95]", mean)
	}
}

func TestGenerateSchemaIdempotence(t *testing.T) {
	a := NewGenerator(100).Generate(100)
	b := NewGenerator(200).Generate(100)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Timestamp.Equal(b[i].Timestamp) {
			t.Errorf("record %d: timestamps differ across runs", i)
		}
		if a[i].Hour != b[i].Hour || a[i].DayOfWeek != b[i].DayOfWeek || a[i].Month != b[i].Month {
			t.Errorf("record %d: calendar fields differ across runs", i)
		}
	}
}

func TestGenerateConcurrent(t *testing.T) {
	g := NewGenerator(7)

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				obs := g.Generate(50)
				if len(obs) != 50 {
					errs <- "short series"
					return
				}
				for _, o := range obs {
					if o.Demand < 0 || o.Precipitation < 0 {
						errs <- "malformed record"
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Errorf("concurrent Generate: %s", msg)
	}
}

func TestFillDerivedSingleRecord(t *testing.T) {
	obs := []Observation{{Demand: 42}}
	FillDerived(obs)
	if obs[0].PreviousDemand != 42 {
		t.Errorf("previous_demand = %v, want 42", obs[0].PreviousDemand)
	}
	if obs[0].RollingMean != 42 {
		t.Errorf("rolling_mean = %v, want 42", obs[0].RollingMean)
	}
}

func TestFillDerivedRollingWindow(t *testing.T) {
	obs := make([]Observation, 10)
	for i := range obs {
		obs[i].Demand = float64(i + 1)
	}
	FillDerived(obs)

	// at index 9 the trailing window is 5..10, mean 7.5
	if got := obs[9].RollingMean; got != 7.5 {
		t.Errorf("rolling_mean[9] = %v, want 7.5", got)
	}
	// at index 2 the short window is 1..3, mean 2
	if got := obs[2].RollingMean; got != 2 {
		t.Errorf("rolling_mean[2] = %v, want 2", got)
	}
}
