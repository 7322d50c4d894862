package forecast

import "time"

// NumFeatures is the width of the model input vector.
const NumFeatures = 10

// FeatureNames lists the model input features in their fixed column order.
// The scaler and the sequence model both depend on this order; changing it
// invalidates any persisted model snapshot.
var FeatureNames = [NumFeatures]string{
	"hour",
	"day_of_week",
	"month",
	"is_weekend",
	"is_holiday",
	"temperature",
	"precipitation",
	"events_count",
	"previous_demand",
	"rolling_mean",
}

// Observation is one hourly ridership sample, either aggregated from real
// transaction data or synthesized. Treated as read-only once created.
type Observation struct {
	Timestamp      time.Time `json:"timestamp"`
	Hour           int       `json:"hour"`
	DayOfWeek      int       `json:"day_of_week"`
	Month          int       `json:"month"`
	IsWeekend      bool      `json:"is_weekend"`
	IsHoliday      bool      `json:"is_holiday"`
	Temperature    float64   `json:"temperature"`
	Precipitation  float64   `json:"precipitation"`
	EventsCount    int       `json:"events_count"`
	Demand         float64   `json:"demand"`
	PreviousDemand float64   `json:"previous_demand"`
	RollingMean    float64   `json:"rolling_mean"`
}

// Features returns the 10-element input vector in FeatureNames order.
func (o Observation) Features() [NumFeatures]float64 {
	return [NumFeatures]float64{
		float64(o.Hour),
		float64(o.DayOfWeek),
		float64(o.Month),
		boolToFloat(o.IsWeekend),
		boolToFloat(o.IsHoliday),
		o.Temperature,
		o.Precipitation,
		float64(o.EventsCount),
		o.PreviousDemand,
		o.RollingMean,
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// FillDerived populates previous_demand and rolling_mean (trailing 6-sample
// window) in place. The first element's previous_demand is back-filled from
// the second; short initial rolling windows use whatever samples exist.
func FillDerived(obs []Observation) {
	if len(obs) == 0 {
		return
	}
	for i := range obs {
		if i == 0 {
			if len(obs) > 1 {
				obs[0].PreviousDemand = obs[1].Demand
			} else {
				obs[0].PreviousDemand = obs[0].Demand
			}
		} else {
			obs[i].PreviousDemand = obs[i-1].Demand
		}

		start := i - rollingWindow + 1
		if start < 0 {
			start = 0
		}
		sum := 0.0
		for j := start; j <= i; j++ {
			sum += obs[j].Demand
		}
		obs[i].RollingMean = sum / float64(i-start+1)
	}
}

const rollingWindow = 6
