package forecast

import (
	"context"
	"math/rand/v2"
	"sync"
)

// RuleConfidence is the fixed confidence reported for rule-based predictions.
const RuleConfidence = 0.87

// DemandFloor is the minimum demand any predictor may return.
const DemandFloor = 10.0

// RuleBasedPredictor produces demand from fixed hour-of-day bands matching
// typical transit usage. It needs no training data, never errors and never
// blocks, which makes it the terminal fallback of every prediction path.
// One instance is shared across requests; the perturbation source is the
// only mutable state and is guarded by mu.
type RuleBasedPredictor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRuleBasedPredictor seeds the band perturbation source. Seed 0 uses a
// non-deterministic source.
func NewRuleBasedPredictor(seed uint64) *RuleBasedPredictor {
	var rng *rand.Rand
	if seed == 0 {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	} else {
		rng = rand.New(rand.NewPCG(seed, seed^0x51b2c3d4e5f60718))
	}
	return &RuleBasedPredictor{rng: rng}
}

// PredictFrom returns hoursAhead demand values starting one hour after
// startHour, cycling through the day. Every value is at least DemandFloor.
func (p *RuleBasedPredictor) PredictFrom(startHour, hoursAhead int) []float64 {
	if hoursAhead <= 0 {
		return nil
	}
	out := make([]float64, hoursAhead)
	for i := 0; i < hoursAhead; i++ {
		hour := (startHour + i + 1) % 24
		base, lo, hi := demandBand(hour)
		v := base + p.uniform(lo, hi)
		if v < DemandFloor {
			v = DemandFloor
		}
		out[i] = v
	}
	return out
}

// Predict implements Predictor. The most recent observation's hour anchors
// the rollout; with no history the rollout starts from midnight.
func (p *RuleBasedPredictor) Predict(_ context.Context, recent []Observation, hoursAhead int) ([]float64, error) {
	startHour := 0
	if len(recent) > 0 {
		startHour = recent[len(recent)-1].Hour
	}
	return p.PredictFrom(startHour, hoursAhead), nil
}

// Confidence implements Predictor.
func (p *RuleBasedPredictor) Confidence() float64 { return RuleConfidence }

// Version implements Predictor.
func (p *RuleBasedPredictor) Version() string { return "rule-based-v1" }

func (p *RuleBasedPredictor) uniform(lo, hi float64) float64 {
	p.mu.Lock()
	v := p.rng.Float64()
	p.mu.Unlock()
	return lo + (hi-lo)*v
}

// demandBand maps an hour of day to its base demand and perturbation range.
func demandBand(hour int) (base, lo, hi float64) {
	switch {
	case hour == 7 || hour == 8: // morning peak
		return 180, -15, 20
	case hour >= 17 && hour <= 19: // evening peak
		return 195, -18, 25
	case hour >= 9 && hour <= 12: // late morning
		return 95, -10, 15
	case hour >= 13 && hour <= 16: // afternoon
		return 105, -12, 18
	case hour >= 20 && hour <= 22: // evening
		return 65, -8, 12
	case hour == 23 || hour <= 5: // night
		return 25, -5, 8
	default: // early morning (6am)
		return 55, -8, 12
	}
}
