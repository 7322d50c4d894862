package forecast

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
)

// Strategy names the prediction implementations selectable at startup.
type Strategy string

const (
	StrategyRule  Strategy = "rule"
	StrategyModel Strategy = "model"
)

// Predictor is the common contract of the two prediction strategies. The
// strategy is resolved once from configuration when the service boots, never
// re-probed per call.
type Predictor interface {
	Predict(ctx context.Context, recent []Observation, hoursAhead int) ([]float64, error)
	Confidence() float64
	Version() string
}

// ModelSlot publishes the active sequence model by pointer swap. Training
// prepares a fresh model off to the side and stores it here in one step, so
// concurrent predictions never observe partially updated weights.
type ModelSlot struct {
	p atomic.Pointer[SequenceModel]
}

// Store publishes a model snapshot.
func (s *ModelSlot) Store(m *SequenceModel) { s.p.Store(m) }

// Load returns the currently published model, which may be nil.
func (s *ModelSlot) Load() *SequenceModel { return s.p.Load() }

// ModelBackedPredictor serves predictions from the published sequence model,
// falling back to the rule-based bands whenever the model cannot serve (not
// trained, failed load, insufficient history). The fallback guarantees this
// predictor, like RuleBasedPredictor, always yields a well-formed result.
type ModelBackedPredictor struct {
	slot     *ModelSlot
	fallback *RuleBasedPredictor
	version  string
}

// NewModelBackedPredictor wires the model path with its rule-based fallback.
func NewModelBackedPredictor(slot *ModelSlot, fallback *RuleBasedPredictor, version string) *ModelBackedPredictor {
	if fallback == nil {
		fallback = NewRuleBasedPredictor(0)
	}
	if version == "" {
		version = "sequence-v1"
	}
	return &ModelBackedPredictor{slot: slot, fallback: fallback, version: version}
}

func (p *ModelBackedPredictor) current() *SequenceModel {
	if p.slot == nil {
		return nil
	}
	return p.slot.Load()
}

// Predict implements Predictor.
func (p *ModelBackedPredictor) Predict(ctx context.Context, recent []Observation, hoursAhead int) ([]float64, error) {
	if m := p.current(); m != nil {
		preds, err := m.Predict(ctx, recent, hoursAhead)
		if err == nil {
			return preds, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.Printf("warning: sequence model unavailable (%v), using rule-based fallback", err)
	}
	return p.fallback.Predict(ctx, recent, hoursAhead)
}

// Confidence implements Predictor.
func (p *ModelBackedPredictor) Confidence() float64 {
	if m := p.current(); m != nil && (m.State() == StateTrained || m.State() == StateLoaded) {
		return 0.85
	}
	return RuleConfidence
}

// Version implements Predictor.
func (p *ModelBackedPredictor) Version() string {
	if m := p.current(); m != nil && (m.State() == StateTrained || m.State() == StateLoaded) {
		return p.version
	}
	return p.fallback.Version()
}

// NewPredictor resolves the configured strategy to its implementation. The
// default is the rule-based path; the model path is an explicit opt-in.
func NewPredictor(strategy Strategy, slot *ModelSlot, seed uint64) Predictor {
	rule := NewRuleBasedPredictor(seed)
	switch strategy {
	case StrategyModel:
		return NewModelBackedPredictor(slot, rule, "")
	default:
		return rule
	}
}
