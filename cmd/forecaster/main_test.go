package main

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"transit-analytics-api/forecast"
)

// ── Forecast cycle shape tests ──

func TestCyclePredictionsShape(t *testing.T) {
	predictor := forecast.NewRuleBasedPredictor(1)
	now := time.Date(2024, 3, 14, 7, 0, 0, 0, time.UTC)

	preds := predictor.PredictFrom(now.Hour(), 24)
	if len(preds) != 24 {
		t.Fatalf("got %d predictions, want 24", len(preds))
	}
	for i, p := range preds {
		if p < forecast.DemandFloor {
			t.Errorf("offset %d: prediction %v below floor %v", i+1, p, forecast.DemandFloor)
		}
	}
}

func TestCycleRushHourExceedsNight(t *testing.T) {
	predictor := forecast.NewRuleBasedPredictor(1)

	// first step from start hour 7 lands on 08:00, morning peak
	morning := predictor.PredictFrom(7, 1)[0]
	// first step from start hour 1 lands on 02:00, overnight trough
	night := predictor.PredictFrom(1, 1)[0]

	if morning <= night {
		t.Errorf("morning peak %v should exceed night %v", morning, night)
	}
}

// ── Update message tests ──

func TestForecastUpdateJSON(t *testing.T) {
	update := ForecastUpdate{
		TS:           time.Date(2024, 3, 14, 7, 0, 0, 0, time.UTC),
		RouteID:      12,
		Horizon:      24,
		Predictions:  []float64{180.5, 195.2},
		Confidence:   forecast.RuleConfidence,
		ModelVersion: "rule-based-v1",
	}

	data, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"ts", "route_id", "horizon_hours", "predictions", "confidence", "model_version"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in update message", key)
		}
	}
	if decoded["route_id"].(float64) != 12 {
		t.Errorf("route_id = %v, want 12", decoded["route_id"])
	}
}

// ── Env helper tests ──

func TestGetEnv(t *testing.T) {
	os.Unsetenv("TEST_FORECASTER_VAR")
	if got := getEnv("TEST_FORECASTER_VAR", "fallback"); got != "fallback" {
		t.Errorf("getEnv() = %q, want %q", got, "fallback")
	}
	os.Setenv("TEST_FORECASTER_VAR", "custom")
	defer os.Unsetenv("TEST_FORECASTER_VAR")
	if got := getEnv("TEST_FORECASTER_VAR", "fallback"); got != "custom" {
		t.Errorf("getEnv() = %q, want %q", got, "custom")
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Unsetenv("TEST_INT_VAR")
	if got := getEnvInt("TEST_INT_VAR", 42); got != 42 {
		t.Errorf("getEnvInt() = %d, want %d", got, 42)
	}
	os.Setenv("TEST_INT_VAR", "100")
	defer os.Unsetenv("TEST_INT_VAR")
	if got := getEnvInt("TEST_INT_VAR", 42); got != 100 {
		t.Errorf("getEnvInt() = %d, want %d", got, 100)
	}
	os.Setenv("TEST_INT_VAR", "not-a-number")
	if got := getEnvInt("TEST_INT_VAR", 42); got != 42 {
		t.Errorf("getEnvInt() with garbage = %d, want fallback 42", got)
	}
}
