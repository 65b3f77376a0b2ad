package estimator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardianswap/bridge-middleware/pkg/config"
)

func newTestEstimator(t *testing.T) *Estimator {
	t.Helper()
	est, err := New(
		config.FeeConfig{BaseRate: "0.001"},
		config.BridgeConfig{
			Durations:       config.DefaultDurations(),
			DefaultDuration: 10 * time.Minute,
		},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return est
}

func TestEstimator_ComputeFee(t *testing.T) {
	est := newTestEstimator(t)

	quote := est.ComputeFee(decimal.NewFromInt(100))
	if !quote.Fee.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("Expected fee 0.1, got %s", quote.Fee)
	}
	if !quote.TotalCost.Equal(decimal.RequireFromString("100.1")) {
		t.Errorf("Expected total cost 100.1, got %s", quote.TotalCost)
	}
	if !quote.Rate.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("Expected rate 0.001, got %s", quote.Rate)
	}
}

func TestEstimator_ComputeFee_NoFloatDrift(t *testing.T) {
	est := newTestEstimator(t)

	// 0.1+0.2 style values that float arithmetic gets wrong.
	quote := est.ComputeFee(decimal.RequireFromString("0.3"))
	if !quote.Fee.Equal(decimal.RequireFromString("0.0003")) {
		t.Errorf("Expected fee 0.0003, got %s", quote.Fee)
	}
	if !quote.TotalCost.Equal(decimal.RequireFromString("0.3003")) {
		t.Errorf("Expected total cost 0.3003, got %s", quote.TotalCost)
	}
}

func TestEstimator_EstimateDuration(t *testing.T) {
	est := newTestEstimator(t)

	cases := []struct {
		source, target string
		want           time.Duration
	}{
		{"ethereum", "polygon", 15 * time.Minute},
		{"ethereum", "optimism", 5 * time.Minute},
		{"polygon", "ethereum", 30 * time.Minute},
		{"base", "ethereum", 7 * time.Minute},
		// Direction matters: polygon->arbitrum is unlisted.
		{"polygon", "arbitrum", 10 * time.Minute},
		{"avalanche", "ethereum", 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := est.EstimateDuration(tc.source, tc.target); got != tc.want {
			t.Errorf("EstimateDuration(%s, %s) = %s, want %s", tc.source, tc.target, got, tc.want)
		}
	}
}

func TestEstimator_New_RejectsBadRate(t *testing.T) {
	if _, err := New(config.FeeConfig{BaseRate: "not-a-number"}, config.BridgeConfig{}); err == nil {
		t.Error("Expected error for malformed rate")
	}
	if _, err := New(config.FeeConfig{BaseRate: "-0.001"}, config.BridgeConfig{}); err == nil {
		t.Error("Expected error for negative rate")
	}
}
