// Package estimator computes bridging fees and expected durations.
package estimator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardianswap/bridge-middleware/pkg/config"
)

// FeeQuote is the result of a fee computation.
type FeeQuote struct {
	Fee       decimal.Decimal `json:"fee"`
	TotalCost decimal.Decimal `json:"totalCost"`
	Rate      decimal.Decimal `json:"rate"`
}

// Estimator computes fees and durations for chain pairs. All state is
// immutable after construction; methods are safe for concurrent use.
type Estimator struct {
	baseRate        decimal.Decimal
	durations       map[string]time.Duration
	defaultDuration time.Duration
}

// New builds an estimator from configuration. The duration table is data:
// adding a chain pair is a config change, never a code change.
func New(fees config.FeeConfig, bridge config.BridgeConfig) (*Estimator, error) {
	rate, err := decimal.NewFromString(fees.BaseRate)
	if err != nil {
		return nil, fmt.Errorf("parse fee base rate %q: %w", fees.BaseRate, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("fee base rate must not be negative")
	}

	durations := make(map[string]time.Duration, len(bridge.Durations))
	for _, entry := range bridge.Durations {
		durations[pairKey(entry.Source, entry.Target)] = entry.Duration
	}

	return &Estimator{
		baseRate:        rate,
		durations:       durations,
		defaultDuration: bridge.DefaultDuration,
	}, nil
}

// ComputeFee returns the bridging fee and total cost for the amount.
// Decimal arithmetic throughout; no float rounding drift.
func (e *Estimator) ComputeFee(amount decimal.Decimal) FeeQuote {
	fee := amount.Mul(e.baseRate)
	return FeeQuote{
		Fee:       fee,
		TotalCost: amount.Add(fee),
		Rate:      e.baseRate,
	}
}

// EstimateDuration returns the expected bridging time for the directed pair,
// falling back to the configured default for unlisted pairs.
func (e *Estimator) EstimateDuration(source, target string) time.Duration {
	if d, ok := e.durations[pairKey(source, target)]; ok {
		return d
	}
	return e.defaultDuration
}

func pairKey(source, target string) string {
	return source + "-" + target
}
