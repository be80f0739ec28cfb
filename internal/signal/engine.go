// Package signal derives rebalancing signals from holdings and target weights.
package signal

import (
	"math"

	"github.com/akshayg/coach/internal/core"
)

// DefaultDriftThresholdPct is the minimum absolute drift that emits a signal.
const DefaultDriftThresholdPct = 5.0

// Engine computes signals from a portfolio. It holds only thresholds, so
// every method is a pure function of its inputs.
type Engine struct {
	driftThresholdPct float64
}

// NewEngine creates an engine with the given drift threshold. A
// non-positive threshold falls back to the default.
func NewEngine(driftThresholdPct float64) *Engine {
	if driftThresholdPct <= 0 {
		driftThresholdPct = DefaultDriftThresholdPct
	}
	return &Engine{driftThresholdPct: driftThresholdPct}
}

// ComputeDriftSignals compares each holding's current weight against its
// target weight and emits a signal when the relative drift crosses the
// threshold. Symbols missing from targetWeights have target 0 and never
// emit: drift against a zero target is defined as 0.
func (e *Engine) ComputeDriftSignals(holdings []core.Holding, targetWeights map[string]float64) []core.Signal {
	totalValue := 0.0
	for _, h := range holdings {
		totalValue += h.Value()
	}
	if totalValue == 0 {
		return nil
	}

	var signals []core.Signal
	for _, h := range holdings {
		currentWeight := h.Value() / totalValue * 100

		targetWeight := targetWeights[h.Symbol] * 100
		driftPct := 0.0
		if targetWeight > 0 {
			driftPct = (currentWeight - targetWeight) / targetWeight * 100
		}

		if math.Abs(driftPct) < e.driftThresholdPct {
			continue
		}

		action := core.SignalBuy
		if driftPct > 0 {
			// Overweight: trim back toward target.
			action = core.SignalTrim
		}

		signals = append(signals, core.Signal{
			Symbol:        h.Symbol,
			Kind:          core.SignalDrift,
			Magnitude:     driftPct,
			CurrentWeight: currentWeight,
			TargetWeight:  targetWeight,
			Action:        action,
			Confidence:    driftConfidence(driftPct),
		})
	}

	return signals
}

// driftConfidence maps drift magnitude to confidence: saturating and
// monotone, capped at 0.9 so drift alone never reaches full conviction.
func driftConfidence(driftPct float64) float64 {
	return math.Min(math.Abs(driftPct)/10, 0.9)
}
