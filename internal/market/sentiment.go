package market

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Sentiment bounds: a market never goes completely dark, and sentiment is a
// fraction of the addressable population.
const (
	sentimentFloor = 0.05
	sentimentCeil  = 1.0

	// Noise sampling parameters: the step controls how quickly sentiment
	// can swing month to month, the scale how far volatility lets it stray
	// from the base.
	driftStep  = 0.35
	driftScale = 0.2
)

// SentimentDrift produces a smooth month-to-month sentiment stream around a
// base value, scaled by the market's volatility. Zero volatility pins
// sentiment to the base, which keeps the tick math exactly reproducible.
type SentimentDrift struct {
	noise      opensimplex.Noise
	base       float64
	volatility float64
}

// NewSentimentDrift creates a drift stream. The same seed yields the same
// stream, so a simulation's sentiment trajectory is reproducible.
func NewSentimentDrift(seed int64, base, volatility float64) *SentimentDrift {
	return &SentimentDrift{
		noise:      opensimplex.NewNormalized(seed),
		base:       base,
		volatility: volatility,
	}
}

// At returns the market sentiment for the given tick, clamped to
// [0.05, 1].
func (d *SentimentDrift) At(tick int) float64 {
	if d.volatility == 0 {
		return clamp(d.base, sentimentFloor, sentimentCeil)
	}
	// Eval2 is normalized to [0, 1]; recenter to [-1, 1] before scaling.
	n := d.noise.Eval2(float64(tick)*driftStep, 0)
	return clamp(d.base+d.volatility*driftScale*(n*2-1), sentimentFloor, sentimentCeil)
}
