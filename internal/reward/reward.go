// Package reward maps Shapley values to bounded contribution scores and
// reward points. The mapping is a policy choice layered on top of the
// estimator, so its bounds are configuration rather than constants baked
// into the scoring path.
package reward

import "math"

// Policy is a linear clip-and-scale mapping from Shapley value to a 0-100
// contribution score. Values at or below ClipLow score 0; values at or
// above ClipHigh score MaxScore.
type Policy struct {
	ClipLow       float64 `json:"clip_low"`
	ClipHigh      float64 `json:"clip_high"`
	MaxScore      int     `json:"max_score"`
	PointsDivisor int     `json:"points_divisor"` // score units per reward point
}

// DefaultPolicy returns the production mapping: clip bounds -0.1 to 0.2
// (the empirically observed Shapley range for this pipeline) and one reward
// point per ten score units.
func DefaultPolicy() Policy {
	return Policy{
		ClipLow:       -0.1,
		ClipHigh:      0.2,
		MaxScore:      100,
		PointsDivisor: 10,
	}
}

// Score maps one Shapley value to a contribution score. Negative Shapley
// values below the clip floor map to 0, which downstream logic reads as
// "no reward".
func (p Policy) Score(shapleyValue float64) int {
	span := p.ClipHigh - p.ClipLow
	if span <= 0 {
		return 0
	}
	frac := (shapleyValue - p.ClipLow) / span
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return int(math.Round(frac * float64(p.MaxScore)))
}

// Points converts a contribution score to reward points.
func (p Policy) Points(score int) int {
	if p.PointsDivisor <= 0 {
		return 0
	}
	if score < 0 {
		score = 0
	}
	return score / p.PointsDivisor
}
