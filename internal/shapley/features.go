package shapley

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// minWindowFill is the minimum fraction of the nominal window size a window
// must reach to be retained. Features and targets are dropped in lockstep so
// row counts always match.
const minWindowFill = 0.5

// FeatureWidth is the width of one feature vector: per channel
// {mean, stddev, min, max}, concatenated across both channels.
const FeatureWidth = 8

// ExtractFeatures tiles a chunk's sample axis into non-overlapping windows
// of windowSamples samples and reduces each window to a FeatureWidth-wide
// statistics vector, with the window-mean target aligned row for row. A
// chunk too short for a single valid window yields empty (nil, nil); callers
// treat that as no contribution, not a failure.
func ExtractFeatures(c Chunk, windowSamples int) (features [][]float64, targets []float64) {
	if windowSamples <= 0 {
		return nil, nil
	}

	n := c.Samples()
	for start := 0; start < n; start += windowSamples {
		end := start + windowSamples
		if end > n {
			end = n
		}
		if float64(end-start) < minWindowFill*float64(windowSamples) {
			break
		}

		row := make([]float64, 0, FeatureWidth)
		for ch := 0; ch < 2; ch++ {
			window := c.Channels[ch][start:end]
			row = append(row,
				stat.Mean(window, nil),
				sampleStddev(window),
				floats.Min(window),
				floats.Max(window),
			)
		}
		features = append(features, row)
		targets = append(targets, stat.Mean(c.Target[start:end], nil))
	}
	return features, targets
}

// extractAll concatenates window features across a chunk set.
func extractAll(chunks []Chunk, windowSamples int) (features [][]float64, targets []float64) {
	for i := range chunks {
		x, y := ExtractFeatures(chunks[i], windowSamples)
		features = append(features, x...)
		targets = append(targets, y...)
	}
	return features, targets
}

// sampleStddev returns the sample standard deviation, or 0 for windows of
// fewer than two samples (stat.StdDev would return NaN there).
func sampleStddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
