package shapley

import (
	"encoding/csv"
	"fmt"
	"math"
)

// ChunkValue pairs a chunk with its estimated Shapley value. Negative values
// are meaningful: the chunk hurts held-out generalisation.
type ChunkValue struct {
	ChunkID   int     `json:"chunk_id"`
	SessionID string  `json:"session_id"`
	Value     float64 `json:"value"`
}

// Summary aggregates a batch of chunk values.
type Summary struct {
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Report is the result of estimating every chunk of one session.
type Report struct {
	SessionID  string       `json:"session_id"`
	Mode       Mode         `json:"mode"`
	Iterations int          `json:"iterations"`
	Values     []ChunkValue `json:"values"`
	Summary    Summary      `json:"summary"`
}

// summarise computes batch statistics over chunk values.
func summarise(values []ChunkValue) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	xs := make([]float64, len(values))
	for i, v := range values {
		xs[i] = v.Value
	}
	mean, stddev := MeanStddev(xs)
	min, max := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return Summary{Mean: mean, Stddev: stddev, Min: min, Max: max}
}

// MeanStddev calculates the mean and sample standard deviation of a slice.
// Returns (0, 0) for empty slices.
func MeanStddev(xs []float64) (mean float64, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	mean = sum / float64(len(xs))

	var sdSum float64
	for _, v := range xs {
		d := v - mean
		sdSum += d * d
	}
	if len(xs) > 1 {
		stddev = math.Sqrt(sdSum / float64(len(xs)-1))
	}
	return mean, stddev
}

// WriteReportHeaders writes the header row for per-chunk report output.
func WriteReportHeaders(w *csv.Writer) {
	w.Write([]string{"session_id", "mode", "iterations", "chunk_id", "shapley_value"})
}

// WriteReportRows writes one row per chunk value and flushes.
func WriteReportRows(w *csv.Writer, r *Report) {
	for _, v := range r.Values {
		w.Write([]string{
			v.SessionID,
			string(r.Mode),
			fmt.Sprintf("%d", r.Iterations),
			fmt.Sprintf("%d", v.ChunkID),
			fmt.Sprintf("%.6f", v.Value),
		})
	}
	w.Flush()
}

// WriteSummaryHeaders writes the header row for report summary output.
func WriteSummaryHeaders(w *csv.Writer) {
	w.Write([]string{"session_id", "mode", "iterations", "chunks", "mean", "stddev", "min", "max"})
}

// WriteSummaryRow writes one summary row aggregating a report and flushes.
func WriteSummaryRow(w *csv.Writer, r *Report) {
	w.Write([]string{
		r.SessionID,
		string(r.Mode),
		fmt.Sprintf("%d", r.Iterations),
		fmt.Sprintf("%d", len(r.Values)),
		fmt.Sprintf("%.6f", r.Summary.Mean),
		fmt.Sprintf("%.6f", r.Summary.Stddev),
		fmt.Sprintf("%.6f", r.Summary.Min),
		fmt.Sprintf("%.6f", r.Summary.Max),
	})
	w.Flush()
}
