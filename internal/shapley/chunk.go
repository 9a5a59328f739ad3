// Package shapley estimates the marginal value of fNIRS data chunks to a
// glucose regression model via Monte Carlo coalition sampling. It provides
// chunking, windowed feature extraction, coalition utility scoring, and the
// Shapley estimator itself.
package shapley

import (
	"fmt"
)

// minChunkFill is the minimum fraction of the nominal chunk size a tail
// fragment must reach to be retained. Shorter fragments are dropped so a
// biased-small final chunk cannot skew utility estimates.
const minChunkFill = 0.8

// DataError indicates structurally invalid session input: an empty table,
// mismatched series lengths, or a non-positive sampling rate. It is the only
// error class the chunking layer surfaces; degenerate-but-well-formed input
// is handled downstream without errors.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "session data: " + e.Reason
}

func dataErrorf(format string, v ...interface{}) error {
	return &DataError{Reason: fmt.Sprintf(format, v...)}
}

// SeriesTable is one session's time-ordered, aligned two-channel signal and
// target series, as supplied by the loading pipeline. Channel 0 carries the
// oxygenated and channel 1 the deoxygenated haemoglobin series; Target is
// the interpolated glucose reading per sample.
type SeriesTable struct {
	SessionID    string       `json:"session_id"`
	SampleRateHz float64      `json:"sample_rate_hz"`
	Channels     [2][]float64 `json:"channels"`
	Target       []float64    `json:"target"`
}

// Validate checks the table's structural invariants.
func (t *SeriesTable) Validate() error {
	if t.SessionID == "" {
		return dataErrorf("missing session id")
	}
	if len(t.Channels[0]) == 0 {
		return dataErrorf("session %s: empty signal table", t.SessionID)
	}
	if len(t.Channels[1]) != len(t.Channels[0]) {
		return dataErrorf("session %s: channel lengths differ (%d vs %d)",
			t.SessionID, len(t.Channels[0]), len(t.Channels[1]))
	}
	if len(t.Target) != len(t.Channels[0]) {
		return dataErrorf("session %s: target length %d does not match signal length %d",
			t.SessionID, len(t.Target), len(t.Channels[0]))
	}
	if t.SampleRateHz <= 0 {
		return dataErrorf("session %s: non-positive sample rate %v", t.SessionID, t.SampleRateHz)
	}
	return nil
}

// Chunk is a fixed-duration slice of one session's aligned signal and target
// data. Chunks are immutable once created: the estimator and valuator read
// them but never write.
type Chunk struct {
	ChunkID     int     `json:"chunk_id"`
	SessionID   string  `json:"session_id"`
	StartSec    float64 `json:"start_sec"`
	DurationSec float64 `json:"duration_sec"`

	Channels [2][]float64 `json:"-"`
	Target   []float64    `json:"-"`
}

// Samples returns the number of samples in the chunk.
func (c *Chunk) Samples() int {
	return len(c.Channels[0])
}

// BuildChunks partitions a session table into fixed-duration chunks of
// chunkDurationSec seconds, numbered 0..k-1 in time order. The final stride
// is dropped silently when it falls below 80% of the nominal chunk size.
func BuildChunks(table SeriesTable, chunkDurationSec float64) ([]Chunk, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	nominal := int(chunkDurationSec * table.SampleRateHz)
	if nominal <= 0 {
		return nil, dataErrorf("session %s: chunk duration %.3fs yields no samples at %.3f Hz",
			table.SessionID, chunkDurationSec, table.SampleRateHz)
	}

	n := len(table.Channels[0])
	chunks := make([]Chunk, 0, n/nominal+1)
	for start := 0; start < n; start += nominal {
		end := start + nominal
		if end > n {
			end = n
		}
		if float64(end-start) < minChunkFill*float64(nominal) {
			break
		}
		chunks = append(chunks, Chunk{
			ChunkID:     len(chunks),
			SessionID:   table.SessionID,
			StartSec:    float64(start) / table.SampleRateHz,
			DurationSec: float64(end-start) / table.SampleRateHz,
			Channels: [2][]float64{
				table.Channels[0][start:end:end],
				table.Channels[1][start:end:end],
			},
			Target: table.Target[start:end:end],
		})
	}
	return chunks, nil
}

// NominalChunkSamples returns the nominal sample count for a chunk duration
// at a given sampling rate, rounding down as BuildChunks does.
func NominalChunkSamples(chunkDurationSec, sampleRateHz float64) int {
	return int(chunkDurationSec * sampleRateHz)
}

// totalSamples sums sample counts across a chunk set.
func totalSamples(chunks []Chunk) int {
	total := 0
	for i := range chunks {
		total += chunks[i].Samples()
	}
	return total
}
