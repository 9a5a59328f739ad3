package shapley

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/eigen-blood/contribution.report/internal/monitoring"
)

// Mode selects where the held-out evaluation set is drawn from.
type Mode string

const (
	// ModeWithinSession reserves one peer chunk, disjoint from the sampled
	// coalition, as the evaluation set.
	ModeWithinSession Mode = "within"
	// ModeBetweenSession evaluates every coalition against the entire other
	// session, testing cross-session generalisation.
	ModeBetweenSession Mode = "between"
)

// Valid reports whether the mode is one of the supported values.
func (m Mode) Valid() bool {
	return m == ModeWithinSession || m == ModeBetweenSession
}

// Params configures one estimation run.
type Params struct {
	Iterations int  `json:"iterations"` // coalition samples per chunk
	Mode       Mode `json:"mode"`       // "within" or "between"
	Verbose    bool `json:"verbose,omitempty"`
}

// Iteration bounds. More iterations trade latency for accuracy; requests
// above the cap are clamped with a warning rather than rejected.
const (
	maxIterations     = 5000
	defaultIterations = 200
)

// Estimator approximates Shapley values of chunks by coalition sampling.
// It holds no state between calls beyond its random generator, which is an
// injected dependency so runs are reproducible under a fixed seed.
type Estimator struct {
	valuator Valuator
	rng      *rand.Rand
}

// NewEstimator creates an estimator over the given valuator. A nil rng falls
// back to a time-seeded generator.
func NewEstimator(v Valuator, rng *rand.Rand) *Estimator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Estimator{valuator: v, rng: rng}
}

// EstimateChunk approximates the Shapley value of session[target] relative
// to its session peers. In between-session mode, other supplies the fixed
// evaluation session. A pool of fewer than two peers returns 0.0: there is
// no meaningful coalition distribution to sample, and that is a routine
// small-session condition, not a failure.
func (e *Estimator) EstimateChunk(session []Chunk, target int, other []Chunk, p Params) (float64, error) {
	if len(session) == 0 {
		return 0, dataErrorf("no chunks in session")
	}
	if target < 0 || target >= len(session) {
		return 0, fmt.Errorf("target chunk %d out of range [0,%d)", target, len(session))
	}
	if !p.Mode.Valid() {
		return 0, fmt.Errorf("unknown estimation mode %q", p.Mode)
	}
	if p.Mode == ModeBetweenSession && len(other) == 0 {
		return 0, dataErrorf("between-session mode requires a non-empty evaluation session")
	}

	pool := make([]Chunk, 0, len(session)-1)
	for i := range session {
		if i != target {
			pool = append(pool, session[i])
		}
	}
	if len(pool) < 2 {
		return 0, nil
	}

	iterations := clampIterations(p.Iterations)

	var sum float64
	for iter := 0; iter < iterations; iter++ {
		perm := e.rng.Perm(len(pool))

		var size int
		var test []Chunk
		switch p.Mode {
		case ModeWithinSession:
			// Hold one peer out of the coalition so a disjoint test chunk
			// always exists.
			size = 1 + e.rng.Intn(len(pool)-1)
			test = []Chunk{pool[perm[size]]}
		case ModeBetweenSession:
			size = 1 + e.rng.Intn(len(pool))
			test = other
		}

		coalition := make([]Chunk, size, size+1)
		for i := 0; i < size; i++ {
			coalition[i] = pool[perm[i]]
		}

		without := e.valuator.Utility(coalition, test)
		with := e.valuator.Utility(append(coalition, session[target]), test)

		delta := with - without
		sum += delta
		if p.Verbose {
			monitoring.Logf("chunk %d iter %d: coalition=%d utility %0.4f -> %0.4f (delta %+0.4f)",
				session[target].ChunkID, iter, size, without, with, delta)
		}
	}

	return sum / float64(iterations), nil
}

// EstimateSession estimates every chunk of a session and aggregates the
// per-chunk values into a report with summary statistics.
func (e *Estimator) EstimateSession(session []Chunk, other []Chunk, p Params) (*Report, error) {
	if len(session) == 0 {
		return nil, dataErrorf("no chunks in session")
	}

	report := &Report{
		SessionID:  session[0].SessionID,
		Mode:       p.Mode,
		Iterations: clampIterations(p.Iterations),
		Values:     make([]ChunkValue, 0, len(session)),
	}

	for i := range session {
		v, err := e.EstimateChunk(session, i, other, p)
		if err != nil {
			return nil, fmt.Errorf("estimating chunk %d: %w", session[i].ChunkID, err)
		}
		report.Values = append(report.Values, ChunkValue{
			ChunkID:   session[i].ChunkID,
			SessionID: session[i].SessionID,
			Value:     v,
		})
	}

	report.Summary = summarise(report.Values)
	return report, nil
}

// clampIterations applies the default and the upper bound, logging when a
// requested count is adjusted.
func clampIterations(requested int) int {
	switch {
	case requested <= 0:
		return defaultIterations
	case requested > maxIterations:
		monitoring.Logf("WARNING: iteration count %d exceeds maximum %d, clamping", requested, maxIterations)
		return maxIterations
	default:
		return requested
	}
}
