package fnirs

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
)

// SyntheticGenerator produces plausible session recordings for testing and
// demos: slow sinusoidal physiological base signals on both wavelengths plus
// Gaussian sensor noise, and a glucose excursion correlated with the 740 nm
// base signal so the data is learnable.
type SyntheticGenerator struct {
	SessionID    string
	SampleRateHz float64
	DurationSec  float64
	NoiseStddev  float64
	GlucoseBase  float64 // mmol/L
	GlucoseSwing float64 // mmol/L amplitude of the excursion

	rng *rand.Rand
}

// NewSyntheticGenerator creates a generator with the standard bench
// configuration and a seeded random source.
func NewSyntheticGenerator(sessionID string, seed int64) *SyntheticGenerator {
	return &SyntheticGenerator{
		SessionID:    sessionID,
		SampleRateHz: 10.0,
		DurationSec:  600.0,
		NoiseStddev:  0.02,
		GlucoseBase:  6.0,
		GlucoseSwing: 1.5,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Session generates a full session with glucose already attached.
func (g *SyntheticGenerator) Session() *Session {
	n := int(g.DurationSec * g.SampleRateHz)
	s := &Session{
		SessionID:    g.SessionID,
		TimeSec:      make([]float64, n),
		Raw740:       make([]float64, n),
		Raw850:       make([]float64, n),
		Glucose:      make([]float64, n),
		SampleRateHz: g.SampleRateHz,
	}
	for i := 0; i < n; i++ {
		t := float64(i) / g.SampleRateHz
		base740 := 0.5 + 0.1*math.Sin(2*math.Pi*t/30)
		base850 := 0.6 + 0.08*math.Cos(2*math.Pi*t/25)

		s.TimeSec[i] = t
		s.Raw740[i] = base740 + g.rng.NormFloat64()*g.NoiseStddev
		s.Raw850[i] = base850 + g.rng.NormFloat64()*g.NoiseStddev
		// Glucose follows the slow 740 nm oscillation so windowed features
		// carry predictive signal.
		s.Glucose[i] = g.GlucoseBase + g.GlucoseSwing*math.Sin(2*math.Pi*t/30)
	}
	return s
}

// WriteCSV writes the raw session log in the loader's column schema.
func (g *SyntheticGenerator) WriteCSV(w io.Writer) error {
	s := g.Session()
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColTime, Col740, Col850}); err != nil {
		return err
	}
	for i := range s.TimeSec {
		row := []string{
			fmt.Sprintf("%.2f", s.TimeSec[i]),
			fmt.Sprintf("%.6f", s.Raw740[i]),
			fmt.Sprintf("%.6f", s.Raw850[i]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCGMCSV writes a matching CGM export with one scan per minute.
func (g *SyntheticGenerator) WriteCGMCSV(w io.Writer) error {
	s := g.Session()
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColCGMTime, DefaultCGMCol}); err != nil {
		return err
	}
	for minute := 0; minute <= int(g.DurationSec)/60; minute++ {
		t := float64(minute * 60)
		idx := int(t * g.SampleRateHz)
		if idx >= len(s.Glucose) {
			idx = len(s.Glucose) - 1
		}
		row := []string{
			fmt.Sprintf("01-01-2025 %02d:%02d", minute/60, minute%60),
			fmt.Sprintf("%.2f", s.Glucose[idx]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
