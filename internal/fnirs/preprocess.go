package fnirs

import (
	"github.com/eigen-blood/contribution.report/internal/shapley"
)

// ProcessConfig controls session preprocessing.
type ProcessConfig struct {
	SmoothingWindow int     `json:"smoothing_window"` // samples
	SeparationCm    float64 `json:"separation_cm"`    // optode separation
}

// DefaultProcessConfig returns the standard preprocessing settings: a
// 30-sample centred smoother and long-separation optodes.
func DefaultProcessConfig() ProcessConfig {
	return ProcessConfig{
		SmoothingWindow: 30,
		SeparationCm:    SeparationLongCm,
	}
}

// Processed is a session reduced to smoothed haemoglobin series aligned
// with its glucose targets, ready for chunking.
type Processed struct {
	SessionID    string
	SampleRateHz float64
	HbO          []float64
	HbR          []float64
	Glucose      []float64
}

// Preprocess converts the session's raw intensities to smoothed ΔHbO/ΔHbR
// series. Glucose must already be attached (AttachGlucose or
// AttachConstantGlucose); a session without targets is structurally
// incomplete and fails with a DataError.
func (s *Session) Preprocess(cfg ProcessConfig) (*Processed, error) {
	if len(s.Glucose) != len(s.TimeSec) {
		return nil, dataErrf("session %s: glucose not attached (%d targets for %d samples)",
			s.SessionID, len(s.Glucose), len(s.TimeSec))
	}
	if cfg.SmoothingWindow <= 0 {
		cfg.SmoothingWindow = DefaultProcessConfig().SmoothingWindow
	}
	if cfg.SeparationCm <= 0 {
		cfg.SeparationCm = DefaultProcessConfig().SeparationCm
	}

	hbo, hbr, err := Haemoglobin(s.Raw740, s.Raw850, cfg.SeparationCm)
	if err != nil {
		return nil, err
	}

	return &Processed{
		SessionID:    s.SessionID,
		SampleRateHz: s.SampleRateHz,
		HbO:          RollingMean(hbo, cfg.SmoothingWindow),
		HbR:          RollingMean(hbr, cfg.SmoothingWindow),
		Glucose:      s.Glucose,
	}, nil
}

// Table adapts the processed series to the estimator's input schema.
func (p *Processed) Table() shapley.SeriesTable {
	return shapley.SeriesTable{
		SessionID:    p.SessionID,
		SampleRateHz: p.SampleRateHz,
		Channels:     [2][]float64{p.HbO, p.HbR},
		Target:       p.Glucose,
	}
}
