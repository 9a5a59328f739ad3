package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/eigen-blood/contribution.report/internal/db"
	"github.com/eigen-blood/contribution.report/internal/fnirs"
	"github.com/eigen-blood/contribution.report/internal/shapley"
)

// ScoreContributionRequest is the scoring submission payload. SessionCSV is
// the raw fNIRS log; CGMCSV optionally carries the matching glucose export.
// A submission without a CGM log falls back to the single GlucoseLevel spot
// reading as a constant target.
type ScoreContributionRequest struct {
	SessionID    string  `json:"session_id"`
	UserID       string  `json:"user_id"`
	SessionCSV   string  `json:"session_csv"`
	CGMCSV       string  `json:"cgm_csv,omitempty"`
	GlucoseLevel float64 `json:"glucose_level,omitempty"` // mmol/L

	// Optional estimation overrides
	ChunkDurationSec float64 `json:"chunk_duration_sec,omitempty"`
	Iterations       int     `json:"iterations,omitempty"`
	Seed             int64   `json:"seed,omitempty"`
}

// QualityMetrics summarises the submitted recording.
type QualityMetrics struct {
	SampleRateHz    float64 `json:"sample_rate_hz"`
	DurationSeconds float64 `json:"duration_seconds"`
	Samples         int     `json:"samples"`
	Chunks          int     `json:"chunks"`
}

// ScoreContributionResponse reports the outcome of one scoring run.
type ScoreContributionResponse struct {
	ReportID          string          `json:"report_id"`
	ContributionScore int             `json:"contribution_score"`
	RewardPoints      int             `json:"reward_points"`
	Reason            string          `json:"reason"`
	ShapleySummary    shapley.Summary `json:"shapley_summary"`
	ProcessingTimeSec float64         `json:"processing_time_sec"`
	QualityMetrics    QualityMetrics  `json:"quality_metrics"`
}

func (s *Server) handleScoreContribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ScoreContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if strings.TrimSpace(req.SessionCSV) == "" {
		s.writeJSONError(w, http.StatusBadRequest, "session_csv cannot be empty")
		return
	}
	if req.SessionID == "" {
		req.SessionID = fmt.Sprintf("submission-%d", time.Now().UnixNano())
	}

	start := time.Now()
	resp, err := s.scoreSession(&req)
	if err != nil {
		var dataErr *shapley.DataError
		if errors.As(err, &dataErr) {
			s.writeJSONError(w, http.StatusBadRequest, dataErr.Error())
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.ProcessingTimeSec = time.Since(start).Seconds()

	s.writeJSON(w, http.StatusOK, resp)
}

// scoreSession runs the full pipeline: load, preprocess, chunk, estimate,
// map to a reward, persist.
func (s *Server) scoreSession(req *ScoreContributionRequest) (*ScoreContributionResponse, error) {
	session, err := fnirs.LoadSession(strings.NewReader(req.SessionCSV), req.SessionID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.CGMCSV) != "" {
		readings, err := fnirs.LoadCGM(strings.NewReader(req.CGMCSV), "")
		if err != nil {
			return nil, err
		}
		if err := session.AttachGlucose(readings); err != nil {
			return nil, err
		}
	} else {
		session.AttachConstantGlucose(req.GlucoseLevel)
	}

	processed, err := session.Preprocess(fnirs.DefaultProcessConfig())
	if err != nil {
		return nil, err
	}

	chunkDuration := req.ChunkDurationSec
	if chunkDuration <= 0 {
		chunkDuration = s.cfg.ChunkDurationSec
	}
	chunks, err := shapley.BuildChunks(processed.Table(), chunkDuration)
	if err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	iterations := req.Iterations
	if iterations <= 0 {
		iterations = s.cfg.Iterations
	}

	estimator := shapley.NewEstimator(
		shapley.NewRidgeValuator(s.cfg.WindowSamples),
		rand.New(rand.NewSource(seed)),
	)
	report, err := estimator.EstimateSession(chunks, nil, shapley.Params{
		Iterations: iterations,
		Mode:       shapley.ModeWithinSession,
	})
	if err != nil {
		return nil, err
	}

	score := s.policy.Score(report.Summary.Mean)
	points := s.policy.Points(score)

	valuesJSON, err := json.Marshal(report.Values)
	if err != nil {
		return nil, err
	}

	if err := s.db.UpsertSession(&db.SessionRecord{
		SessionID:       session.SessionID,
		UserID:          req.UserID,
		SampleRateHz:    session.SampleRateHz,
		DurationSeconds: session.DurationSec(),
		Samples:         session.Samples(),
	}); err != nil {
		return nil, fmt.Errorf("registering session: %w", err)
	}

	stored := &db.ContributionReport{
		SessionID:        session.SessionID,
		Mode:             string(report.Mode),
		Iterations:       report.Iterations,
		ChunkDurationSec: chunkDuration,
		WindowSamples:    s.cfg.WindowSamples,
		Seed:             seed,
		ValueMean:        report.Summary.Mean,
		ValueStddev:      report.Summary.Stddev,
		ValueMin:         report.Summary.Min,
		ValueMax:         report.Summary.Max,
		Score:            score,
		RewardPoints:     points,
		ValuesJSON:       valuesJSON,
	}
	if err := s.db.InsertReport(stored); err != nil {
		return nil, fmt.Errorf("persisting report: %w", err)
	}

	return &ScoreContributionResponse{
		ReportID:          stored.ReportID,
		ContributionScore: score,
		RewardPoints:      points,
		Reason:            scoreReason(session, req, score, len(chunks)),
		ShapleySummary:    report.Summary,
		QualityMetrics: QualityMetrics{
			SampleRateHz:    session.SampleRateHz,
			DurationSeconds: session.DurationSec(),
			Samples:         session.Samples(),
			Chunks:          len(chunks),
		},
	}, nil
}

// scoreReason builds the human-readable explanation attached to a score.
func scoreReason(session *fnirs.Session, req *ScoreContributionRequest, score, chunks int) string {
	switch {
	case chunks < 2:
		return "Recording too short to form a chunk pool; contribution could not be attributed."
	case session.DurationSec() < 120:
		return "Submission scored, but a longer recording would support a stronger estimate."
	case req.CGMCSV == "" && (req.GlucoseLevel < 3.9 || req.GlucoseLevel > 10.0):
		return "Glucose level is outside the typical range, which may affect model training."
	case score >= 70:
		return "Good submission. The data appears clean and contributes to model accuracy."
	case score >= 30:
		return "Submission accepted with a moderate contribution to model accuracy."
	default:
		return "Submission contributes little to model accuracy; no meaningful reward earned."
	}
}
