package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionRecord registers one loaded session.
type SessionRecord struct {
	SessionID       string  `json:"session_id"`
	UserID          string  `json:"user_id,omitempty"`
	SampleRateHz    float64 `json:"sample_rate_hz"`
	DurationSeconds float64 `json:"duration_seconds"`
	Samples         int     `json:"samples"`
	CreatedAt       int64   `json:"created_at"`
}

// ContributionReport is a persisted Shapley estimation result for one
// session, with its derived reward mapping.
type ContributionReport struct {
	ReportID         string          `json:"report_id"`
	SessionID        string          `json:"session_id"`
	Mode             string          `json:"mode"`
	Iterations       int             `json:"iterations"`
	ChunkDurationSec float64         `json:"chunk_duration_sec"`
	WindowSamples    int             `json:"window_samples"`
	Seed             int64           `json:"seed"`
	ValueMean        float64         `json:"value_mean"`
	ValueStddev      float64         `json:"value_stddev"`
	ValueMin         float64         `json:"value_min"`
	ValueMax         float64         `json:"value_max"`
	Score            int             `json:"contribution_score"`
	RewardPoints     int             `json:"reward_points"`
	ValuesJSON       json.RawMessage `json:"values_json,omitempty"`
	CreatedAt        int64           `json:"created_at"`
}

// UpsertSession inserts or refreshes a session registration.
func (db *DB) UpsertSession(rec *SessionRecord) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixNano()
	}
	return retryOnBusy(func() error {
		_, err := db.Exec(`
			INSERT INTO sessions (session_id, user_id, sample_rate_hz, duration_seconds, samples, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				user_id = excluded.user_id,
				sample_rate_hz = excluded.sample_rate_hz,
				duration_seconds = excluded.duration_seconds,
				samples = excluded.samples`,
			rec.SessionID, rec.UserID, rec.SampleRateHz, rec.DurationSeconds, rec.Samples, rec.CreatedAt,
		)
		return err
	})
}

// InsertReport persists a new contribution report. If ReportID is empty, a
// UUID is generated.
func (db *DB) InsertReport(rep *ContributionReport) error {
	if rep.ReportID == "" {
		rep.ReportID = uuid.New().String()
	}
	if rep.CreatedAt == 0 {
		rep.CreatedAt = time.Now().UnixNano()
	}

	var valuesStr interface{}
	if len(rep.ValuesJSON) > 0 {
		valuesStr = string(rep.ValuesJSON)
	}

	return retryOnBusy(func() error {
		_, err := db.Exec(`
			INSERT INTO contribution_reports (
				report_id, session_id, mode, iterations, chunk_duration_sec,
				window_samples, seed, value_mean, value_stddev, value_min, value_max,
				contribution_score, reward_points, values_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.ReportID, rep.SessionID, rep.Mode, rep.Iterations, rep.ChunkDurationSec,
			rep.WindowSamples, rep.Seed, rep.ValueMean, rep.ValueStddev, rep.ValueMin, rep.ValueMax,
			rep.Score, rep.RewardPoints, valuesStr, rep.CreatedAt,
		)
		return err
	})
}

// GetReport returns one report by ID, or sql.ErrNoRows if absent.
func (db *DB) GetReport(reportID string) (*ContributionReport, error) {
	row := db.QueryRow(`
		SELECT report_id, session_id, mode, iterations, chunk_duration_sec,
		       window_samples, seed, value_mean, value_stddev, value_min, value_max,
		       contribution_score, reward_points, values_json, created_at
		FROM contribution_reports
		WHERE report_id = ?`, reportID)
	return scanReport(row)
}

// ListReports returns reports newest first, optionally filtered by session.
func (db *DB) ListReports(sessionID string, limit int) ([]*ContributionReport, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if sessionID != "" {
		rows, err = db.Query(`
			SELECT report_id, session_id, mode, iterations, chunk_duration_sec,
			       window_samples, seed, value_mean, value_stddev, value_min, value_max,
			       contribution_score, reward_points, values_json, created_at
			FROM contribution_reports
			WHERE session_id = ?
			ORDER BY created_at DESC LIMIT ?`, sessionID, limit)
	} else {
		rows, err = db.Query(`
			SELECT report_id, session_id, mode, iterations, chunk_duration_sec,
			       window_samples, seed, value_mean, value_stddev, value_min, value_max,
			       contribution_score, reward_points, values_json, created_at
			FROM contribution_reports
			ORDER BY created_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []*ContributionReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*ContributionReport, error) {
	var rep ContributionReport
	var valuesStr sql.NullString
	err := row.Scan(
		&rep.ReportID, &rep.SessionID, &rep.Mode, &rep.Iterations, &rep.ChunkDurationSec,
		&rep.WindowSamples, &rep.Seed, &rep.ValueMean, &rep.ValueStddev, &rep.ValueMin, &rep.ValueMax,
		&rep.Score, &rep.RewardPoints, &valuesStr, &rep.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if valuesStr.Valid {
		rep.ValuesJSON = json.RawMessage(valuesStr.String)
	}
	return &rep, nil
}
