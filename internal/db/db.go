// Package db provides SQLite persistence for sessions and contribution
// reports.
package db

import (
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eigen-blood/contribution.report/internal/monitoring"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the contribution database at path and
// ensures the base schema exists. Later schema changes ship as migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			user_id           TEXT,
			sample_rate_hz    DOUBLE,
			duration_seconds  DOUBLE,
			samples           BIGINT,
			created_at        BIGINT
		);
		CREATE TABLE IF NOT EXISTS contribution_reports (
			report_id          TEXT PRIMARY KEY,
			session_id         TEXT,
			mode               TEXT,
			iterations         BIGINT,
			chunk_duration_sec DOUBLE,
			window_samples     BIGINT,
			seed               BIGINT,
			value_mean         DOUBLE,
			value_stddev       DOUBLE,
			value_min          DOUBLE,
			value_max          DOUBLE,
			contribution_score BIGINT,
			reward_points      BIGINT,
			values_json        TEXT,
			created_at         BIGINT,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// retryOnBusy retries fn a few times when SQLite reports a locked or busy
// database, backing off between attempts. Concurrent report inserts from
// API handlers hit this under load.
func retryOnBusy(fn func() error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		msg := err.Error()
		if !strings.Contains(msg, "database is locked") && !strings.Contains(msg, "SQLITE_BUSY") {
			return err
		}
		monitoring.Logf("WARNING: database busy (attempt %d/%d): %v", i+1, attempts, err)
		time.Sleep(time.Duration(i+1) * 50 * time.Millisecond)
	}
	return err
}
