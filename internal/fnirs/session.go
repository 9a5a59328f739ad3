// Package fnirs loads and preprocesses fNIRS session recordings: CSV
// parsing with a strict column schema, modified Beer-Lambert conversion to
// haemoglobin concentrations, smoothing, and CGM glucose alignment.
package fnirs

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eigen-blood/contribution.report/internal/shapley"
)

// Session log columns. Header cells are whitespace-trimmed before matching;
// "Time" and "timestamp" are both accepted for the time column.
const (
	ColTime       = "Time"
	ColTimeAlt    = "timestamp"
	Col740        = "wavelength_740nm"
	Col850        = "wavelength_850nm"
	ColCGMTime    = "Device Timestamp"
	DefaultCGMCol = "Scan Glucose (mmol/L)"
)

// cgmTimeLayout is the day-first timestamp format CGM exports use.
const cgmTimeLayout = "02-01-2006 15:04"

// Session is one recording: time-ordered raw two-wavelength intensities,
// with glucose attached after CGM alignment. The schema is validated at
// load; estimation code never re-checks column presence.
type Session struct {
	SessionID    string
	TimeSec      []float64
	Raw740       []float64
	Raw850       []float64
	Glucose      []float64 // mmol/L per sample; empty until AttachGlucose
	SampleRateHz float64
}

// Samples returns the number of rows in the session.
func (s *Session) Samples() int {
	return len(s.TimeSec)
}

// DurationSec returns the recorded span in seconds.
func (s *Session) DurationSec() float64 {
	if len(s.TimeSec) < 2 {
		return 0
	}
	return s.TimeSec[len(s.TimeSec)-1] - s.TimeSec[0]
}

func dataErrf(format string, v ...interface{}) error {
	return &shapley.DataError{Reason: fmt.Sprintf(format, v...)}
}

// LoadSession parses a session log from r. It fails fast with a DataError on
// a missing column, an unparseable cell, or a table too short to carry a
// sampling rate.
func LoadSession(r io.Reader, sessionID string) (*Session, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, dataErrf("session %s: unparseable table: %v", sessionID, err)
	}
	if len(records) == 0 {
		return nil, dataErrf("session %s: empty table", sessionID)
	}

	timeIdx, idx740, idx850 := -1, -1, -1
	for i, cell := range records[0] {
		switch strings.TrimSpace(cell) {
		case ColTime, ColTimeAlt:
			timeIdx = i
		case Col740:
			idx740 = i
		case Col850:
			idx850 = i
		}
	}
	if timeIdx < 0 || idx740 < 0 || idx850 < 0 {
		return nil, dataErrf("session %s: header missing required columns (%s, %s, %s)",
			sessionID, ColTime, Col740, Col850)
	}

	rows := records[1:]
	if len(rows) < 2 {
		return nil, dataErrf("session %s: too few rows (%d) to detect sampling rate", sessionID, len(rows))
	}

	s := &Session{
		SessionID: sessionID,
		TimeSec:   make([]float64, 0, len(rows)),
		Raw740:    make([]float64, 0, len(rows)),
		Raw850:    make([]float64, 0, len(rows)),
	}
	for n, row := range rows {
		t, err := parseCell(row, timeIdx)
		if err != nil {
			return nil, dataErrf("session %s row %d: time: %v", sessionID, n+1, err)
		}
		v740, err := parseCell(row, idx740)
		if err != nil {
			return nil, dataErrf("session %s row %d: %s: %v", sessionID, n+1, Col740, err)
		}
		v850, err := parseCell(row, idx850)
		if err != nil {
			return nil, dataErrf("session %s row %d: %s: %v", sessionID, n+1, Col850, err)
		}
		s.TimeSec = append(s.TimeSec, t)
		s.Raw740 = append(s.Raw740, v740)
		s.Raw850 = append(s.Raw850, v850)
	}

	// Sampling rate from the mean timestamp delta.
	var deltaSum float64
	for i := 1; i < len(s.TimeSec); i++ {
		deltaSum += s.TimeSec[i] - s.TimeSec[i-1]
	}
	meanDelta := deltaSum / float64(len(s.TimeSec)-1)
	if meanDelta <= 0 {
		return nil, dataErrf("session %s: non-increasing timestamps", sessionID)
	}
	s.SampleRateHz = 1 / meanDelta

	return s, nil
}

func parseCell(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, fmt.Errorf("row has %d cells, want index %d", len(row), idx)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", row[idx])
	}
	return v, nil
}

// CGMReading is one continuous-glucose-monitor scan, offset in seconds from
// the first reading of its log.
type CGMReading struct {
	TimeSec float64
	Mmol    float64
}

// LoadCGM parses a CGM export. glucoseColumn selects the reading column
// (DefaultCGMCol when empty). Readings are sorted by timestamp and offset
// from the earliest one.
func LoadCGM(r io.Reader, glucoseColumn string) ([]CGMReading, error) {
	if glucoseColumn == "" {
		glucoseColumn = DefaultCGMCol
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, dataErrf("cgm: unparseable table: %v", err)
	}
	if len(records) < 2 {
		return nil, dataErrf("cgm: empty table")
	}

	timeIdx, glucIdx := -1, -1
	for i, cell := range records[0] {
		switch strings.TrimSpace(cell) {
		case ColCGMTime:
			timeIdx = i
		case glucoseColumn:
			glucIdx = i
		}
	}
	if timeIdx < 0 || glucIdx < 0 {
		return nil, dataErrf("cgm: header missing %q or %q", ColCGMTime, glucoseColumn)
	}

	type stamped struct {
		at   time.Time
		mmol float64
	}
	scans := make([]stamped, 0, len(records)-1)
	for n, row := range records[1:] {
		if timeIdx >= len(row) || glucIdx >= len(row) {
			return nil, dataErrf("cgm row %d: short row", n+1)
		}
		at, err := time.Parse(cgmTimeLayout, strings.TrimSpace(row[timeIdx]))
		if err != nil {
			return nil, dataErrf("cgm row %d: bad timestamp %q", n+1, row[timeIdx])
		}
		mmol, err := strconv.ParseFloat(strings.TrimSpace(row[glucIdx]), 64)
		if err != nil {
			return nil, dataErrf("cgm row %d: bad glucose %q", n+1, row[glucIdx])
		}
		scans = append(scans, stamped{at: at, mmol: mmol})
	}

	sort.Slice(scans, func(i, j int) bool { return scans[i].at.Before(scans[j].at) })

	first := scans[0].at
	readings := make([]CGMReading, len(scans))
	for i, sc := range scans {
		readings[i] = CGMReading{
			TimeSec: sc.at.Sub(first).Seconds(),
			Mmol:    sc.mmol,
		}
	}
	return readings, nil
}

// AttachGlucose interpolates CGM readings onto the session's timestamps.
func (s *Session) AttachGlucose(readings []CGMReading) error {
	if len(readings) == 0 {
		return dataErrf("session %s: no CGM readings to attach", s.SessionID)
	}
	xp := make([]float64, len(readings))
	fp := make([]float64, len(readings))
	for i, r := range readings {
		xp[i] = r.TimeSec
		fp[i] = r.Mmol
	}
	s.Glucose = Interp(s.TimeSec, xp, fp)
	return nil
}

// AttachConstantGlucose fills the target series with a single reading, for
// submissions that carry one spot measurement instead of a CGM log.
func (s *Session) AttachConstantGlucose(mmol float64) {
	s.Glucose = make([]float64, len(s.TimeSec))
	for i := range s.Glucose {
		s.Glucose[i] = mmol
	}
}
