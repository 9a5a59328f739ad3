package fnirs

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/eigen-blood/contribution.report/internal/shapley"
)

const sampleLog = `Time,wavelength_740nm,wavelength_850nm
0.0,0.51,0.62
0.1,0.52,0.61
0.2,0.50,0.63
0.3,0.53,0.60
0.4,0.51,0.62
`

func TestLoadSession(t *testing.T) {
	s, err := LoadSession(strings.NewReader(sampleLog), "s1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if s.Samples() != 5 {
		t.Errorf("samples = %d, want 5", s.Samples())
	}
	if math.Abs(s.SampleRateHz-10) > 1e-9 {
		t.Errorf("sample rate = %v, want 10", s.SampleRateHz)
	}
	if math.Abs(s.DurationSec()-0.4) > 1e-9 {
		t.Errorf("duration = %v, want 0.4", s.DurationSec())
	}
	if s.Raw740[2] != 0.50 || s.Raw850[3] != 0.60 {
		t.Errorf("parsed values wrong: %v %v", s.Raw740[2], s.Raw850[3])
	}
	if len(s.Glucose) != 0 {
		t.Error("glucose should be empty before attachment")
	}
}

func TestLoadSessionAltTimeColumn(t *testing.T) {
	log := strings.Replace(sampleLog, "Time,", "timestamp,", 1)
	s, err := LoadSession(strings.NewReader(log), "s1")
	if err != nil {
		t.Fatalf("LoadSession with timestamp column failed: %v", err)
	}
	if s.Samples() != 5 {
		t.Errorf("samples = %d, want 5", s.Samples())
	}
}

func TestLoadSessionErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty input", ""},
		{"missing wavelength column", "Time,wavelength_740nm\n0.0,0.5\n0.1,0.5\n"},
		{"single data row", "Time,wavelength_740nm,wavelength_850nm\n0.0,0.5,0.6\n"},
		{"bad float", "Time,wavelength_740nm,wavelength_850nm\n0.0,0.5,0.6\n0.1,oops,0.6\n"},
		{"non-increasing time", "Time,wavelength_740nm,wavelength_850nm\n1.0,0.5,0.6\n0.5,0.5,0.6\n0.0,0.5,0.6\n"},
	}
	for _, tt := range tests {
		_, err := LoadSession(strings.NewReader(tt.csv), "s1")
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		var de *shapley.DataError
		if !errors.As(err, &de) {
			t.Errorf("%s: error %v is not a DataError", tt.name, err)
		}
	}
}

const sampleCGM = `Device,Device Timestamp,Scan Glucose (mmol/L)
lib3,01-06-2025 12:10,5.8
lib3,01-06-2025 12:00,5.2
lib3,01-06-2025 12:05,5.5
`

func TestLoadCGM(t *testing.T) {
	readings, err := LoadCGM(strings.NewReader(sampleCGM), "")
	if err != nil {
		t.Fatalf("LoadCGM failed: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("got %d readings, want 3", len(readings))
	}
	// Sorted by timestamp and offset from the earliest scan.
	wantTimes := []float64{0, 300, 600}
	wantMmol := []float64{5.2, 5.5, 5.8}
	for i := range readings {
		if readings[i].TimeSec != wantTimes[i] || readings[i].Mmol != wantMmol[i] {
			t.Errorf("reading %d = %+v, want {%v %v}", i, readings[i], wantTimes[i], wantMmol[i])
		}
	}
}

func TestLoadCGMErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing glucose column", "Device Timestamp\n01-06-2025 12:00\n"},
		{"bad timestamp", "Device Timestamp,Scan Glucose (mmol/L)\nyesterday,5.2\n"},
		{"bad glucose", "Device Timestamp,Scan Glucose (mmol/L)\n01-06-2025 12:00,high\n"},
		{"header only", "Device Timestamp,Scan Glucose (mmol/L)\n"},
	}
	for _, tt := range tests {
		if _, err := LoadCGM(strings.NewReader(tt.csv), ""); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestAttachGlucose(t *testing.T) {
	s, err := LoadSession(strings.NewReader(sampleLog), "s1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	readings := []CGMReading{
		{TimeSec: 0.1, Mmol: 5.0},
		{TimeSec: 0.3, Mmol: 7.0},
	}
	if err := s.AttachGlucose(readings); err != nil {
		t.Fatalf("AttachGlucose failed: %v", err)
	}
	if len(s.Glucose) != s.Samples() {
		t.Fatalf("glucose length %d, want %d", len(s.Glucose), s.Samples())
	}
	// Samples before the first scan clamp, midpoints interpolate.
	want := []float64{5.0, 5.0, 6.0, 7.0, 7.0}
	for i := range want {
		if math.Abs(s.Glucose[i]-want[i]) > 1e-9 {
			t.Errorf("glucose[%d] = %v, want %v", i, s.Glucose[i], want[i])
		}
	}
}

func TestAttachGlucoseNoReadings(t *testing.T) {
	s, err := LoadSession(strings.NewReader(sampleLog), "s1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if err := s.AttachGlucose(nil); err == nil {
		t.Error("expected error for empty readings")
	}
}

func TestAttachConstantGlucose(t *testing.T) {
	s, err := LoadSession(strings.NewReader(sampleLog), "s1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	s.AttachConstantGlucose(6.2)
	if len(s.Glucose) != s.Samples() {
		t.Fatalf("glucose length %d, want %d", len(s.Glucose), s.Samples())
	}
	for i, g := range s.Glucose {
		if g != 6.2 {
			t.Errorf("glucose[%d] = %v, want 6.2", i, g)
		}
	}
}
