package plots

import (
	"os"
	"path/filepath"
	"testing"
)

func TestZones(t *testing.T) {
	// Values in mmol/L; boundaries live at 70 and 180 mg/dL
	// (3.885 and 9.990 mmol/L).
	tests := []struct {
		name string
		yt   float64
		yp   float64
		zone string
	}{
		{"accurate", 6.0, 6.1, "A"},
		{"within 20 percent", 10.0, 11.5, "A"},
		{"both hypo", 3.0, 3.5, "A"},
		{"moderate miss", 6.0, 8.0, "B"},
		{"missed hypo treatment", 10.0, 2.0, "D"},
		{"spurious hyper", 3.0, 11.0, "D"},
		{"dangerous inversion", 11.0, 3.0, "E"},
	}
	for _, tt := range tests {
		z, err := Zones([]float64{tt.yt}, []float64{tt.yp})
		if err != nil {
			t.Fatalf("%s: Zones failed: %v", tt.name, err)
		}
		if z.Total() != 1 {
			t.Fatalf("%s: classified %d points, want 1", tt.name, z.Total())
		}
		got := ""
		switch {
		case z.A == 1:
			got = "A"
		case z.B == 1:
			got = "B"
		case z.C == 1:
			got = "C"
		case z.D == 1:
			got = "D"
		case z.E == 1:
			got = "E"
		}
		if got != tt.zone {
			t.Errorf("%s: (%v, %v) classified %s, want %s", tt.name, tt.yt, tt.yp, got, tt.zone)
		}
	}
}

func TestZonesLengthMismatch(t *testing.T) {
	if _, err := Zones([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestZonesPercentages(t *testing.T) {
	z := ZoneCounts{A: 3, B: 1}
	pct := z.Percentages()
	if pct["A"] != 75 || pct["B"] != 25 || pct["E"] != 0 {
		t.Errorf("percentages = %v", pct)
	}

	empty := ZoneCounts{}
	for zone, v := range empty.Percentages() {
		if v != 0 {
			t.Errorf("empty grid: zone %s percentage = %v, want 0", zone, v)
		}
	}
}

func TestClarkeGridSavesPNG(t *testing.T) {
	yt := []float64{4.0, 5.5, 6.0, 7.5, 9.0, 10.5}
	yp := []float64{4.2, 5.0, 6.5, 7.0, 9.8, 10.0}

	path := filepath.Join(t.TempDir(), "clarke.png")
	zones, err := ClarkeGrid(yt, yp, "test grid", path)
	if err != nil {
		t.Fatalf("ClarkeGrid failed: %v", err)
	}
	if zones.Total() != len(yt) {
		t.Errorf("classified %d points, want %d", zones.Total(), len(yt))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("output file is empty")
	}
}

func TestClarkeGridNoPath(t *testing.T) {
	zones, err := ClarkeGrid([]float64{5}, []float64{5}, "", "")
	if err != nil {
		t.Fatalf("ClarkeGrid failed: %v", err)
	}
	if zones.A != 1 {
		t.Errorf("zones = %+v, want one A point", zones)
	}
}
