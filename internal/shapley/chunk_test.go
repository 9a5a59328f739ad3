package shapley

import (
	"errors"
	"math"
	"testing"
)

// makeTable builds a well-formed session table with n samples at rate Hz.
// Signal values are deterministic sinusoids and target ramps linearly.
func makeTable(sessionID string, n int, rate float64) SeriesTable {
	t := SeriesTable{
		SessionID:    sessionID,
		SampleRateHz: rate,
		Target:       make([]float64, n),
	}
	t.Channels[0] = make([]float64, n)
	t.Channels[1] = make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i) / rate
		t.Channels[0][i] = math.Sin(x / 3)
		t.Channels[1][i] = math.Cos(x / 5)
		t.Target[i] = 4 + 0.01*float64(i)
	}
	return t
}

func TestBuildChunksExactDivision(t *testing.T) {
	table := makeTable("s1", 100, 1.0)
	chunks, err := BuildChunks(table, 10)
	if err != nil {
		t.Fatalf("BuildChunks failed: %v", err)
	}
	if len(chunks) != 10 {
		t.Fatalf("expected 10 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkID != i {
			t.Errorf("chunk %d: ChunkID = %d", i, c.ChunkID)
		}
		if c.SessionID != "s1" {
			t.Errorf("chunk %d: SessionID = %q", i, c.SessionID)
		}
		if c.Samples() != 10 {
			t.Errorf("chunk %d: %d samples, want 10", i, c.Samples())
		}
		if got, want := c.StartSec, float64(i*10); got != want {
			t.Errorf("chunk %d: StartSec = %v, want %v", i, got, want)
		}
	}
}

func TestBuildChunksTailRule(t *testing.T) {
	// Nominal chunk is 10 samples, so the 80% keep threshold is 8 samples.
	tests := []struct {
		samples    int
		wantChunks int
	}{
		{100, 10}, // exact division
		{107, 10}, // 7-sample tail dropped
		{108, 11}, // 8-sample tail kept (exactly 80%)
		{109, 11},
		{7, 0}, // shorter than one threshold
		{8, 1},
	}
	for _, tt := range tests {
		table := makeTable("s1", tt.samples, 1.0)
		chunks, err := BuildChunks(table, 10)
		if err != nil {
			t.Fatalf("BuildChunks(%d samples) failed: %v", tt.samples, err)
		}
		if len(chunks) != tt.wantChunks {
			t.Errorf("BuildChunks(%d samples) = %d chunks, want %d",
				tt.samples, len(chunks), tt.wantChunks)
		}
	}
}

func TestBuildChunksShortTailDuration(t *testing.T) {
	table := makeTable("s1", 108, 1.0)
	chunks, err := BuildChunks(table, 10)
	if err != nil {
		t.Fatalf("BuildChunks failed: %v", err)
	}
	last := chunks[len(chunks)-1]
	if last.Samples() != 8 {
		t.Errorf("tail chunk has %d samples, want 8", last.Samples())
	}
	if last.DurationSec != 8 {
		t.Errorf("tail chunk DurationSec = %v, want 8", last.DurationSec)
	}
}

func TestBuildChunksInvalidInput(t *testing.T) {
	valid := makeTable("s1", 50, 1.0)

	empty := valid
	empty.Channels = [2][]float64{}
	empty.Target = nil

	mismatched := makeTable("s1", 50, 1.0)
	mismatched.Channels[1] = mismatched.Channels[1][:40]

	shortTarget := makeTable("s1", 50, 1.0)
	shortTarget.Target = shortTarget.Target[:10]

	badRate := makeTable("s1", 50, 1.0)
	badRate.SampleRateHz = 0

	noID := makeTable("", 50, 1.0)

	tests := []struct {
		name  string
		table SeriesTable
		dur   float64
	}{
		{"empty table", empty, 10},
		{"mismatched channels", mismatched, 10},
		{"short target", shortTarget, 10},
		{"zero rate", badRate, 10},
		{"missing session id", noID, 10},
		{"zero chunk duration", valid, 0},
	}
	for _, tt := range tests {
		_, err := BuildChunks(tt.table, tt.dur)
		if err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
			continue
		}
		var de *DataError
		if !errors.As(err, &de) {
			t.Errorf("%s: error %v is not a DataError", tt.name, err)
		}
	}
}

func TestBuildChunksSlicesAreViews(t *testing.T) {
	table := makeTable("s1", 40, 2.0)
	chunks, err := BuildChunks(table, 10)
	if err != nil {
		t.Fatalf("BuildChunks failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	// 10s at 2 Hz is 20 samples per chunk.
	if got := chunks[1].Channels[0][0]; got != table.Channels[0][20] {
		t.Errorf("chunk 1 does not start at sample 20: got %v want %v",
			got, table.Channels[0][20])
	}
	if chunks[1].StartSec != 10 {
		t.Errorf("chunk 1 StartSec = %v, want 10", chunks[1].StartSec)
	}
}

func TestNominalChunkSamples(t *testing.T) {
	if got := NominalChunkSamples(60, 10); got != 600 {
		t.Errorf("NominalChunkSamples(60, 10) = %d, want 600", got)
	}
	if got := NominalChunkSamples(1.5, 3); got != 4 {
		t.Errorf("NominalChunkSamples(1.5, 3) = %d, want 4", got)
	}
}
