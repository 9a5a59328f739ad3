// Command shapley-sweep scores a recorded session offline and writes the
// per-chunk values and summaries to CSV, without going through the HTTP
// API. A second session enables between-session mode, which evaluates
// every coalition against the other session's data.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/eigen-blood/contribution.report/internal/fnirs"
	"github.com/eigen-blood/contribution.report/internal/plots"
	"github.com/eigen-blood/contribution.report/internal/shapley"
)

func loadChunks(sessionFile, cgmFile, sessionID string, glucose, chunkDur float64, cfg fnirs.ProcessConfig) ([]shapley.Chunk, error) {
	f, err := os.Open(sessionFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sess, err := fnirs.LoadSession(f, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", sessionFile, err)
	}

	if cgmFile != "" {
		cf, err := os.Open(cgmFile)
		if err != nil {
			return nil, err
		}
		defer cf.Close()
		readings, err := fnirs.LoadCGM(cf, fnirs.DefaultCGMCol)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", cgmFile, err)
		}
		if err := sess.AttachGlucose(readings); err != nil {
			return nil, err
		}
	} else {
		sess.AttachConstantGlucose(glucose)
	}

	proc, err := sess.Preprocess(cfg)
	if err != nil {
		return nil, err
	}
	return shapley.BuildChunks(proc.Table(), chunkDur)
}

func main() {
	sessionFile := flag.String("session", "", "fNIRS session CSV (required)")
	cgmFile := flag.String("cgm", "", "CGM export CSV for the session")
	otherFile := flag.String("other-session", "", "Second fNIRS session CSV (enables between-session mode)")
	otherCGM := flag.String("other-cgm", "", "CGM export CSV for the second session")
	glucose := flag.Float64("glucose", 5.5, "Constant glucose in mmol/L when no CGM export is given")

	chunkDur := flag.Float64("chunk-duration", 60, "Chunk duration in seconds")
	windowSamples := flag.Int("window", 40, "Feature window length in samples")
	iterations := flag.Int("iterations", 200, "Monte Carlo iterations per chunk")
	seed := flag.Int64("seed", 0, "RNG seed (0 uses the clock)")
	mode := flag.String("mode", "within", "Sampling mode: 'within' or 'between'")
	verbose := flag.Bool("verbose", false, "Log per-chunk progress")

	output := flag.String("output", "", "Output CSV filename (defaults to shapley-<timestamp>.csv)")
	clarke := flag.String("clarke", "", "Also render a Clarke error grid PNG of model predictions to this path")
	flag.Parse()

	if *sessionFile == "" {
		log.Fatal("-session is required")
	}
	m := shapley.Mode(*mode)
	if !m.Valid() {
		log.Fatalf("Invalid mode: %s (must be within or between)", *mode)
	}
	if m == shapley.ModeBetweenSession && *otherFile == "" {
		log.Fatal("-other-session is required in between mode")
	}

	cfg := fnirs.DefaultProcessConfig()

	session, err := loadChunks(*sessionFile, *cgmFile, "session-a", *glucose, *chunkDur, cfg)
	if err != nil {
		log.Fatalf("Failed to prepare session: %v", err)
	}
	log.Printf("Session A: %d chunks of %.0fs", len(session), *chunkDur)

	var other []shapley.Chunk
	if *otherFile != "" {
		other, err = loadChunks(*otherFile, *otherCGM, "session-b", *glucose, *chunkDur, cfg)
		if err != nil {
			log.Fatalf("Failed to prepare other session: %v", err)
		}
		log.Printf("Session B: %d chunks of %.0fs", len(other), *chunkDur)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	valuator := shapley.NewRidgeValuator(*windowSamples)
	est := shapley.NewEstimator(valuator, rand.New(rand.NewSource(*seed)))

	params := shapley.Params{Iterations: *iterations, Mode: m, Verbose: *verbose}
	start := time.Now()
	report, err := est.EstimateSession(session, other, params)
	if err != nil {
		log.Fatalf("Estimation failed: %v", err)
	}
	log.Printf("Estimated %d chunks in %v (mean=%.4f stddev=%.4f)",
		len(report.Values), time.Since(start).Round(time.Millisecond),
		report.Summary.Mean, report.Summary.Stddev)

	// Prepare output files
	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("shapley-%s-%s.csv", *mode, time.Now().Format("20060102-150405"))
	}

	f, err := os.Create(filename)
	if err != nil {
		log.Fatalf("Could not create output file %s: %v", filename, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	summaryFilename := strings.TrimSuffix(filename, ".csv") + "-summary.csv"
	fSum, err := os.Create(summaryFilename)
	if err != nil {
		log.Fatalf("Could not create summary file %s: %v", summaryFilename, err)
	}
	defer fSum.Close()
	sumW := csv.NewWriter(fSum)
	defer sumW.Flush()

	shapley.WriteReportHeaders(w)
	shapley.WriteReportRows(w, report)
	shapley.WriteSummaryHeaders(sumW)
	shapley.WriteSummaryRow(sumW, report)

	log.Printf("✓ Wrote %s and %s", filename, summaryFilename)

	if *clarke != "" {
		renderClarke(valuator, session, other, *clarke)
	}
}

// renderClarke fits the scoring model on the full session and plots its
// held-out predictions on a Clarke error grid. The held-out set is the other
// session when one was given, otherwise the tail quarter of the session.
func renderClarke(v *shapley.RidgeValuator, session, other []shapley.Chunk, path string) {
	train, test := session, other
	if len(test) == 0 {
		split := len(session) - len(session)/4
		if split <= 0 || split >= len(session) {
			log.Printf("Session too small to hold out chunks for a Clarke grid, skipping")
			return
		}
		train, test = session[:split], session[split:]
	}

	actual, predicted, ok := v.PredictGlucose(train, test)
	if !ok {
		log.Printf("Model could not be fitted for the Clarke grid, skipping")
		return
	}
	zones, err := plots.ClarkeGrid(actual, predicted, "Glucose prediction accuracy", path)
	if err != nil {
		log.Fatalf("Failed to render Clarke grid: %v", err)
	}
	pct := zones.Percentages()
	log.Printf("✓ Wrote %s (zones: A %.1f%% B %.1f%% C %.1f%% D %.1f%% E %.1f%%)",
		path, pct["A"], pct["B"], pct["C"], pct["D"], pct["E"])
}
