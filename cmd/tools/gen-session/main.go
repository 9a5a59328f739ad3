// Command gen-session generates a synthetic fNIRS session CSV, and
// optionally a matching CGM export, for testing the scoring pipeline.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/eigen-blood/contribution.report/internal/fnirs"
)

func main() {
	output := flag.String("o", "session.csv", "output path for the session CSV")
	cgmOutput := flag.String("cgm", "", "optional output path for a CGM export CSV")
	sessionID := flag.String("session", "synthetic", "session identifier")
	duration := flag.Float64("duration", 600, "recording duration in seconds")
	rate := flag.Float64("rate", 10, "sample rate in Hz")
	noise := flag.Float64("noise", 0.02, "optical noise standard deviation")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	gen := fnirs.NewSyntheticGenerator(*sessionID, *seed)
	gen.DurationSec = *duration
	gen.SampleRateHz = *rate
	gen.NoiseStddev = *noise

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("could not create %s: %v", *output, err)
	}
	defer f.Close()
	if err := gen.WriteCSV(f); err != nil {
		log.Fatalf("writing session CSV: %v", err)
	}
	log.Printf("✓ Created: %s (%.0fs at %.1fHz)", *output, *duration, *rate)

	if *cgmOutput != "" {
		cf, err := os.Create(*cgmOutput)
		if err != nil {
			log.Fatalf("could not create %s: %v", *cgmOutput, err)
		}
		defer cf.Close()
		if err := gen.WriteCGMCSV(cf); err != nil {
			log.Fatalf("writing CGM CSV: %v", err)
		}
		log.Printf("✓ Created: %s", *cgmOutput)
	}
}
