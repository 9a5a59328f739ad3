package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleReportChart renders a bar chart (HTML) of a report's per-chunk
// Shapley values using go-echarts. This is a debugging/review endpoint, not
// part of the scoring contract.
func (s *Server) handleReportChart(w http.ResponseWriter, r *http.Request) {
	reportID := strings.TrimPrefix(r.URL.Path, "/api/charts/report/")
	if reportID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "missing report id")
		return
	}

	rep, err := s.db.GetReport(reportID)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, "no such report")
		return
	}

	values, err := reportValues(rep)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("decoding chunk values: %v", err))
		return
	}
	if len(values) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "report carries no chunk values")
		return
	}

	x := make([]string, len(values))
	y := make([]opts.BarData, len(values))
	for i, v := range values {
		x[i] = fmt.Sprintf("chunk %d", v.ChunkID)
		y[i] = opts.BarData{Value: v.Value}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Shapley values: session %s", rep.SessionID),
			Subtitle: fmt.Sprintf("mode=%s iterations=%d score=%d", rep.Mode, rep.Iterations, rep.Score),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("shapley", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
