package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/homescout/crimescope/internal/model"
)

// writeJSON pretty-prints v to path, or stdout when path is empty.
func writeJSON(path string, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode output")
	}
	out = append(out, '\n')

	if path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0644)
}

// renderAnalysis writes a human-readable report.
func renderAnalysis(w io.Writer, a *model.Analysis) {
	fmt.Fprintf(w, "Safety report for %s\n", a.Address)
	fmt.Fprintf(w, "  %.2f-mile radius, past %d months\n\n", a.RadiusMiles, a.MonthsBack)

	fmt.Fprintf(w, "Safety score: %d/100 (%s)\n", a.Score.Score, a.Score.Level)
	for _, line := range a.Score.Explanations {
		fmt.Fprintf(w, "  - %s\n", line)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Incidents: %d total, %.1f per month\n", a.Stats.TotalCrimes, a.Stats.CrimesPerMonth)
	for _, cat := range model.Categories {
		fmt.Fprintf(w, "  %-10s %4d (%.1f%%)\n", cat, a.Stats.ByCategory[cat], a.Stats.Percentages[cat])
	}
	if a.Stats.MostCommonCrime != "None" {
		fmt.Fprintf(w, "  most common: %s (%d)\n", a.Stats.MostCommonCrime, a.Stats.MostCommonCount)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Trend: %s (%d recent vs %d previous, %+.1f%%)\n",
		a.Trend.Direction, a.Trend.RecentCount, a.Trend.PreviousCount, a.Trend.ChangePct)

	if a.Comparison != nil {
		fmt.Fprintf(w, "Citywide: %s\n  %s\n", a.Comparison.Ranking, a.Comparison.Description)
	}

	if a.PossiblyIncomplete {
		fmt.Fprintln(w, "\nNote: the data source truncated at least one query; counts may be low.")
	}
}

// addressArg joins positional args into one address string.
func addressArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
