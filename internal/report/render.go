/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fulmenhq/hookrun/internal/executor"
)

const (
	diagnosticLineWidth = 120
	diagnosticMaxLines  = 40
)

var titleCaser = cases.Title(language.English)

// RenderJSON writes the machine-readable report. Ordering matches the
// human rendering: hook declaration order.
func (r *RunReport) RenderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// RenderPretty writes the human-readable summary.
func (r *RunReport) RenderPretty(w io.Writer, useColor bool) {
	fmt.Fprintf(w, "hookrun %s (stage %s, scope %s)\n\n", r.Version, r.Stage, r.Scope)

	nameWidth := 0
	for _, hr := range r.Results {
		if l := runewidth.StringWidth(hr.Name); l > nameWidth {
			nameWidth = l
		}
	}

	for _, hr := range r.Results {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			runewidth.FillRight(hr.Name, nameWidth),
			statusLabel(hr, useColor),
			hr.Duration.Round(timePrecision(hr.Duration)))
		if showOutput(hr) {
			for _, line := range truncateDiagnostics(hr.Output) {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}

	fmt.Fprintf(w, "\n%d hooks: %d passed, %d failed, %d errored, %d skipped",
		r.Summary.Total, r.Summary.Passed, r.Summary.Failed, r.Summary.Errored, r.Summary.Skipped)
	if r.Summary.Fixed > 0 {
		fmt.Fprintf(w, ", %d fixed", r.Summary.Fixed)
	}
	fmt.Fprintln(w)

	switch {
	case r.Success && r.FixesApplied:
		fmt.Fprintln(w, "Passed after automatic fixes; fixed files were modified in the working tree.")
	case r.Success:
		fmt.Fprintln(w, "All hooks passed.")
	default:
		fmt.Fprintln(w, "Run failed.")
	}
}

// statusLabel renders "Passed", "Failed [timeout]", "Passed (fixed)"...
func statusLabel(hr HookResult, useColor bool) string {
	label := titleCaser.String(string(hr.Status))
	if hr.Fixed && hr.Status == executor.StatusPassed {
		label += " (fixed)"
	}
	if hr.Cause != "" {
		label += fmt.Sprintf(" [%s]", hr.Cause)
	}
	if !useColor {
		return label
	}
	switch hr.Status {
	case executor.StatusPassed:
		return "\033[32m" + label + "\033[0m"
	case executor.StatusFailed, executor.StatusErrored:
		return "\033[31m" + label + "\033[0m"
	case executor.StatusSkipped:
		return "\033[33m" + label + "\033[0m"
	default:
		return label
	}
}

// showOutput decides whether a hook's captured output belongs in the
// pretty report: failures always, successes only when the hook asked
// for verbose passthrough (the Output field is already empty otherwise).
func showOutput(hr HookResult) bool {
	if hr.Output == "" {
		return false
	}
	return hr.Status != executor.StatusSkipped
}

// truncateDiagnostics bounds captured output to a readable excerpt:
// at most diagnosticMaxLines lines, each clipped to display width.
func truncateDiagnostics(output string) []string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	clipped := false
	if len(lines) > diagnosticMaxLines {
		lines = lines[:diagnosticMaxLines]
		clipped = true
	}
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		out = append(out, runewidth.Truncate(line, diagnosticLineWidth, "…"))
	}
	if clipped {
		out = append(out, "… output truncated")
	}
	return out
}

func timePrecision(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Millisecond
	}
	return 10 * time.Millisecond
}
