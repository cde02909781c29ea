package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/persistwin/internal/engine"
	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/topology"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	fingerprintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var jsonOutput bool

// styled reports whether w is an interactive terminal. Styles are dropped
// for pipes and files so the output stays greppable.
func styled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func render(w io.Writer, style lipgloss.Style, s string) string {
	if !styled(w) {
		return s
	}
	return style.Render(s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

func printHeader(w io.Writer, cols ...string) {
	fmt.Fprintln(w, render(w, headerStyle, strings.Join(cols, "\t")))
}

func printObservation(w io.Writer, obs topology.Observation) {
	fmt.Fprintf(w, "Topology %d  %s\n", obs.ID, render(w, fingerprintStyle, obs.Fingerprint))
	if len(obs.Monitors) == 0 {
		fmt.Fprintln(w, render(w, dimStyle, "no monitors attached"))
		return
	}
	tw := newTable(w)
	printHeader(tw, "#", "RECT", "WORK AREA", "SIZE", "PRIMARY", "NAME")
	for i, m := range obs.Monitors {
		primary := ""
		if m.Primary {
			primary = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%dx%d\t%s\t%s\n", i, m.Rect, m.WorkArea, m.Rect.Width(), m.Rect.Height(), primary, m.Name)
	}
	tw.Flush()
}

func printResult(w io.Writer, op string, obs topology.Observation, res engine.BatchResult) {
	failed := fmt.Sprintf("%d failed", res.Failed)
	if res.Failed > 0 {
		failed = render(w, failStyle, failed)
	}
	fmt.Fprintf(w, "%s under topology %d (%s): %s of %d windows, %d skipped, %s\n",
		op, obs.ID, render(w, fingerprintStyle, obs.Fingerprint),
		render(w, countStyle, fmt.Sprint(res.Applied)), res.Total, res.Skipped, failed)
}

func rects(rs []platform.Rect) string {
	if len(rs) == 0 {
		return "-"
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

// truncate shortens s to n runes for table cells.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
