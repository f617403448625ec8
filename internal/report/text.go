package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/unbound-force/krypton/internal/evaluate"
)

// WriteText writes the gate summary as human-readable styled text
// to the writer. Output uses lipgloss for color and formatting when
// the output is a TTY; degrades gracefully for pipes and CI.
func WriteText(w io.Writer, summary Summary) error {
	s := DefaultStyles()

	if len(summary.Violations) == 0 {
		fmt.Fprintln(w, s.Muted.Render("No threshold violations."))
	} else {
		writeViolations(w, summary.Violations, s)
	}

	if len(summary.Skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Header.Render("--- Skipped Modules ---"))
		for _, sk := range summary.Skipped {
			fmt.Fprintln(w, s.Muted.Render(truncate("  "+sk.Module+": "+sk.Error, 78)))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, s.Header.Render("--- Summary ---"))
	fmt.Fprintf(w, "%s  %d\n", s.SummaryLabel.Render("Modules analyzed:"), len(summary.Modules))
	fmt.Fprintf(w, "%s  %d\n", s.SummaryLabel.Render("Blocks analyzed:"), summary.Blocks)
	fmt.Fprintf(w, "%s  %.2f (%s)\n", s.SummaryLabel.Render("Average complexity:"),
		summary.Average, s.GradeStyle(summary.AverageGrade).Render(summary.AverageGrade.String()))
	fmt.Fprintf(w, "%s  %s\n", s.SummaryLabel.Render("Thresholds:"), thresholdLine(summary.Thresholds))

	infractions := fmt.Sprintf("%d", summary.Infractions)
	result := s.Pass.Render("PASS")
	if !summary.Passed {
		infractions = s.Fail.Render(infractions)
		result = s.Fail.Render("FAIL")
	}
	fmt.Fprintf(w, "%s  %s\n", s.SummaryLabel.Render("Infractions:"), infractions)
	fmt.Fprintf(w, "%s  %s\n", s.SummaryLabel.Render("Result:"), result)

	return nil
}

func writeViolations(w io.Writer, violations []evaluate.Violation, s Styles) {
	// Budget: 80 cols total. Borders take 5 for 4 columns, cell padding
	// 4 more. SCOPE=7, RANK=4, VALUE=6 leaves 50 for the subject.
	const maxSubject = 50
	rows := make([][]string, 0, len(violations))
	for _, v := range violations {
		rows = append(rows, []string{
			string(v.Scope),
			v.Grade.String(),
			fmt.Sprintf("%.2f", v.Value),
			truncate(Location(v), maxSubject),
		})
	}

	t := table.New().
		Width(76).
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			if col == 1 && row >= 0 && row < len(violations) {
				return s.GradeStyle(violations[row].Grade)
			}
			return s.TableCell
		}).
		Headers("SCOPE", "RANK", "VALUE", "SUBJECT").
		Rows(rows...)

	fmt.Fprintln(w, t)
}

// Location renders the subject of a violation for humans:
// "module:line name" for blocks, the module name for modules and
// "average" for the project.
func Location(v evaluate.Violation) string {
	if v.Scope == evaluate.BlockScope {
		return fmt.Sprintf("%s:%d %s", v.Module, v.Line, v.Block)
	}
	return v.Subject
}

func thresholdLine(t Thresholds) string {
	var parts []string
	if t.Absolute != nil {
		parts = append(parts, "absolute "+t.Absolute.String())
	}
	if t.Modules != nil {
		parts = append(parts, "modules "+t.Modules.String())
	}
	if t.Average != nil {
		parts = append(parts, "average "+t.Average.String())
	}
	if t.AverageNum != nil {
		parts = append(parts, fmt.Sprintf("average num %g", *t.AverageNum))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// truncate shortens s to at most n runes, ending in "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
