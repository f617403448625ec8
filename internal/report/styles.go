package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/unbound-force/krypton/internal/grade"
)

// Styles defines the visual theme for terminal report output.
// Lipgloss automatically degrades to no-color when output is not a TTY.
type Styles struct {
	// Header is used for section headers (e.g. "--- Summary ---").
	Header lipgloss.Style

	// SubHeader is used for secondary information lines.
	SubHeader lipgloss.Style

	// GradeA through GradeF color-code ranks.
	GradeA lipgloss.Style
	GradeB lipgloss.Style
	GradeC lipgloss.Style
	GradeD lipgloss.Style
	GradeE lipgloss.Style
	GradeF lipgloss.Style

	// TableHeader styles the header row of tables.
	TableHeader lipgloss.Style

	// TableCell styles regular table cells.
	TableCell lipgloss.Style

	// SummaryLabel styles summary line labels.
	SummaryLabel lipgloss.Style

	// SummaryValue styles summary line values.
	SummaryValue lipgloss.Style

	// Pass styles PASS indicators.
	Pass lipgloss.Style

	// Fail styles FAIL indicators.
	Fail lipgloss.Style

	// Border is used for table borders.
	Border lipgloss.Style

	// Muted is used for de-emphasized text.
	Muted lipgloss.Style
}

// DefaultStyles returns the default color scheme for terminal reports.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		SubHeader: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),

		GradeA: lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
		GradeB: lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		GradeC: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		GradeD: lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		GradeE: lipgloss.NewStyle().Foreground(lipgloss.Color("202")),
		GradeF: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),

		TableHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		TableCell:   lipgloss.NewStyle().PaddingRight(1),

		SummaryLabel: lipgloss.NewStyle().Bold(true).Width(22),
		SummaryValue: lipgloss.NewStyle(),

		Pass: lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true),
		Fail: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color("63")),

		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// GradeStyle returns the appropriate style for a rank.
func (s Styles) GradeStyle(g grade.Grade) lipgloss.Style {
	switch g {
	case grade.A:
		return s.GradeA
	case grade.B:
		return s.GradeB
	case grade.C:
		return s.GradeC
	case grade.D:
		return s.GradeD
	case grade.E:
		return s.GradeE
	case grade.F:
		return s.GradeF
	default:
		return s.Muted
	}
}
