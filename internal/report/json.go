// Package report provides output formatters for krypton gate
// results in JSON and human-readable text formats.
package report

import (
	"encoding/json"
	"io"

	"github.com/unbound-force/krypton/internal/config"
	"github.com/unbound-force/krypton/internal/evaluate"
	"github.com/unbound-force/krypton/internal/grade"
)

// Thresholds echoes the limits a run was checked against. Unset
// limits are omitted.
type Thresholds struct {
	Absolute   *grade.Grade `json:"max_absolute,omitempty"`
	Modules    *grade.Grade `json:"max_modules,omitempty"`
	Average    *grade.Grade `json:"max_average,omitempty"`
	AverageNum *float64     `json:"max_average_num,omitempty"`
}

// Skipped is a module the analyzer could not measure.
type Skipped struct {
	Module string `json:"module"`
	Error  string `json:"error"`
}

// Summary is the top-level JSON output structure.
type Summary struct {
	Version      string                   `json:"version"`
	Passed       bool                     `json:"passed"`
	Infractions  int                      `json:"infractions"`
	Thresholds   Thresholds               `json:"thresholds"`
	Blocks       int                      `json:"blocks"`
	Average      float64                  `json:"average"`
	AverageGrade grade.Grade              `json:"average_grade"`
	Modules      []evaluate.ModuleAverage `json:"modules"`
	Violations   []evaluate.Violation     `json:"violations"`
	Skipped      []Skipped                `json:"skipped"`
}

// NewSummary builds the report for one evaluated run. Nil slices are
// replaced with empty ones so the JSON always carries arrays.
func NewSummary(version string, cfg *config.EffectiveConfig, res evaluate.Result) Summary {
	s := Summary{
		Version:     version,
		Passed:      res.Infractions == 0,
		Infractions: res.Infractions,
		Thresholds: Thresholds{
			Absolute:   cfg.AbsoluteThreshold,
			Modules:    cfg.ModuleThreshold,
			Average:    cfg.AverageThreshold,
			AverageNum: cfg.AverageNumThreshold,
		},
		Blocks:       res.Blocks,
		Average:      res.Average,
		AverageGrade: res.AverageGrade,
		Modules:      res.Modules,
		Violations:   res.Violations,
		Skipped:      make([]Skipped, 0, len(res.Skipped)),
	}
	for _, m := range res.Skipped {
		s.Skipped = append(s.Skipped, Skipped{Module: m.Name, Error: m.Err})
	}
	if s.Modules == nil {
		s.Modules = []evaluate.ModuleAverage{}
	}
	if s.Violations == nil {
		s.Violations = []evaluate.Violation{}
	}
	return s
}

// WriteJSON writes the gate summary as formatted JSON to the writer.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
