// Package evaluate checks a complexity report against the configured
// grade thresholds and produces the resulting infractions.
//
// Three axes are checked independently: every block against the
// absolute threshold, every module average against the modules
// threshold and the project-wide average against the average
// threshold. A grade equal to its threshold passes.
package evaluate

import (
	"fmt"

	"github.com/unbound-force/krypton/internal/config"
	"github.com/unbound-force/krypton/internal/grade"
	"github.com/unbound-force/krypton/internal/harvest"
)

// Scope identifies what a violation was measured on.
type Scope string

// Violation scopes.
const (
	BlockScope   Scope = "block"
	ModuleScope  Scope = "module"
	ProjectScope Scope = "project"
)

// Violation is one threshold infraction.
type Violation struct {
	Scope Scope `json:"scope"`

	// Subject is the module name for module scope, "average" for the
	// project grade, "average_num" for the numeric project ceiling and
	// "block:<module>:<lineno>:<name>" for blocks.
	Subject string `json:"subject"`

	// Grade is the rank that exceeded the threshold.
	Grade grade.Grade `json:"grade"`

	// Value is the ranked number: the block complexity or the
	// module/project average.
	Value float64 `json:"value"`

	// Module, Line and Block locate block violations.
	Module string `json:"module,omitempty"`
	Line   int    `json:"line,omitempty"`
	Block  string `json:"block,omitempty"`
}

// ModuleAverage is the mean block complexity of one analyzed module.
type ModuleAverage struct {
	Module  string      `json:"module"`
	Blocks  int         `json:"blocks"`
	Average float64     `json:"average"`
	Grade   grade.Grade `json:"grade"`
}

// Result is the outcome of one evaluation pass.
type Result struct {
	// Infractions is the number of violations found.
	Infractions int

	// Violations are ordered: block violations in module discovery
	// order, then the project violation, then module violations.
	Violations []Violation

	// Modules holds the averages of analyzed modules, in discovery
	// order.
	Modules []ModuleAverage

	// Skipped lists modules whose analyzer error marker excluded them
	// from evaluation.
	Skipped []harvest.Module

	// Blocks is the number of blocks evaluated.
	Blocks int

	// Average is the project-wide mean block complexity, 0 when no
	// block was evaluated.
	Average float64

	// AverageGrade is the rank of Average.
	AverageGrade grade.Grade
}

// Evaluator ranks scores with Rank. The zero value uses grade.Rank.
type Evaluator struct {
	Rank grade.RankFunc
}

// Evaluate runs the threshold checks with the default rank function.
func Evaluate(cfg *config.EffectiveConfig, report *harvest.Report) Result {
	return Evaluator{}.Evaluate(cfg, report)
}

// tally accumulates infractions for one evaluation pass.
type tally struct {
	count      int
	violations []Violation
}

func (t *tally) add(v Violation) {
	t.count++
	t.violations = append(t.violations, v)
}

// Evaluate checks report against the grade thresholds of cfg. It is a
// pure function of its inputs.
func (e Evaluator) Evaluate(cfg *config.EffectiveConfig, report *harvest.Report) Result {
	rank := e.Rank
	if rank == nil {
		rank = grade.Rank
	}

	var (
		acc        tally
		res        Result
		totalCC    float64
		totalCount int
	)

	for _, mod := range report.Modules {
		if mod.Failed() {
			res.Skipped = append(res.Skipped, mod)
			continue
		}

		var moduleCC float64
		for _, b := range mod.Blocks {
			r := rank(float64(b.Complexity))
			if r.Exceeds(cfg.AbsoluteThreshold) {
				acc.add(Violation{
					Scope:   BlockScope,
					Subject: fmt.Sprintf("block:%s:%d:%s", mod.Name, b.Lineno, b.Name),
					Grade:   r,
					Value:   float64(b.Complexity),
					Module:  mod.Name,
					Line:    b.Lineno,
					Block:   b.Name,
				})
			}
			moduleCC += float64(b.Complexity)
		}

		avg := average(moduleCC, len(mod.Blocks))
		res.Modules = append(res.Modules, ModuleAverage{
			Module:  mod.Name,
			Blocks:  len(mod.Blocks),
			Average: avg,
			Grade:   rank(avg),
		})
		totalCC += moduleCC
		totalCount += len(mod.Blocks)
	}

	res.Blocks = totalCount
	res.Average = average(totalCC, totalCount)
	res.AverageGrade = rank(res.Average)
	if res.AverageGrade.Exceeds(cfg.AverageThreshold) {
		acc.add(Violation{
			Scope:   ProjectScope,
			Subject: "average",
			Grade:   res.AverageGrade,
			Value:   res.Average,
		})
	}

	for _, m := range res.Modules {
		if m.Grade.Exceeds(cfg.ModuleThreshold) {
			acc.add(Violation{
				Scope:   ModuleScope,
				Subject: m.Module,
				Grade:   m.Grade,
				Value:   m.Average,
				Module:  m.Module,
			})
		}
	}

	res.Infractions = acc.count
	res.Violations = acc.violations
	return res
}

// CheckAverageNum checks the raw project average against a numeric
// ceiling. It is a separate axis from the average grade threshold and
// is applied by the caller; both may fire for the same run.
func CheckAverageNum(res Result, max *float64) (Violation, bool) {
	if max == nil || res.Average <= *max {
		return Violation{}, false
	}
	return Violation{
		Scope:   ProjectScope,
		Subject: "average_num",
		Grade:   res.AverageGrade,
		Value:   res.Average,
	}, true
}

// average returns n/m, or 0 when m is 0.
func average(n float64, m int) float64 {
	if m == 0 {
		return 0
	}
	return n / float64(m)
}
