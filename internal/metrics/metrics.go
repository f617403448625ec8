// Package metrics exports gate results as Prometheus gauges, written
// to a node_exporter textfile collector file.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unbound-force/krypton/internal/evaluate"
	"github.com/unbound-force/krypton/internal/grade"
)

const namespace = "krypton"

// Gauges holds the collectors for one gate run.
type Gauges struct {
	Infractions   prometheus.Gauge
	Blocks        prometheus.Gauge
	Modules       prometheus.Gauge
	Skipped       prometheus.Gauge
	Average       prometheus.Gauge
	AverageRank   prometheus.Gauge
	ModuleAverage *prometheus.GaugeVec
	Violations    *prometheus.GaugeVec
}

// New creates the gauges and registers them with reg.
func New(reg prometheus.Registerer) (*Gauges, error) {
	g := &Gauges{
		Infractions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "infractions",
			Help:      "Number of threshold violations in the last run.",
		}),
		Blocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocks",
			Help:      "Number of blocks evaluated.",
		}),
		Modules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modules",
			Help:      "Number of modules evaluated.",
		}),
		Skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "skipped_modules",
			Help:      "Number of modules the analyzer could not parse.",
		}),
		Average: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "average_complexity",
			Help:      "Project-wide mean cyclomatic complexity.",
		}),
		AverageRank: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "average_rank",
			Help:      "Rank of the project average, 1 (A) to 6 (F).",
		}),
		ModuleAverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_average_complexity",
			Help:      "Mean cyclomatic complexity per module.",
		}, []string{"module"}),
		Violations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "violations",
			Help:      "Threshold violations by scope.",
		}, []string{"scope"}),
	}

	for _, c := range []prometheus.Collector{
		g.Infractions, g.Blocks, g.Modules, g.Skipped,
		g.Average, g.AverageRank, g.ModuleAverage, g.Violations,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}
	return g, nil
}

// Observe sets every gauge from res.
func (g *Gauges) Observe(res evaluate.Result) {
	g.Infractions.Set(float64(res.Infractions))
	g.Blocks.Set(float64(res.Blocks))
	g.Modules.Set(float64(len(res.Modules)))
	g.Skipped.Set(float64(len(res.Skipped)))
	g.Average.Set(res.Average)
	g.AverageRank.Set(float64(ordinal(res.AverageGrade)))

	for _, m := range res.Modules {
		g.ModuleAverage.WithLabelValues(m.Module).Set(m.Average)
	}
	for _, scope := range []evaluate.Scope{evaluate.BlockScope, evaluate.ModuleScope, evaluate.ProjectScope} {
		g.Violations.WithLabelValues(string(scope)).Set(0)
	}
	for _, v := range res.Violations {
		g.Violations.WithLabelValues(string(v.Scope)).Inc()
	}
}

// WriteTextfile writes res to path in the Prometheus text format. The
// file is replaced atomically.
func WriteTextfile(path string, res evaluate.Result) error {
	reg := prometheus.NewRegistry()
	g, err := New(reg)
	if err != nil {
		return err
	}
	g.Observe(res)
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}

// ordinal maps A..F to 1..6, 0 for an unknown grade.
func ordinal(g grade.Grade) int {
	for i, x := range grade.All {
		if x == g {
			return i + 1
		}
	}
	return 0
}
