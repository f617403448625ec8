// Package gate runs one complete quality-gate pass: harvest the
// complexity report, evaluate it, log the infractions, optionally
// export metrics and post the results, and decide the exit code.
package gate

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/unbound-force/krypton/internal/api"
	"github.com/unbound-force/krypton/internal/config"
	"github.com/unbound-force/krypton/internal/evaluate"
	"github.com/unbound-force/krypton/internal/harvest"
	"github.com/unbound-force/krypton/internal/metrics"
	"github.com/unbound-force/krypton/internal/report"
	"github.com/unbound-force/krypton/internal/repository"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitInfractions = 1
	ExitUsage       = 2
	ExitRejected    = 3
)

// ExitError carries the process exit code of a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Analyzer produces the complexity report for paths.
type Analyzer func(ctx context.Context, paths []string, opts harvest.Options) (*harvest.Report, error)

// Poster sends a payload to a collection endpoint.
type Poster interface {
	Post(ctx context.Context, url string, p api.Payload) (*api.Response, error)
}

// GitInspector reads the git metadata of the tree at root.
type GitInspector func(ctx context.Context, root string) (*repository.Info, error)

// Runner holds the collaborators of a gate run. Nil fields fall back
// to the real implementations.
type Runner struct {
	Logger  *log.Logger
	Analyze Analyzer
	Poster  Poster
	Git     GitInspector

	// Env is the environment snapshot used for CI branch detection.
	Env map[string]string

	// Version is stamped into the summary.
	Version string
}

// Outcome is everything a run produced.
type Outcome struct {
	Report  *harvest.Report
	Result  evaluate.Result
	Summary report.Summary

	// Response is the endpoint answer, nil when nothing was posted.
	Response *api.Response

	// Code is the process exit code.
	Code int
}

// Err returns an *ExitError for a non-zero Code, nil otherwise.
func (o *Outcome) Err() error {
	switch o.Code {
	case ExitOK:
		return nil
	case ExitInfractions:
		return &ExitError{Code: o.Code, Message: fmt.Sprintf("%d threshold violation(s)", o.Result.Infractions)}
	default:
		return &ExitError{Code: o.Code, Message: "the reporting endpoint returned an error"}
	}
}

// Run executes the gate for cfg. Analysis and metrics failures are
// returned as an *ExitError with ExitUsage; every other failure mode
// is expressed in Outcome.Code.
func (r Runner) Run(ctx context.Context, cfg *config.EffectiveConfig) (*Outcome, error) {
	logger := r.logger()

	analyze := r.Analyze
	if analyze == nil {
		analyze = harvest.Harvest
	}

	logger.Debug("harvesting complexity", "paths", cfg.Paths)
	rep, err := analyze(ctx, cfg.Paths, harvest.Options{
		Exclude:  cfg.Exclude,
		Ignore:   cfg.Ignore,
		NoAssert: cfg.NoAssert,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("analysis failed: %v", err)}
	}
	for _, m := range rep.Failures() {
		logger.Warn("cannot parse "+m.Name, "err", m.Err)
	}

	res := evaluate.Evaluate(cfg, rep)
	if v, ok := evaluate.CheckAverageNum(res, cfg.AverageNumThreshold); ok {
		res.Violations = append(res.Violations, v)
		res.Infractions++
	}
	logViolations(logger, res.Violations, cfg)
	logger.Debug("evaluation complete",
		"modules", len(res.Modules), "blocks", res.Blocks, "infractions", res.Infractions)

	out := &Outcome{
		Report:  rep,
		Result:  res,
		Summary: report.NewSummary(r.Version, cfg, res),
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, res); err != nil {
			return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
		}
		logger.Debug("metrics written", "file", cfg.MetricsFile)
	}

	rejected := false
	if cfg.URL != "" {
		resp, err := r.post(ctx, cfg, rep)
		if err != nil {
			logger.Error("posting results failed", "url", cfg.URL, "err", err)
			rejected = true
		} else {
			logger.Info(fmt.Sprintf("HTTP: %d", resp.StatusCode))
			logger.Info("HTTP: " + resp.Body)
			out.Response = resp
			rejected = resp.Rejected
		}
	}

	switch {
	case res.Infractions > 0:
		out.Code = ExitInfractions
	case rejected:
		out.Code = ExitRejected
	default:
		out.Code = ExitOK
	}
	return out, nil
}

func (r Runner) post(ctx context.Context, cfg *config.EffectiveConfig, rep *harvest.Report) (*api.Response, error) {
	inspect := r.Git
	if inspect == nil {
		inspect = repository.Inspector{Env: r.Env}.Inspect
	}
	poster := r.Poster
	if poster == nil {
		poster = api.NewClient()
	}

	git, err := inspect(ctx, cfg.Paths[0])
	if err != nil {
		r.logger().Warn("git metadata unavailable", "err", err)
	}

	return poster.Post(ctx, cfg.URL, api.Payload{
		ServiceJobID: cfg.Credentials.ServiceJobID,
		ServiceName:  cfg.Credentials.ServiceName,
		Git:          git,
		CCData:       rep,
		RepoToken:    cfg.Credentials.RepoToken,
	})
}

func logViolations(logger *log.Logger, violations []evaluate.Violation, cfg *config.EffectiveConfig) {
	for _, v := range violations {
		switch {
		case v.Scope == evaluate.BlockScope:
			logger.Errorf("block %q has a rank of %s", report.Location(v), v.Grade)
		case v.Scope == evaluate.ModuleScope:
			logger.Errorf("module %q has a rank of %s", v.Module, v.Grade)
		case v.Subject == "average_num":
			logger.Errorf("average complexity is %.2f, above the limit of %g", v.Value, *cfg.AverageNumThreshold)
		default:
			logger.Errorf("average complexity is ranked %s", v.Grade)
		}
	}
}

func (r Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
