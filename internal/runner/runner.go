// Package runner materializes the model graph against a warehouse
// target: dependencies first, downstream models skipped when an
// upstream fails.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"martforge/internal/graph"
	"martforge/internal/model"
	"martforge/pkg/models"
)

// Executor is the slice of the warehouse service the runner needs.
type Executor interface {
	ExecuteSQL(ctx context.Context, sqlText string) error
}

// Status of one model within a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusDryRun  Status = "dry-run"
)

// Result records the outcome of one model.
type Result struct {
	Model    string
	Status   Status
	Duration time.Duration
	Error    error
	// SQL holds the rendered DDL for dry runs.
	SQL string
}

// Summary aggregates a whole run.
type Summary struct {
	Results  []Result
	Duration time.Duration
	// Latency percentiles over successful model materializations,
	// in milliseconds.
	LatencyP50 int64
	LatencyP95 int64
	LatencyMax int64
}

// Succeeded counts successful models.
func (s *Summary) Succeeded() int { return s.count(StatusSuccess) }

// Failed counts failed models.
func (s *Summary) Failed() int { return s.count(StatusFailed) }

// Skipped counts models skipped because an upstream failed.
func (s *Summary) Skipped() int { return s.count(StatusSkipped) }

func (s *Summary) count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Options select and shape a run.
type Options struct {
	// Select limits the run to these models plus their upstream
	// closure.
	Select []string
	// Tags limits the run to models carrying any of these tags.
	Tags []string
	// FullRefresh drops each object before recreating it.
	FullRefresh bool
	// DryRun renders DDL without executing anything.
	DryRun bool
	// OnResult, when set, is invoked after each model finishes with
	// the result and the done/total progress counts.
	OnResult func(res Result, done, total int)
}

// Runner executes models in dependency order.
type Runner struct {
	exec  Executor
	graph *graph.Graph
	vars  models.Vars
	hist  *hdrhistogram.Histogram
}

// New creates a runner over a built graph.
func New(exec Executor, g *graph.Graph, vars models.Vars) *Runner {
	return &Runner{
		exec:  exec,
		graph: g,
		vars:  vars,
		// 1ms..1h, 3 significant figures
		hist: hdrhistogram.New(1, 3_600_000, 3),
	}
}

// Run materializes the selected models. Model failures are recorded in
// the summary, not returned; the error return covers selection and
// rendering problems that prevent the run from starting.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	selected, err := r.graph.Select(opts.Select, opts.Tags)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	summary := &Summary{}
	skip := make(map[string]bool)

	record := func(res Result) {
		summary.Results = append(summary.Results, res)
		if opts.OnResult != nil {
			opts.OnResult(res, len(summary.Results), len(selected))
		}
	}

	for _, name := range selected {
		if skip[name] {
			record(Result{Model: name, Status: StatusSkipped})
			continue
		}

		m := r.graph.Model(name)
		ddl, err := r.buildDDL(m, opts.FullRefresh)
		if err != nil {
			record(r.failResult(name, err, skip))
			continue
		}

		if opts.DryRun {
			record(Result{
				Model:  name,
				Status: StatusDryRun,
				SQL:    ddl,
			})
			continue
		}

		modelStart := time.Now()
		if err := r.exec.ExecuteSQL(ctx, ddl); err != nil {
			record(r.failResult(name, err, skip))
			continue
		}
		elapsed := time.Since(modelStart)
		_ = r.hist.RecordValue(elapsed.Milliseconds())

		record(Result{
			Model:    name,
			Status:   StatusSuccess,
			Duration: elapsed,
		})
	}

	summary.Duration = time.Since(started)
	if r.hist.TotalCount() > 0 {
		summary.LatencyP50 = r.hist.ValueAtQuantile(50)
		summary.LatencyP95 = r.hist.ValueAtQuantile(95)
		summary.LatencyMax = r.hist.Max()
	}
	return summary, nil
}

// failResult builds a failure result and flags every transitive
// dependent for skipping.
func (r *Runner) failResult(name string, err error, skip map[string]bool) Result {
	for _, dep := range r.graph.Downstream(name) {
		skip[dep] = true
	}
	return Result{
		Model:  name,
		Status: StatusFailed,
		Error:  err,
	}
}

// buildDDL renders the model's statement batch. A full refresh drops
// the object first so stale columns never survive a rebuild.
func (r *Runner) buildDDL(m *model.Model, fullRefresh bool) (string, error) {
	ddl, err := m.DDL(r.vars)
	if err != nil {
		return "", err
	}
	if !fullRefresh {
		return ddl, nil
	}

	var b strings.Builder
	switch m.Materialized {
	case model.MaterializationTable:
		fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s;\n", m.Name)
	case model.MaterializationView:
		fmt.Fprintf(&b, "DROP VIEW IF EXISTS %s;\n", m.Name)
	}
	b.WriteString(ddl)
	return b.String(), nil
}
