package runner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martforge/internal/graph"
	"martforge/internal/model"
	"martforge/pkg/models"
)

// fakeExecutor records executed batches and fails models by name.
type fakeExecutor struct {
	executed []string
	failOn   map[string]bool
}

func (f *fakeExecutor) ExecuteSQL(ctx context.Context, sqlText string) error {
	f.executed = append(f.executed, sqlText)
	for name := range f.failOn {
		if strings.Contains(sqlText, name) {
			return fmt.Errorf("boom: %s", name)
		}
	}
	return nil
}

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	catalog := []model.Model{
		{Name: "stg_events", Materialized: model.MaterializationView, SQL: "SELECT 1 -- stg_events", Tags: []string{"staging"}},
		{Name: "stg_users", Materialized: model.MaterializationView, SQL: "SELECT 1 -- stg_users", Tags: []string{"staging"}},
		{Name: "mart_sessions", Materialized: model.MaterializationTable, SQL: "SELECT 1 -- mart_sessions",
			Tags: []string{"mart"}, Refs: []string{"stg_events"}},
		{Name: "mart_cohorts", Materialized: model.MaterializationTable, SQL: "SELECT 1 -- mart_cohorts",
			Tags: []string{"mart"}, Refs: []string{"stg_users"}},
	}
	g, err := graph.Build(catalog)
	require.NoError(t, err)
	return g
}

func TestRun(t *testing.T) {
	t.Run("runs everything in dependency order", func(t *testing.T) {
		exec := &fakeExecutor{}
		r := New(exec, testGraph(t), models.DefaultVars())

		summary, err := r.Run(context.Background(), Options{})
		require.NoError(t, err)

		assert.Equal(t, 4, summary.Succeeded())
		assert.Zero(t, summary.Failed())
		require.Len(t, exec.executed, 4)

		pos := func(name string) int {
			for i, sql := range exec.executed {
				if strings.Contains(sql, name) {
					return i
				}
			}
			t.Fatalf("model %s never executed", name)
			return -1
		}
		assert.Less(t, pos("stg_events"), pos("mart_sessions"))
		assert.Less(t, pos("stg_users"), pos("mart_cohorts"))
	})

	t.Run("failure skips downstream only", func(t *testing.T) {
		exec := &fakeExecutor{failOn: map[string]bool{"stg_events": true}}
		r := New(exec, testGraph(t), models.DefaultVars())

		summary, err := r.Run(context.Background(), Options{})
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Failed())
		assert.Equal(t, 1, summary.Skipped())
		assert.Equal(t, 2, summary.Succeeded())

		byModel := make(map[string]Result)
		for _, res := range summary.Results {
			byModel[res.Model] = res
		}
		assert.Equal(t, StatusFailed, byModel["stg_events"].Status)
		assert.Error(t, byModel["stg_events"].Error)
		assert.Equal(t, StatusSkipped, byModel["mart_sessions"].Status)
		assert.Equal(t, StatusSuccess, byModel["mart_cohorts"].Status)
	})

	t.Run("selection by name pulls upstream", func(t *testing.T) {
		exec := &fakeExecutor{}
		r := New(exec, testGraph(t), models.DefaultVars())

		summary, err := r.Run(context.Background(), Options{Select: []string{"mart_sessions"}})
		require.NoError(t, err)

		require.Len(t, summary.Results, 2)
		assert.Equal(t, "stg_events", summary.Results[0].Model)
		assert.Equal(t, "mart_sessions", summary.Results[1].Model)
	})

	t.Run("selection by tag", func(t *testing.T) {
		exec := &fakeExecutor{}
		r := New(exec, testGraph(t), models.DefaultVars())

		summary, err := r.Run(context.Background(), Options{Tags: []string{"staging"}})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Succeeded())
	})

	t.Run("unknown selection fails before executing", func(t *testing.T) {
		exec := &fakeExecutor{}
		r := New(exec, testGraph(t), models.DefaultVars())

		_, err := r.Run(context.Background(), Options{Select: []string{"mart_ghost"}})
		assert.Error(t, err)
		assert.Empty(t, exec.executed)
	})

	t.Run("dry run renders without executing", func(t *testing.T) {
		exec := &fakeExecutor{}
		r := New(exec, testGraph(t), models.DefaultVars())

		summary, err := r.Run(context.Background(), Options{DryRun: true})
		require.NoError(t, err)

		assert.Empty(t, exec.executed)
		for _, res := range summary.Results {
			assert.Equal(t, StatusDryRun, res.Status)
			assert.NotEmpty(t, res.SQL)
		}
	})

	t.Run("full refresh drops before create", func(t *testing.T) {
		exec := &fakeExecutor{}
		r := New(exec, testGraph(t), models.DefaultVars())

		summary, err := r.Run(context.Background(), Options{
			Select:      []string{"mart_sessions"},
			FullRefresh: true,
			DryRun:      true,
		})
		require.NoError(t, err)

		require.Len(t, summary.Results, 2)
		assert.True(t, strings.HasPrefix(summary.Results[0].SQL, "DROP VIEW IF EXISTS stg_events;"))
		assert.True(t, strings.HasPrefix(summary.Results[1].SQL, "DROP TABLE IF EXISTS mart_sessions;"))
		assert.Contains(t, summary.Results[1].SQL, "CREATE OR REPLACE TABLE mart_sessions AS")
	})

	t.Run("reports each result as it lands", func(t *testing.T) {
		exec := &fakeExecutor{failOn: map[string]bool{"stg_events": true}}
		r := New(exec, testGraph(t), models.DefaultVars())

		type tick struct {
			model  string
			status Status
			done   int
			total  int
		}
		var ticks []tick
		summary, err := r.Run(context.Background(), Options{
			OnResult: func(res Result, done, total int) {
				ticks = append(ticks, tick{res.Model, res.Status, done, total})
			},
		})
		require.NoError(t, err)

		require.Len(t, ticks, len(summary.Results))
		for i, tk := range ticks {
			assert.Equal(t, summary.Results[i].Model, tk.model)
			assert.Equal(t, i+1, tk.done)
			assert.Equal(t, 4, tk.total)
		}

		statuses := make(map[string]Status)
		for _, tk := range ticks {
			statuses[tk.model] = tk.status
		}
		assert.Equal(t, StatusFailed, statuses["stg_events"])
		assert.Equal(t, StatusSkipped, statuses["mart_sessions"])
		assert.Equal(t, StatusSuccess, statuses["mart_cohorts"])
	})

	t.Run("latency percentiles populated", func(t *testing.T) {
		exec := &fakeExecutor{}
		r := New(exec, testGraph(t), models.DefaultVars())

		summary, err := r.Run(context.Background(), Options{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, summary.LatencyMax, summary.LatencyP50)
	})
}
