package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martforge/internal/model"
	"martforge/pkg/errors"
)

func testCatalog() []model.Model {
	return []model.Model{
		{Name: "stg_users", Materialized: model.MaterializationView, SQL: "SELECT 1", Tags: []string{"staging"}},
		{Name: "stg_events", Materialized: model.MaterializationView, SQL: "SELECT 1", Tags: []string{"staging"}},
		{Name: "stg_sales", Materialized: model.MaterializationView, SQL: "SELECT 1", Tags: []string{"staging"}},
		{Name: "mart_sessions", Materialized: model.MaterializationTable, SQL: "SELECT 1",
			Tags: []string{"mart"}, Refs: []string{"stg_events"}},
		{Name: "mart_cohorts", Materialized: model.MaterializationTable, SQL: "SELECT 1",
			Tags: []string{"mart"}, Refs: []string{"stg_users", "stg_sales"}},
	}
}

func TestBuildOrder(t *testing.T) {
	g, err := Build(testCatalog())
	require.NoError(t, err)

	order := g.Order()
	assert.Equal(t, []string{"stg_events", "mart_sessions", "stg_sales", "stg_users", "mart_cohorts"}, order)

	// Deterministic across rebuilds.
	g2, err := Build(testCatalog())
	require.NoError(t, err)
	assert.Equal(t, order, g2.Order())
}

func TestBuildCycle(t *testing.T) {
	catalog := []model.Model{
		{Name: "a", Materialized: model.MaterializationView, SQL: "SELECT 1", Refs: []string{"b"}},
		{Name: "b", Materialized: model.MaterializationView, SQL: "SELECT 1", Refs: []string{"c"}},
		{Name: "c", Materialized: model.MaterializationView, SQL: "SELECT 1", Refs: []string{"a"}},
	}

	_, err := Build(catalog)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDependencyCycle, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "->")
}

func TestSelect(t *testing.T) {
	g, err := Build(testCatalog())
	require.NoError(t, err)

	t.Run("empty selection is the whole graph", func(t *testing.T) {
		sel, err := g.Select(nil, nil)
		require.NoError(t, err)
		assert.Len(t, sel, 5)
	})

	t.Run("by name includes upstream closure", func(t *testing.T) {
		sel, err := g.Select([]string{"mart_cohorts"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"stg_sales", "stg_users", "mart_cohorts"}, sel)
	})

	t.Run("by tag", func(t *testing.T) {
		sel, err := g.Select(nil, []string{"staging"})
		require.NoError(t, err)
		assert.Equal(t, []string{"stg_events", "stg_sales", "stg_users"}, sel)
	})

	t.Run("mart tag pulls staging upstream", func(t *testing.T) {
		sel, err := g.Select(nil, []string{"mart"})
		require.NoError(t, err)
		assert.Len(t, sel, 5)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := g.Select([]string{"mart_ghost"}, nil)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeModelNotFound, errors.GetErrorCode(err))
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := g.Select(nil, []string{"ghost"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeModelNotFound, errors.GetErrorCode(err))
	})
}

func TestDownstream(t *testing.T) {
	g, err := Build(testCatalog())
	require.NoError(t, err)

	assert.Equal(t, []string{"mart_sessions"}, g.Downstream("stg_events"))
	assert.Empty(t, g.Downstream("mart_sessions"))
	assert.Equal(t, []string{"mart_cohorts"}, g.Downstream("stg_users"))
}

func TestBuiltInCatalogBuilds(t *testing.T) {
	g, err := Build(model.Catalog())
	require.NoError(t, err)

	order := g.Order()
	require.Len(t, order, 8)
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["stg_events"], pos["mart_user_sessions"])
	assert.Less(t, pos["stg_users"], pos["mart_cohort_analysis"])
	assert.Less(t, pos["stg_sales"], pos["mart_sales_window"])
}
