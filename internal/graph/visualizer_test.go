package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martforge/internal/model"
)

func TestRenderLineage(t *testing.T) {
	g, err := Build(model.Catalog())
	require.NoError(t, err)

	out, err := g.RenderLineage("stg_sales")
	require.NoError(t, err)
	assert.Contains(t, out, "raw_sales")
	assert.Contains(t, out, "stg_sales")
	assert.Contains(t, out, "mart_cohort_analysis")
	assert.Contains(t, out, "mart_sales_window")

	_, err = g.RenderLineage("nope")
	assert.Error(t, err)
}

func TestRenderOverview(t *testing.T) {
	g, err := Build(model.Catalog())
	require.NoError(t, err)

	out := g.RenderOverview()
	for _, name := range g.Order() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "raw_events")
}
