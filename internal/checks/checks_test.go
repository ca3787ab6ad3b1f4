package checks

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martforge/internal/model"
	"martforge/pkg/errors"
	"martforge/pkg/models"
)

// fakeQuerier answers count queries by substring match.
type fakeQuerier struct {
	queries    []string
	violations map[string]int64
	failOn     string
}

func (f *fakeQuerier) QueryCount(ctx context.Context, query string) (int64, error) {
	f.queries = append(f.queries, query)
	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return 0, fmt.Errorf("relation does not exist")
	}
	for fragment, n := range f.violations {
		if strings.Contains(query, fragment) {
			return n, nil
		}
	}
	return 0, nil
}

func checkedCatalog() []model.Model {
	return []model.Model{
		{
			Name: "stg_users", Materialized: model.MaterializationView, SQL: "SELECT 1",
			Checks: []model.Check{
				{Type: "not_null", Column: "user_id"},
				{Type: "accepted_values", Column: "device_type", Values: []string{"desktop", "mobile"}},
			},
		},
		{
			Name: "mart_cohort_analysis", Materialized: model.MaterializationTable, SQL: "SELECT 1",
			Checks: []model.Check{
				{Type: "bounded", Column: "retention_rate_pct", Min: 0, Max: 100},
				{Type: "expression", Column: "active_users", Expression: "cohort_size >= active_users"},
			},
		},
	}
}

func TestRun(t *testing.T) {
	t.Run("all passing", func(t *testing.T) {
		q := &fakeQuerier{}
		results, err := Run(context.Background(), q, checkedCatalog(), models.ChecksConfig{Enabled: true})
		require.NoError(t, err)
		require.Len(t, results, 4)
		for _, r := range results {
			assert.True(t, r.Passed, r.Name)
		}

		assert.Contains(t, q.queries[0], "SELECT COUNT(*) FROM stg_users WHERE user_id IS NULL")
		assert.Contains(t, q.queries[1], "device_type NOT IN ('desktop', 'mobile')")
		assert.Contains(t, q.queries[2], "retention_rate_pct < 0 OR retention_rate_pct > 100")
		assert.Contains(t, q.queries[3], "NOT (cohort_size >= active_users)")
	})

	t.Run("violations fail the run", func(t *testing.T) {
		q := &fakeQuerier{violations: map[string]int64{"user_id IS NULL": 3}}
		results, err := Run(context.Background(), q, checkedCatalog(), models.ChecksConfig{Enabled: true})

		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeCheckFailed, errors.GetErrorCode(err))

		byName := make(map[string]Result)
		for _, r := range results {
			byName[r.Name] = r
		}
		failed := byName["stg_users.not_null.user_id"]
		assert.False(t, failed.Passed)
		assert.Equal(t, int64(3), failed.Violations)
	})

	t.Run("query error is a failure", func(t *testing.T) {
		q := &fakeQuerier{failOn: "mart_cohort_analysis"}
		results, err := Run(context.Background(), q, checkedCatalog(), models.ChecksConfig{Enabled: true})

		require.Error(t, err)
		errored := 0
		for _, r := range results {
			if r.Error != nil {
				errored++
			}
		}
		assert.Equal(t, 2, errored)
	})

	t.Run("skip list", func(t *testing.T) {
		q := &fakeQuerier{violations: map[string]int64{"user_id IS NULL": 3}}
		cfg := models.ChecksConfig{Enabled: true, Skip: []string{"stg_users.not_null.user_id"}}

		results, err := Run(context.Background(), q, checkedCatalog(), cfg)
		require.NoError(t, err)

		skipped := 0
		for _, r := range results {
			if r.Skipped {
				skipped++
			}
		}
		assert.Equal(t, 1, skipped)
	})

	t.Run("unknown check type aborts", func(t *testing.T) {
		catalog := []model.Model{{
			Name: "stg_x", Materialized: model.MaterializationView, SQL: "SELECT 1",
			Checks: []model.Check{{Type: "unique", Column: "id"}},
		}}
		_, err := Run(context.Background(), &fakeQuerier{}, catalog, models.ChecksConfig{Enabled: true})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeModelInvalid, errors.GetErrorCode(err))
	})
}

func TestBuiltInCatalogChecksCompile(t *testing.T) {
	q := &fakeQuerier{}
	_, err := Run(context.Background(), q, model.Catalog(), models.ChecksConfig{Enabled: true})
	require.NoError(t, err)
	assert.NotEmpty(t, q.queries)
}
