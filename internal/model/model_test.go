package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martforge/pkg/errors"
	"martforge/pkg/models"
)

func TestRender(t *testing.T) {
	m := Model{
		Name:         "mart_user_sessions",
		Materialized: MaterializationTable,
		SQL:          "SELECT {{ .SessionTimeoutMinutes }} AS timeout_minutes",
	}

	out, err := m.Render(models.Vars{SessionTimeoutMinutes: 45})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 45 AS timeout_minutes", out)
}

func TestDDL(t *testing.T) {
	vars := models.DefaultVars()

	t.Run("view", func(t *testing.T) {
		m := Model{Name: "stg_users", Materialized: MaterializationView, SQL: "SELECT 1"}
		ddl, err := m.DDL(vars)
		require.NoError(t, err)
		assert.Equal(t, "CREATE OR REPLACE VIEW stg_users AS\nSELECT 1", ddl)
	})

	t.Run("table", func(t *testing.T) {
		m := Model{Name: "mart_x", Materialized: MaterializationTable, SQL: "SELECT 1"}
		ddl, err := m.DDL(vars)
		require.NoError(t, err)
		assert.Equal(t, "CREATE OR REPLACE TABLE mart_x AS\nSELECT 1", ddl)
	})

	t.Run("unknown materialization", func(t *testing.T) {
		m := Model{Name: "bad", Materialized: "ephemeral", SQL: "SELECT 1"}
		_, err := m.DDL(vars)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeModelInvalid, errors.GetErrorCode(err))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		catalog  []Model
		wantCode errors.ErrorCode
	}{
		{
			name: "valid pair",
			catalog: []Model{
				{Name: "stg_a", Materialized: MaterializationView, SQL: "SELECT 1"},
				{Name: "mart_a", Materialized: MaterializationTable, SQL: "SELECT 1", Refs: []string{"stg_a"}},
			},
		},
		{
			name: "duplicate name",
			catalog: []Model{
				{Name: "stg_a", Materialized: MaterializationView, SQL: "SELECT 1"},
				{Name: "stg_a", Materialized: MaterializationView, SQL: "SELECT 2"},
			},
			wantCode: errors.ErrCodeModelDuplicate,
		},
		{
			name: "unknown ref",
			catalog: []Model{
				{Name: "mart_a", Materialized: MaterializationTable, SQL: "SELECT 1", Refs: []string{"stg_missing"}},
			},
			wantCode: errors.ErrCodeUnknownRef,
		},
		{
			name: "bad materialization",
			catalog: []Model{
				{Name: "stg_a", Materialized: "incremental", SQL: "SELECT 1"},
			},
			wantCode: errors.ErrCodeModelInvalid,
		},
		{
			name: "empty SQL",
			catalog: []Model{
				{Name: "stg_a", Materialized: MaterializationView},
			},
			wantCode: errors.ErrCodeModelInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.catalog)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetErrorCode(err))
		})
	}
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()

	require.NoError(t, Validate(catalog))
	assert.Len(t, catalog, 8)

	vars := models.DefaultVars()
	for _, m := range catalog {
		ddl, err := m.DDL(vars)
		require.NoError(t, err, m.Name)
		assert.NotContains(t, ddl, "{{", m.Name)
	}

	sessions := Find(catalog, "mart_user_sessions")
	require.NotNil(t, sessions)
	assert.Equal(t, MaterializationTable, sessions.Materialized)
	rendered, err := sessions.Render(models.Vars{SessionTimeoutMinutes: 45})
	require.NoError(t, err)
	// The gap comparison runs at second granularity so sub-minute
	// remainders split sessions exactly like the in-process engine.
	assert.Contains(t, rendered, "DATEDIFF('second', prev_event_timestamp, event_timestamp) > 45 * 60")

	for _, name := range []string{"stg_users", "stg_products", "stg_events", "stg_sales"} {
		m := Find(catalog, name)
		require.NotNil(t, m, name)
		assert.Equal(t, MaterializationView, m.Materialized, name)
		assert.True(t, m.HasTag("staging"), name)
	}

	funnel := Find(catalog, "mart_funnel_daily")
	require.NotNil(t, funnel)
	expressions := make([]string, 0, len(funnel.Checks))
	for _, c := range funnel.Checks {
		if c.Type == "expression" {
			expressions = append(expressions, c.Expression)
		}
	}
	assert.Contains(t, expressions, "users_page_view >= users_product_view")
	assert.Contains(t, expressions, "users_product_view >= users_add_to_cart")
}

func TestLoadDir(t *testing.T) {
	t.Run("missing directory yields built-in catalog", func(t *testing.T) {
		catalog, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Len(t, catalog, 8)
	})

	t.Run("file adds a model with pragmas", func(t *testing.T) {
		dir := t.TempDir()
		content := "-- materialized: table\n" +
			"-- tags: mart, custom\n" +
			"-- refs: stg_sales\n" +
			"-- description: revenue by payment method\n" +
			"SELECT payment_method, SUM(net_amount) AS revenue\n" +
			"FROM stg_sales GROUP BY payment_method\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mart_payment_revenue.sql"), []byte(content), 0644))

		catalog, err := LoadDir(dir)
		require.NoError(t, err)

		m := Find(catalog, "mart_payment_revenue")
		require.NotNil(t, m)
		assert.Equal(t, MaterializationTable, m.Materialized)
		assert.Equal(t, []string{"mart", "custom"}, m.Tags)
		assert.Equal(t, []string{"stg_sales"}, m.Refs)
		assert.Equal(t, "revenue by payment method", m.Description)
		assert.Contains(t, m.SQL, "GROUP BY payment_method")
	})

	t.Run("file overrides a built-in model", func(t *testing.T) {
		dir := t.TempDir()
		content := "-- materialized: view\nSELECT user_id FROM raw_users\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stg_users.sql"), []byte(content), 0644))

		catalog, err := LoadDir(dir)
		require.NoError(t, err)
		assert.Len(t, catalog, 8)

		m := Find(catalog, "stg_users")
		require.NotNil(t, m)
		assert.Equal(t, "SELECT user_id FROM raw_users", m.SQL)
	})

	t.Run("unknown ref in file fails validation", func(t *testing.T) {
		dir := t.TempDir()
		content := "-- refs: stg_ghost\nSELECT 1\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mart_broken.sql"), []byte(content), 0644))

		_, err := LoadDir(dir)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeUnknownRef, errors.GetErrorCode(err))
	})
}
