package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martforge/pkg/errors"
)

func writeTestConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "martforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("MARTFORGE_CONFIG", path)
}

func TestCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{
		"run", "seed", "test", "verify", "compile",
		"ls", "analyze", "lineage", "init", "setup", "pull", "version",
	} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestLoadProjectResolvesTarget(t *testing.T) {
	writeTestConfig(t, `
project:
  name: shop
  target: prod
targets:
  - name: dev
    adapter: postgres
    host: localhost
  - name: prod
    adapter: snowflake
    account: xy12345
`)

	origTarget := flagTarget
	defer func() { flagTarget = origTarget }()

	t.Run("uses project default", func(t *testing.T) {
		flagTarget = ""
		_, target, err := loadProject()
		require.NoError(t, err)
		assert.Equal(t, "prod", target.Name)
		assert.Equal(t, "snowflake", target.Adapter)
	})

	t.Run("flag overrides default", func(t *testing.T) {
		flagTarget = "dev"
		_, target, err := loadProject()
		require.NoError(t, err)
		assert.Equal(t, "postgres", target.Adapter)
	})

	t.Run("unknown target errors", func(t *testing.T) {
		flagTarget = "staging"
		_, _, err := loadProject()
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeTargetNotFound, errors.GetErrorCode(err))
	})
}

func TestLoadGraphUsesBuiltinCatalog(t *testing.T) {
	writeTestConfig(t, `
project:
  name: shop
  models_dir: does-not-exist
targets:
  - name: dev
    adapter: postgres
    host: localhost
`)
	flagTarget = "dev"
	defer func() { flagTarget = "" }()

	cfg, _, err := loadProject()
	require.NoError(t, err)

	g, catalog, err := loadGraph(cfg)
	require.NoError(t, err)
	assert.Len(t, catalog, 8)
	assert.Len(t, g.Order(), 8)
}

func TestNormalizeFlags(t *testing.T) {
	got := normalizeFlags(nil, "full_refresh")
	assert.EqualValues(t, "full-refresh", got)

	got = normalizeFlags(nil, "dry-run")
	assert.EqualValues(t, "dry-run", got)
}
