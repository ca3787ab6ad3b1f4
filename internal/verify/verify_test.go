package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martforge/pkg/models"
)

func TestRun(t *testing.T) {
	seedCfg := models.Seed{
		RandomSeed: 42,
		Users:      100,
		Products:   20,
		Events:     2000,
		Sales:      400,
	}

	report, err := Run(seedCfg, models.DefaultVars())
	require.NoError(t, err)
	require.Len(t, report.Properties, 5)
	for _, p := range report.Properties {
		assert.True(t, p.Passed, "%s: %s", p.Name, p.Detail)
	}
	assert.Zero(t, report.Failed())
}

func TestRunOtherSeed(t *testing.T) {
	seedCfg := models.Seed{
		RandomSeed: 7,
		Users:      50,
		Products:   10,
		Events:     800,
		Sales:      150,
	}

	vars := models.Vars{SessionTimeoutMinutes: 15}
	report, err := Run(seedCfg, vars)
	require.NoError(t, err)
	assert.Zero(t, report.Failed())
}
