package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas/compta-engine/compta"
	"github.com/atlas/compta-engine/config"
	"github.com/atlas/compta-engine/reconcile"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "compta.db", cfg.DB.Path)
	assert.Equal(t, compta.RegimeAccrual, cfg.Regime())
	assert.Equal(t, reconcile.DefaultParams(), cfg.MatcherParams())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COMPTA_SERVER_PORT", "9090")
	t.Setenv("COMPTA_VAT_REGIME", "cash")
	t.Setenv("COMPTA_MATCHER_THRESHOLD", "0.8")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, compta.RegimeCashBasis, cfg.Regime())
	assert.InDelta(t, 0.8, cfg.MatcherParams().Threshold, 1e-9)
}

func TestLoad_MissingExplicitFile_Errors(t *testing.T) {
	_, err := config.Load("/does/not/exist.yaml")

	assert.Error(t, err)
}

func TestRegime_UnrecognizedValue_FallsBackToAccrual(t *testing.T) {
	cfg := config.Config{}
	cfg.VAT.Regime = "whatever"

	assert.Equal(t, compta.RegimeAccrual, cfg.Regime())
}
