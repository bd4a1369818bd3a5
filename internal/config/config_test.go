package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10000.0, cfg.Simulation.Notional)
	assert.Equal(t, 500*time.Millisecond, cfg.Simulation.TickInterval)
	assert.Equal(t, 4*time.Second, cfg.Simulation.EventPause)
	assert.Equal(t, 1.0, cfg.Simulation.LeverageCeiling)
	assert.Equal(t, 0.05, cfg.Simulation.ExposureTolerance)
	assert.Equal(t, 100, cfg.MaxPercent())
	assert.Equal(t, "0 0 3 * * *", cfg.Schedule.RefreshCron)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
simulation:
  leverage_ceiling: 2.0
  tick_interval: 250ms
  event_pause: 2s
data_source:
  scenarios: [crash-2008, covid-2020]
server:
  addr: ":9000"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))
	t.Setenv("TIMEMACHINE_ADDR", ":9100")
	t.Setenv("SCENARIOS", "dotcom-2000, gme-2021")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2.0, cfg.Simulation.LeverageCeiling)
	assert.Equal(t, 200, cfg.MaxPercent())
	assert.Equal(t, 250*time.Millisecond, cfg.Simulation.TickInterval)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, []string{"dotcom-2000", "gme-2021"}, cfg.DataSource.Scenarios)

	rc := cfg.Replay()
	assert.Equal(t, 2*time.Second, rc.EventPause)
	assert.Equal(t, 2.0, rc.LeverageCeiling)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation: ["), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	cfg.Simulation.LeverageCeiling = 3
	assert.Error(t, cfg.Validate())
	cfg.Simulation.LeverageCeiling = 1

	cfg.Telegram.BotToken = "token"
	assert.Error(t, cfg.Validate())
	cfg.Telegram.ChatID = "42"
	assert.NoError(t, cfg.Validate())
}
