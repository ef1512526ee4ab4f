package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alphagate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialFileOverridesOnlyNamedFields(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
server:
  port: 9090
monitoring:
  decay_days: 45
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 45, cfg.Monitoring.DecayDays)

	// Untouched fields keep their defaults
	assert.Equal(t, Default().Monitoring.MinHealthyIC, cfg.Monitoring.MinHealthyIC)
	assert.Equal(t, Default().Validation.PBO.NSplits, cfg.Validation.PBO.NSplits)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 99999\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsUnreadableFile(t *testing.T) {
	_, err := Load("/nonexistent/alphagate.yaml")
	require.Error(t, err)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	require.Error(t, err)
}
