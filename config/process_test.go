package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// GIVEN a well-formed router process config
// WHEN loaded
// THEN every field round-trips.
func TestLoadRouterConfig(t *testing.T) {
	path := writeTemp(t, `
log_level: debug
lambda_endpoint: "0.0.0.0:6473"
config_endpoint: "0.0.0.0:6474"
controller_address: "controller:7000"
entry_type: least-impedance
optimizer_kind: async
optimizer_alpha: 0.3
subtract_responder_time: true
`)
	c, err := LoadRouterConfig(path)
	require.NoError(t, err)
	require.Equal(t, "debug", c.LogLevel)
	require.Equal(t, "least-impedance", c.EntryType)
	require.True(t, c.SubtractResponderTime)
	require.Equal(t, 0.3, c.OptimizerAlpha)
}

// GIVEN a config file with an unrecognized field
// WHEN loaded
// THEN strict decoding rejects it.
func TestLoadRouterConfigRejectsUnknownField(t *testing.T) {
	path := writeTemp(t, "bogus_field: 1\n")
	_, err := LoadRouterConfig(path)
	require.Error(t, err)
}

// GIVEN a well-formed hierarchical controller config
// WHEN loaded
// THEN the topology path and objective are present.
func TestLoadControllerConfig(t *testing.T) {
	path := writeTemp(t, `
log_level: info
endpoint: "0.0.0.0:7000"
installer: hier
objective: min-max
topology_path: "/etc/serverlessedge/topology.txt"
`)
	c, err := LoadControllerConfig(path)
	require.NoError(t, err)
	require.Equal(t, "hier", c.Installer)
	require.Equal(t, "min-max", c.Objective)
	require.Equal(t, "/etc/serverlessedge/topology.txt", c.TopologyPath)
}
