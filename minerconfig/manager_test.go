package minerconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYaml = `
node:
  address: miner1q2w3e
  network_id: nakamoto
`

func TestLoadConfigBytes_Defaults(t *testing.T) {
	manager, err := LoadConfigBytes([]byte(minimalYaml))
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, "miner1q2w3e", cfg.Node.Address)
	assert.Equal(t, "nakamoto", cfg.Node.NetworkId)
	assert.Equal(t, 20, cfg.Nucleus.TopK)
	assert.Equal(t, 0.001, cfg.Nucleus.PunishmentConstant)
	assert.Equal(t, 10, cfg.Nucleus.QueryTimeoutSeconds)
	assert.Equal(t, 100, cfg.Training.EpochLength)
	assert.Equal(t, int64(15), cfg.Training.SyncBlockInterval)
	assert.Equal(t, 100, cfg.Commit.TopK)
	assert.Equal(t, 8091, cfg.Server.PeerApiPort)
	assert.Equal(t, "auto", cfg.Storage.Backend)
}

func TestLoadConfigBytes_FileOverridesDefaults(t *testing.T) {
	yaml := minimalYaml + `
nucleus:
  topk: 8
  punishment_constant: 0.01
commit:
  topk: 50
  interval_seconds: 60
`
	manager, err := LoadConfigBytes([]byte(yaml))
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, 8, cfg.Nucleus.TopK)
	assert.Equal(t, 0.01, cfg.Nucleus.PunishmentConstant)
	assert.Equal(t, 50, cfg.Commit.TopK)
	assert.Equal(t, 60, cfg.Commit.IntervalSeconds)
	// untouched sections keep defaults
	assert.Equal(t, 10, cfg.Nucleus.QueryTimeoutSeconds)
	assert.Equal(t, 100, cfg.Training.EpochLength)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYaml), 0644))

	t.Setenv("MINER_NUCLEUS__TOPK", "30")
	t.Setenv("MINER_LOGGING__LEVEL", "debug")

	manager, err := LoadConfig(path)
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, 30, cfg.Nucleus.TopK)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Node.Address = ""
	cfg.Node.NetworkId = " "
	cfg.Nucleus.TopK = 0
	cfg.Server.PeerApiPort = 70000

	problems := Validate(cfg)
	assert.Len(t, problems, 4)
}

func TestLoadConfigBytes_InvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected string
	}{
		{
			name:     "missing node address",
			yaml:     "node:\n  network_id: nakamoto\n",
			expected: "node.address is required",
		},
		{
			name:     "bad storage backend",
			yaml:     minimalYaml + "storage:\n  backend: tape\n",
			expected: "storage.backend must be one of",
		},
		{
			name:     "zero epoch length",
			yaml:     minimalYaml + "training:\n  epoch_length: 0\n",
			expected: "training.epoch_length must be greater than 0",
		},
		{
			name:     "negative punishment",
			yaml:     minimalYaml + "nucleus:\n  punishment_constant: -0.5\n",
			expected: "nucleus.punishment_constant must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}
