package minerconfig

import (
	"fmt"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MINER_"

// ConfigManager owns the merged node configuration. Reads are cheap copies,
// so callers never observe a partially updated config.
type ConfigManager struct {
	mu     sync.RWMutex
	config Config
}

// envTransform maps MINER_NUCLEUS__TOPK to nucleus.topk: double underscore
// separates sections, single underscores stay part of the key.
func envTransform(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
}

// LoadConfig merges defaults, the optional YAML config file, and MINER_
// environment overrides, in that order of precedence.
func LoadConfig(path string) (*ConfigManager, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	return buildManager(k)
}

// LoadConfigBytes parses an in-memory YAML document over the defaults.
func LoadConfigBytes(data []byte) (*ConfigManager, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse config bytes: %w", err)
	}

	return buildManager(k)
}

func buildManager(k *koanf.Koanf) (*ConfigManager, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if problems := Validate(cfg); len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}

	return &ConfigManager{config: cfg}, nil
}

func (m *ConfigManager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *ConfigManager) GetNodeConfig() NodeConfig {
	return m.GetConfig().Node
}

func (m *ConfigManager) GetChainConfig() ChainConfig {
	return m.GetConfig().Chain
}

func (m *ConfigManager) GetNucleusConfig() NucleusConfig {
	return m.GetConfig().Nucleus
}

func (m *ConfigManager) GetTrainingConfig() TrainingConfig {
	return m.GetConfig().Training
}

func (m *ConfigManager) GetCommitConfig() CommitConfig {
	return m.GetConfig().Commit
}

func (m *ConfigManager) GetServerConfig() ServerConfig {
	return m.GetConfig().Server
}

func (m *ConfigManager) GetStorageConfig() StorageConfig {
	return m.GetConfig().Storage
}

func (m *ConfigManager) GetLoggingConfig() LoggingConfig {
	return m.GetConfig().Logging
}
