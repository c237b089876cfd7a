package minerconfig

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Node     NodeConfig     `koanf:"node" json:"node"`
	Chain    ChainConfig    `koanf:"chain" json:"chain"`
	Nucleus  NucleusConfig  `koanf:"nucleus" json:"nucleus"`
	Training TrainingConfig `koanf:"training" json:"training"`
	Commit   CommitConfig   `koanf:"commit" json:"commit"`
	Server   ServerConfig   `koanf:"server" json:"server"`
	Storage  StorageConfig  `koanf:"storage" json:"storage"`
	Logging  LoggingConfig  `koanf:"logging" json:"logging"`
}

// NodeConfig identifies this miner on the network.
type NodeConfig struct {
	Address   string `koanf:"address" json:"address"`
	NetworkId string `koanf:"network_id" json:"network_id"`
}

type ChainConfig struct {
	Url               string `koanf:"url" json:"url"`
	WsUrl             string `koanf:"ws_url" json:"ws_url"`
	ConnectRetries    int    `koanf:"connect_retries" json:"connect_retries"`
	RetryDelaySeconds int    `koanf:"retry_delay_seconds" json:"retry_delay_seconds"`
}

// NucleusConfig governs the per-step peer query round.
type NucleusConfig struct {
	TopK                int     `koanf:"topk" json:"topk"`
	PunishmentConstant  float64 `koanf:"punishment_constant" json:"punishment_constant"`
	QueryTimeoutSeconds int     `koanf:"query_timeout_seconds" json:"query_timeout_seconds"`
	HiddenWidth         int     `koanf:"hidden_width" json:"hidden_width"`
}

func (c NucleusConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

type TrainingConfig struct {
	EpochLength       int     `koanf:"epoch_length" json:"epoch_length"`
	SyncBlockInterval int64   `koanf:"sync_block_interval" json:"sync_block_interval"`
	LearningRate      float64 `koanf:"learning_rate" json:"learning_rate"`
	Momentum          float64 `koanf:"momentum" json:"momentum"`
	Seed              int64   `koanf:"seed" json:"seed"`
}

// CommitConfig governs the weight committer cadence. TopK is the number of
// peers whose weights are published to the ledger each cadence.
type CommitConfig struct {
	TopK                 int  `koanf:"topk" json:"topk"`
	IntervalSeconds      int  `koanf:"interval_seconds" json:"interval_seconds"`
	SubmitTimeoutSeconds int  `koanf:"submit_timeout_seconds" json:"submit_timeout_seconds"`
	WaitForInclusion     bool `koanf:"wait_for_inclusion" json:"wait_for_inclusion"`
}

func (c CommitConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c CommitConfig) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutSeconds) * time.Second
}

type ServerConfig struct {
	PeerApiPort           int     `koanf:"peer_api_port" json:"peer_api_port"`
	AdminPort             int     `koanf:"admin_port" json:"admin_port"`
	BlacklistStake        float64 `koanf:"blacklist_stake" json:"blacklist_stake"`
	PoolWorkers           int     `koanf:"pool_workers" json:"pool_workers"`
	PoolQueueCapacity     int     `koanf:"pool_queue_capacity" json:"pool_queue_capacity"`
	RequestTimeoutSeconds int     `koanf:"request_timeout_seconds" json:"request_timeout_seconds"`
}

func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

type StorageConfig struct {
	Dir     string `koanf:"dir" json:"dir"`
	Backend string `koanf:"backend" json:"backend"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}

// DefaultConfig mirrors the network's reference miner parameters.
func DefaultConfig() Config {
	return Config{
		Chain: ChainConfig{
			Url:               "http://localhost:26657",
			WsUrl:             "ws://localhost:26657/websocket",
			ConnectRetries:    5,
			RetryDelaySeconds: 5,
		},
		Nucleus: NucleusConfig{
			TopK:                20,
			PunishmentConstant:  0.001,
			QueryTimeoutSeconds: 10,
			HiddenWidth:         512,
		},
		Training: TrainingConfig{
			EpochLength:       100,
			SyncBlockInterval: 15,
			LearningRate:      1.0,
			Momentum:          0.8,
		},
		Commit: CommitConfig{
			TopK:                 100,
			IntervalSeconds:      180,
			SubmitTimeoutSeconds: 10,
			WaitForInclusion:     true,
		},
		Server: ServerConfig{
			PeerApiPort:           8091,
			AdminPort:             8092,
			BlacklistStake:        0,
			PoolWorkers:           10,
			PoolQueueCapacity:     512,
			RequestTimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Dir:     "data",
			Backend: "auto",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate returns every problem found, not just the first, so operators can
// fix a config file in one pass.
func Validate(cfg Config) []string {
	var errors []string

	if strings.TrimSpace(cfg.Node.Address) == "" {
		errors = append(errors, "node.address is required and cannot be empty")
	}

	if strings.TrimSpace(cfg.Node.NetworkId) == "" {
		errors = append(errors, "node.network_id is required and cannot be empty")
	}

	if strings.TrimSpace(cfg.Chain.Url) == "" {
		errors = append(errors, "chain.url is required and cannot be empty")
	}

	if cfg.Nucleus.TopK <= 0 {
		errors = append(errors, fmt.Sprintf("nucleus.topk must be greater than 0, got %d", cfg.Nucleus.TopK))
	}

	if cfg.Nucleus.PunishmentConstant < 0 {
		errors = append(errors, fmt.Sprintf("nucleus.punishment_constant must not be negative, got %v", cfg.Nucleus.PunishmentConstant))
	}

	if cfg.Nucleus.QueryTimeoutSeconds <= 0 {
		errors = append(errors, fmt.Sprintf("nucleus.query_timeout_seconds must be greater than 0, got %d", cfg.Nucleus.QueryTimeoutSeconds))
	}

	if cfg.Nucleus.HiddenWidth <= 0 {
		errors = append(errors, fmt.Sprintf("nucleus.hidden_width must be greater than 0, got %d", cfg.Nucleus.HiddenWidth))
	}

	if cfg.Training.EpochLength <= 0 {
		errors = append(errors, fmt.Sprintf("training.epoch_length must be greater than 0, got %d", cfg.Training.EpochLength))
	}

	if cfg.Training.SyncBlockInterval <= 0 {
		errors = append(errors, fmt.Sprintf("training.sync_block_interval must be greater than 0, got %d", cfg.Training.SyncBlockInterval))
	}

	if cfg.Commit.TopK <= 0 {
		errors = append(errors, fmt.Sprintf("commit.topk must be greater than 0, got %d", cfg.Commit.TopK))
	}

	if cfg.Commit.IntervalSeconds <= 0 {
		errors = append(errors, fmt.Sprintf("commit.interval_seconds must be greater than 0, got %d", cfg.Commit.IntervalSeconds))
	}

	if cfg.Server.PeerApiPort <= 0 || cfg.Server.PeerApiPort > 65535 {
		errors = append(errors, fmt.Sprintf("server.peer_api_port must be between 1 and 65535, got %d", cfg.Server.PeerApiPort))
	}

	if cfg.Server.AdminPort <= 0 || cfg.Server.AdminPort > 65535 {
		errors = append(errors, fmt.Sprintf("server.admin_port must be between 1 and 65535, got %d", cfg.Server.AdminPort))
	}

	if cfg.Server.PoolWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("server.pool_workers must be greater than 0, got %d", cfg.Server.PoolWorkers))
	}

	if cfg.Server.PoolQueueCapacity <= 0 {
		errors = append(errors, fmt.Sprintf("server.pool_queue_capacity must be greater than 0, got %d", cfg.Server.PoolQueueCapacity))
	}

	switch cfg.Storage.Backend {
	case "", "auto", "file", "sqlite", "postgres", "hybrid":
	default:
		errors = append(errors, fmt.Sprintf("storage.backend must be one of auto|file|sqlite|postgres|hybrid, got %q", cfg.Storage.Backend))
	}

	return errors
}
