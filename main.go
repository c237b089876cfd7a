package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"miner-node/chainclient"
	"miner-node/commit"
	"miner-node/internal/server/admin"
	"miner-node/internal/server/peerapi"
	"miner-node/internal/workpool"
	"miner-node/logging"
	"miner-node/minerconfig"
	"miner-node/model"
	"miner-node/nucleus"
	"miner-node/peerclient"
	"miner-node/registry"
	"miner-node/statestore"
	"miner-node/trainer"
	"miner-node/weights"
)

var configPath = flag.String("config", "", "path to the YAML config file")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		logging.Error("Miner node exited", logging.Config, "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	manager, err := minerconfig.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := manager.GetConfig()

	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	logging.Info("Miner node starting", logging.Config,
		"address", cfg.Node.Address, "network", cfg.Node.NetworkId)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logging.Info("Received signal, shutting down", logging.Config, "signal", sig.String())
		cancel()
	}()

	chainClient, err := chainclient.NewChainClientWithRetry(ctx, cfg.Chain.Url,
		cfg.Chain.ConnectRetries, time.Duration(cfg.Chain.RetryDelaySeconds)*time.Second)
	if err != nil {
		return fmt.Errorf("connect chain node: %w", err)
	}

	tracker := registry.NewTracker(chainClient)
	snapshot, err := tracker.Sync(ctx)
	if err != nil {
		return fmt.Errorf("initial registry sync: %w", err)
	}
	if snapshot.NetworkId != cfg.Node.NetworkId {
		return fmt.Errorf("configured for network %q but chain reports %q",
			cfg.Node.NetworkId, snapshot.NetworkId)
	}

	storage, err := statestore.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open state storage: %w", err)
	}
	defer storage.Close()

	state, resumed, err := buildTrustState(ctx, storage, snapshot)
	if err != nil {
		return err
	}

	subscriber := chainclient.NewBlockSubscriber(cfg.Chain.WsUrl, tracker)
	defer subscriber.Close()

	seed := cfg.Training.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	localModel := model.New(cfg.Nucleus.HiddenWidth, cfg.Training.LearningRate, cfg.Training.Momentum, seed)
	rng := rand.New(rand.NewSource(seed))

	nuc := nucleus.New(peerclient.NewHttpClientFactory(), state, cfg.Nucleus, cfg.Node.Address, rng)
	loop := trainer.New(localModel, nuc, state, tracker, storage, cfg.Training)
	if resumed != nil {
		loop.Resume(resumed)
	}

	committer := commit.NewWorker(state, chainClient, cfg.Node.Address, cfg.Commit)
	defer committer.Close()

	pool := workpool.New(cfg.Server.PoolWorkers, cfg.Server.PoolQueueCapacity)
	defer pool.Close()

	peerServer := peerapi.NewServer(localModel, tracker, pool, cfg.Node.Address, cfg.Server)
	peerServer.Start(fmt.Sprintf(":%d", cfg.Server.PeerApiPort))
	defer shutdownServer(peerServer.Shutdown)

	adminServer := admin.NewServer(state, tracker, loop, committer)
	adminServer.Start(fmt.Sprintf(":%d", cfg.Server.AdminPort))
	defer shutdownServer(adminServer.Shutdown)

	return loop.Run(ctx)
}

// buildTrustState reloads persisted weights when a checkpoint exists and is
// valid against the live registry, otherwise starts neutral. The returned
// checkpoint is non-nil when the trainer should resume its loop position.
func buildTrustState(ctx context.Context, storage statestore.StateStorage, snapshot *registry.Snapshot) (*weights.TrustState, *statestore.Checkpoint, error) {
	cp, err := storage.Load(ctx)
	if errors.Is(err, statestore.ErrNotFound) {
		logging.Info("No checkpoint found, starting with neutral weights", logging.Weights,
			"peers", snapshot.PeerCount())
		return weights.NewTrustState(snapshot.PeerCount()), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load checkpoint: %w", err)
	}

	state, err := weights.Reconcile(cp.WeightVector, cp.NetworkId, snapshot.PeerCount(), snapshot.NetworkId)
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile checkpoint: %w", err)
	}
	return state, cp, nil
}

func shutdownServer(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdown(ctx); err != nil {
		logging.Warn("Server shutdown failed", logging.Server, "error", err.Error())
	}
}
