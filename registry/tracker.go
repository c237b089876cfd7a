package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"miner-node/chainclient"
	"miner-node/logging"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrNetworkChanged means the ledger reports a different network id than
	// the cached snapshot. There is no defined migration between networks.
	ErrNetworkChanged = errors.New("network id changed")
	// ErrPeerSetShrank means the ledger reports fewer participants than the
	// cached snapshot. Peer indices are append-only, a shrink has no merge
	// rule.
	ErrPeerSetShrank = errors.New("peer set shrank")
)

// Peer is one registry entry. A peer's index in the snapshot's Peers slice
// is its PeerIndex; every per-peer array in the node is aligned to it.
type Peer struct {
	Address  string
	Stake    float64
	Active   bool
	Endpoint string
}

// Snapshot is an immutable view of the peer set, replaced wholesale on sync.
type Snapshot struct {
	NetworkId  string
	Peers      []Peer
	SyncHeight int64
}

func (s *Snapshot) PeerCount() int {
	if s == nil {
		return 0
	}
	return len(s.Peers)
}

// ActivePeers returns the indices of peers currently flagged active.
func (s *Snapshot) ActivePeers() []int {
	if s == nil {
		return nil
	}
	active := make([]int, 0, len(s.Peers))
	for i, p := range s.Peers {
		if p.Active {
			active = append(active, i)
		}
	}
	return active
}

func (s *Snapshot) Stake(i int) float64 {
	if s == nil || i < 0 || i >= len(s.Peers) {
		return 0
	}
	return s.Peers[i].Stake
}

func (s *Snapshot) Endpoint(i int) string {
	if s == nil || i < 0 || i >= len(s.Peers) {
		return ""
	}
	return s.Peers[i].Endpoint
}

func (s *Snapshot) StakeByAddress(address string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	for _, p := range s.Peers {
		if p.Address == address {
			return p.Stake, true
		}
	}
	return 0, false
}

// Tracker is a thread-safe cache of the current peer set. Sync replaces the
// snapshot from the ledger; the block subscriber feeds heights in between.
// Concurrent Sync calls collapse into a single ledger fetch.
type Tracker struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	height   int64

	bridge chainclient.ChainBridge
	group  singleflight.Group
}

func NewTracker(bridge chainclient.ChainBridge) *Tracker {
	return &Tracker{bridge: bridge}
}

// Sync refreshes the snapshot from the ledger. The peer set may only grow
// within a network: a shrinking participant list or a changed network id is
// an error and leaves the previous snapshot in place.
func (t *Tracker) Sync(ctx context.Context) (*Snapshot, error) {
	v, err, _ := t.group.Do("sync", func() (interface{}, error) {
		return t.doSync(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (t *Tracker) doSync(ctx context.Context) (*Snapshot, error) {
	status, err := t.bridge.GetNetworkStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch network status: %w", err)
	}

	participants, err := t.bridge.GetParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch participants: %w", err)
	}

	peers := make([]Peer, len(participants))
	for i, p := range participants {
		peers[i] = Peer{
			Address:  p.Address,
			Stake:    p.Stake,
			Active:   p.Active,
			Endpoint: p.Endpoint,
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snapshot != nil {
		if t.snapshot.NetworkId != status.NetworkId {
			return nil, fmt.Errorf("%w from %q to %q", ErrNetworkChanged, t.snapshot.NetworkId, status.NetworkId)
		}
		if len(peers) < len(t.snapshot.Peers) {
			return nil, fmt.Errorf("%w from %d to %d", ErrPeerSetShrank, len(t.snapshot.Peers), len(peers))
		}
	}

	snapshot := &Snapshot{
		NetworkId:  status.NetworkId,
		Peers:      peers,
		SyncHeight: status.BlockHeight,
	}
	t.snapshot = snapshot
	if status.BlockHeight > t.height {
		t.height = status.BlockHeight
	}

	logging.Info("Registry synced", logging.Registry,
		"networkId", snapshot.NetworkId, "peers", len(peers), "height", snapshot.SyncHeight)
	return snapshot, nil
}

// CurrentSnapshot returns the last synced snapshot, nil before the first sync.
func (t *Tracker) CurrentSnapshot() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

func (t *Tracker) NetworkId() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.snapshot == nil {
		return ""
	}
	return t.snapshot.NetworkId
}

// UpdateHeight records a block height observed on the chain feed.
func (t *Tracker) UpdateHeight(height int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if height > t.height {
		t.height = height
	}
}

func (t *Tracker) Height() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.height
}

var _ chainclient.HeightSink = (*Tracker)(nil)
