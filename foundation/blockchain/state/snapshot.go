package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Snapshot is the complete state of the node that can be exported and
// imported.
type Snapshot struct {
	Chain        []database.BlockData `json:"chain"`
	Mempool      []database.SignedTx  `json:"mempool"`
	Difficulty   uint16               `json:"difficulty"`
	MiningReward uint64               `json:"miningReward"`
	LastUpdated  time.Time            `json:"lastUpdated"`
}

// ExportSnapshot returns a copy of the chain, the mempool and the mining
// parameters. Transactions in the block being mined are exported at the
// front of the mempool.
func (s *State) ExportSnapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain, err := s.db.Export()
	if err != nil {
		return Snapshot{}, err
	}

	s.admitMu.Lock()
	pool := make([]database.SignedTx, 0, len(s.mining)+s.mempool.Count())
	pool = append(pool, s.mining...)
	pool = append(pool, s.mempool.Copy()...)
	s.admitMu.Unlock()

	s.rewardMu.RLock()
	defer s.rewardMu.RUnlock()

	snap := Snapshot{
		Chain:        chain,
		Mempool:      pool,
		Difficulty:   s.db.Difficulty(),
		MiningReward: s.miningReward,
		LastUpdated:  s.lastUpdated,
	}

	return snap, nil
}

// ImportSnapshot replaces the state of the node with the snapshot. Nothing
// is merged. A snapshot whose chain does not validate is rejected and the
// current state is kept. Mempool entries that no longer validate are
// dropped.
func (s *State) ImportSnapshot(snap Snapshot) error {
	if snap.MiningReward == 0 {
		return fmt.Errorf("snapshot mining reward must be greater than zero")
	}

	if snap.Difficulty > s.genesis.MaxDifficulty && s.genesis.MaxDifficulty > 0 {
		return fmt.Errorf("snapshot difficulty %d is over the max difficulty %d", snap.Difficulty, s.genesis.MaxDifficulty)
	}

	// Stop any mining in flight so it can't write on top of the old chain.
	done := s.cancelMining()
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Replace(snap.Chain, snap.Difficulty); err != nil {
		return fmt.Errorf("importing chain: %w", err)
	}

	s.epoch++
	s.hashIndex.Reset()

	s.admitMu.Lock()
	{
		s.mining = nil
		s.mempool.Truncate()
		for _, tx := range snap.Mempool {
			if err := s.validateTransaction(tx); err != nil {
				s.evHandler("state: ImportSnapshot: DROPPED: tx[%s]: %s", tx, err)
				continue
			}
			if _, err := s.mempool.Add(tx); err != nil {
				s.evHandler("state: ImportSnapshot: DROPPED: tx[%s]: %s", tx, err)
			}
		}
	}
	s.admitMu.Unlock()

	s.rewardMu.Lock()
	{
		s.miningReward = snap.MiningReward
		s.lastUpdated = snap.LastUpdated
		if s.lastUpdated.IsZero() {
			s.lastUpdated = s.now().UTC()
		}
	}
	s.rewardMu.Unlock()

	s.evHandler("viewer: snapshot: imported: blocks[%d]: mempool[%d]", len(snap.Chain), s.mempool.Count())

	s.signalMining()

	return nil
}

// PersistSnapshot writes the snapshot to the file at path. The file is
// replaced atomically.
func (s *State) PersistSnapshot(path string) error {
	snap, err := s.ExportSnapshot()
	if err != nil {
		return err
	}

	return WriteSnapshotFile(path, snap)
}

// =============================================================================

// WriteSnapshotFile writes the snapshot as JSON to the file at path.
func WriteSnapshotFile(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// ReadSnapshotFile reads a snapshot written by WriteSnapshotFile.
func ReadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}

	return snap, nil
}
