// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and snapshot persistence.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerAccountID database.AccountID
	Genesis        genesis.Genesis
	Serializer     database.Serializer
	Verifier       signature.Verifier
	Now            func() time.Time
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	minerAccountID database.AccountID
	evHandler      EventHandler
	now            func() time.Time

	// mineMu allows one mining operation at a time.
	mineMu sync.Mutex

	// mu guards writes to the chain: assembling a candidate block, appending
	// it and replacing the chain. It is never held during the POW search.
	// epoch changes every time the chain is replaced.
	mu    sync.Mutex
	epoch uint64

	// admitMu makes the funds check and the mempool insert a single step.
	// mining holds the transactions of the block being searched for.
	admitMu sync.Mutex
	mining  []database.SignedTx

	rewardMu     sync.RWMutex
	miningReward uint64
	lastUpdated  time.Time

	genesis   genesis.Genesis
	db        *database.Database
	mempool   *mempool.Mempool
	hashIndex *bigcache.BigCache

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	// Access the storage for the blockchain, validating whatever is there.
	db, err := database.New(database.Config{
		Genesis:    cfg.Genesis,
		Serializer: cfg.Serializer,
		Verifier:   cfg.Verifier,
		EvHandler:  ev,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	hashIndex, err := newHashIndex()
	if err != nil {
		return nil, fmt.Errorf("creating hash index: %w", err)
	}

	state := State{
		minerAccountID: cfg.MinerAccountID,
		evHandler:      ev,
		now:            now,
		miningReward:   cfg.Genesis.MiningReward,
		lastUpdated:    now().UTC(),
		genesis:        cfg.Genesis,
		db:             db,
		mempool:        mempool.New(),
		hashIndex:      hashIndex,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Make sure the database file is properly closed.
	defer func() {
		s.hashIndex.Close()
		s.db.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// MinerAccountID returns the account that receives rewards when the node
// mines on its own.
func (s *State) MinerAccountID() database.AccountID {
	return s.minerAccountID
}

// MiningReward returns the amount minted by the coinbase of the next block.
func (s *State) MiningReward() uint64 {
	s.rewardMu.RLock()
	defer s.rewardMu.RUnlock()

	return s.miningReward
}

// =============================================================================

// cancelMining asks the worker to stop a mining operation in flight. The
// returned function must be called once the caller is done with the chain.
func (s *State) cancelMining() func() {
	if s.Worker == nil {
		return func() {}
	}
	return s.Worker.SignalCancelMining()
}

// signalMining lets the worker know there is something to mine.
func (s *State) signalMining() {
	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}
}

// touch records the time of the last change.
func (s *State) touch() {
	s.rewardMu.Lock()
	defer s.rewardMu.Unlock()

	s.lastUpdated = s.now().UTC()
}

// timeStamp returns the current time in Unix milliseconds.
func (s *State) timeStamp() uint64 {
	return uint64(s.now().UnixMilli())
}
