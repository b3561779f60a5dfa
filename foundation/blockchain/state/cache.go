package state

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// newHashIndex constructs the cache mapping block hashes to block numbers.
// Entries never expire since blocks are immutable once written.
func newHashIndex() (*bigcache.BigCache, error) {
	cfg := bigcache.DefaultConfig(24 * time.Hour)
	cfg.Shards = 64
	cfg.CleanWindow = 0
	cfg.MaxEntrySize = 8
	cfg.Verbose = false

	return bigcache.New(context.Background(), cfg)
}

// indexBlock records the block number for the block hash.
func (s *State) indexBlock(block database.Block) {
	num := make([]byte, 8)
	binary.BigEndian.PutUint64(num, block.Header.Index)

	if err := s.hashIndex.Set(block.Hash(), num); err != nil {
		s.evHandler("state: indexBlock: WARNING: %s", err)
	}
}

// lookupBlock returns the block number for the block hash from the cache.
func (s *State) lookupBlock(hash string) (uint64, bool) {
	num, err := s.hashIndex.Get(hash)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			s.evHandler("state: lookupBlock: WARNING: %s", err)
		}
		return 0, false
	}

	return binary.BigEndian.Uint64(num), true
}
