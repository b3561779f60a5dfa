// Package leveldb implements the ability to read and write blocks to a
// LevelDB database, keyed by block number.
package leveldb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	lderrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	blockPrefix = []byte("blk-")
	latestKey   = []byte("latest")
)

// LevelDB represents the serialization implementation for reading and
// storing blocks in LevelDB. This implements the database.Serializer
// interface.
type LevelDB struct {
	mu sync.Mutex
	db *leveldb.DB
}

// New opens or creates the LevelDB database in the specified directory. A
// corrupted database is recovered before use.
func New(dbPath string) (*LevelDB, error) {
	options := opt.Options{
		Compression: opt.SnappyCompression,
		Filter:      filter.NewBloomFilter(10),
	}

	db, err := leveldb.OpenFile(dbPath, &options)
	if err != nil {
		if !lderrors.IsCorrupted(err) {
			return nil, fmt.Errorf("opening leveldb: %w", err)
		}

		db, err = leveldb.RecoverFile(dbPath, &options)
		if err != nil {
			return nil, fmt.Errorf("recovering leveldb: %w", err)
		}
	}

	return &LevelDB{db: db}, nil
}

// Close closes the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Write stores the block under its number together with the latest marker
// in a single batch. Blocks must be written in order.
func (l *LevelDB) Write(blockData database.BlockData) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := uint64(0)
	switch val, err := l.db.Get(latestKey, nil); {
	case err == nil:
		next = binary.BigEndian.Uint64(val) + 1
	case !errors.Is(err, leveldb.ErrNotFound):
		return err
	}

	if blockData.Index != next {
		return fmt.Errorf("block is out of order, got %d, exp %d", blockData.Index, next)
	}

	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	num := make([]byte, 8)
	binary.BigEndian.PutUint64(num, blockData.Index)

	batch := new(leveldb.Batch)
	batch.Put(key(blockData.Index), data)
	batch.Put(latestKey, num)

	return l.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// GetBlock returns the block stored under the specified number.
func (l *LevelDB) GetBlock(num uint64) (database.BlockData, error) {
	val, err := l.db.Get(key(num), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockData{}, fmt.Errorf("blk[%d]: %w", num, database.ErrNotFound)
		}
		return database.BlockData{}, err
	}

	var blockData database.BlockData
	if err := json.Unmarshal(val, &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block. The iterator reads from a snapshot taken when it is
// created.
func (l *LevelDB) ForEach() database.Iterator {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return &levelIterator{err: err}
	}

	return &levelIterator{
		snap: snap,
		iter: snap.NewIterator(util.BytesPrefix(blockPrefix), nil),
	}
}

// Reset deletes every block and the latest marker.
func (l *LevelDB) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := new(leveldb.Batch)

	iter := l.db.NewIterator(util.BytesPrefix(blockPrefix), nil)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	iter.Release()

	if err := iter.Error(); err != nil {
		return err
	}

	batch.Delete(latestKey)

	return l.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// key encodes the block number so keys sort in chain order.
func key(num uint64) []byte {
	k := make([]byte, len(blockPrefix)+8)
	copy(k, blockPrefix)
	binary.BigEndian.PutUint64(k[len(blockPrefix):], num)
	return k
}

// =============================================================================

// levelIterator walks the blocks in key order. This implements the database
// Iterator interface.
type levelIterator struct {
	snap *leveldb.Snapshot
	iter iterator.Iterator
	err  error
	eoc bool
}

// Next retrieves the next block from the snapshot.
func (li *levelIterator) Next() (database.BlockData, error) {
	if li.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	if li.err != nil {
		return database.BlockData{}, li.err
	}

	if !li.iter.Next() {
		err := li.iter.Error()
		li.iter.Release()
		li.snap.Release()

		if err != nil {
			li.err = err
			return database.BlockData{}, err
		}

		li.eoc = true
		return database.BlockData{}, errors.New("end of chain")
	}

	var blockData database.BlockData
	if err := json.Unmarshal(li.iter.Value(), &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// Done returns the end of chain value.
func (li *levelIterator) Done() bool {
	return li.eoc
}
