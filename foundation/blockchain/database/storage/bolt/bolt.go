// Package bolt implements the ability to read and write blocks to a single
// bbolt database file, keyed by block number.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"go.etcd.io/bbolt"
)

var bucketName = []byte("blocks")

// Bolt represents the serialization implementation for reading and storing
// blocks in a bbolt file. This implements the database.Serializer interface.
type Bolt struct {
	db *bbolt.DB
}

// New opens or creates the bbolt file at the specified path.
func New(dbPath string) (*Bolt, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt file: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the bbolt file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write stores the block under its number. Blocks must be written in order.
func (b *Bolt) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)

		next := uint64(0)
		if k, _ := bucket.Cursor().Last(); k != nil {
			next = binary.BigEndian.Uint64(k) + 1
		}

		if blockData.Index != next {
			return fmt.Errorf("block is out of order, got %d, exp %d", blockData.Index, next)
		}

		return bucket.Put(key(blockData.Index), data)
	})
}

// GetBlock returns the block stored under the specified number.
func (b *Bolt) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(bucketName).Get(key(num))
		if val == nil {
			return fmt.Errorf("blk[%d]: %w", num, database.ErrNotFound)
		}

		return json.Unmarshal(val, &blockData)
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with the genesis block.
func (b *Bolt) ForEach() database.Iterator {
	return &boltIterator{bolt: b}
}

// Reset drops and recreates the bucket holding the blocks.
func (b *Bolt) Reset() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}

		_, err := tx.CreateBucket(bucketName)
		return err
	})
}

// key encodes the block number so keys sort in chain order.
func key(num uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, num)
	return k
}

// =============================================================================

// boltIterator walks the blocks one read transaction at a time so a long
// iteration never holds the file lock. This implements the database
// Iterator interface.
type boltIterator struct {
	bolt    *Bolt
	current uint64
	eoc     bool
}

// Next retrieves the next block from the file.
func (bi *boltIterator) Next() (database.BlockData, error) {
	if bi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData, err := bi.bolt.GetBlock(bi.current)
	if errors.Is(err, database.ErrNotFound) {
		bi.eoc = true
	}
	bi.current++

	return blockData, err
}

// Done returns the end of chain value.
func (bi *boltIterator) Done() bool {
	return bi.eoc
}
