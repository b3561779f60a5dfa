// Package database handles all the lower level support for maintaining the
// blockchain in storage and maintaining an in memory index of account
// balances derived from it.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain. Blocks are
// only ever appended, numbered from 0.
type Serializer interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks. Next returns an error
// and Done reports true once the end of the chain has been read.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// ErrChainReplaced is returned by an iterator when the chain was replaced
// while it was being walked.
var ErrChainReplaced = errors.New("chain was replaced during iteration")

// DatabaseIterator walks the chain converting stored blocks. Each block is
// read under the database lock, and the walk stops with ErrChainReplaced if
// the chain is swapped out underneath it.
type DatabaseIterator struct {
	db         *Database
	next       uint64
	end        uint64
	generation uint64
	done       bool
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	if di.next >= di.end {
		di.done = true
		return Block{}, nil
	}

	di.db.mu.RLock()
	defer di.db.mu.RUnlock()

	if di.db.generation != di.generation {
		return Block{}, ErrChainReplaced
	}

	blockData, err := di.db.serializer.GetBlock(di.next)
	if err != nil {
		return Block{}, err
	}
	di.next++

	return ToBlock(blockData)
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.done
}

// =============================================================================

// Config represents the configuration required to start the database.
type Config struct {
	Genesis    genesis.Genesis
	Serializer Serializer
	Verifier   signature.Verifier
	EvHandler  func(v string, args ...any)
}

// Database manages the chain and the account balances derived from it.
type Database struct {
	mu sync.RWMutex

	genesis    genesis.Genesis
	verifier   signature.Verifier
	evHandler  func(v string, args ...any)
	serializer Serializer

	replay     *replay
	difficulty uint16
	generation uint64
}

// New constructs a new database. An empty serializer is initialized with the
// genesis block, otherwise every stored block is validated and replayed to
// rebuild the balances.
func New(cfg Config) (*Database, error) {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	verifier := cfg.Verifier
	if verifier == nil {
		verifier = signature.ECDSA{}
	}

	db := Database{
		genesis:    cfg.Genesis,
		verifier:   verifier,
		evHandler:  ev,
		serializer: cfg.Serializer,
	}

	r, err := db.load()
	if err != nil {
		return nil, err
	}

	if r.latest == nil {
		block, err := NewGenesisBlock(uint64(cfg.Genesis.Date.UnixMilli()), cfg.Genesis.Difficulty)
		if err != nil {
			return nil, err
		}

		if err := r.apply(block); err != nil {
			return nil, err
		}

		if err := db.serializer.Write(NewBlockData(block)); err != nil {
			return nil, fmt.Errorf("writing genesis: %w", err)
		}

		ev("database: New: genesis block written: hash[%s]", block.Hash())
	}

	db.replay = r
	db.difficulty = db.nextDifficulty(r)

	return &db, nil
}

// Close closes the open blocks database.
func (db *Database) Close() error {
	return db.serializer.Close()
}

// Genesis returns the chain parameters.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// Verifier returns the verifier used to authenticate transactions.
func (db *Database) Verifier() signature.Verifier {
	return db.verifier
}

// =============================================================================

// Append validates the block against the latest block and the derived
// balances and writes it to storage. The difficulty is retargeted after the
// block is written.
func (db *Database) Append(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if block.Header.Difficulty != db.difficulty {
		return fmt.Errorf("block difficulty %d does not match the chain difficulty %d", block.Header.Difficulty, db.difficulty)
	}

	// Apply to a copy so a rejected block leaves the balances untouched.
	r := db.replay.clone()
	if err := r.apply(block); err != nil {
		return err
	}

	if err := db.serializer.Write(NewBlockData(block)); err != nil {
		return fmt.Errorf("writing blk[%d]: %w", block.Header.Index, err)
	}

	db.replay = r
	db.difficulty = db.nextDifficulty(r)

	db.evHandler("database: Append: blk[%d]: hash[%s]: next difficulty[%d]", block.Header.Index, block.Hash(), db.difficulty)

	return nil
}

// Replace swaps the whole chain for the specified blocks. The blocks are
// validated before anything in storage is touched.
func (db *Database) Replace(blocks []BlockData, difficulty uint16) error {
	r, err := ValidateChain(blocks, db.verifier, db.evHandler)
	if err != nil {
		return err
	}

	switch {
	case difficulty == 0:
		difficulty = db.nextDifficulty(r.replay)
	default:
		if err := db.checkDifficulty(r.Latest(), difficulty); err != nil {
			return err
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.serializer.Reset(); err != nil {
		return fmt.Errorf("resetting storage: %w", err)
	}

	for _, blockData := range blocks {
		if err := db.serializer.Write(blockData); err != nil {
			return fmt.Errorf("writing blk[%d]: %w", blockData.Index, err)
		}
	}

	db.replay = r.replay
	db.difficulty = difficulty
	db.generation++

	db.evHandler("database: Replace: blocks[%d]: difficulty[%d]", len(blocks), difficulty)

	return nil
}

// =============================================================================

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return *db.replay.latest
}

// Len returns the number of blocks in the chain, genesis included.
func (db *Database) Len() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.replay.latest.Header.Index + 1
}

// Difficulty returns the difficulty the next block must be mined with.
func (db *Database) Difficulty() uint16 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.difficulty
}

// TotalTransactions returns the number of transactions recorded in the chain.
func (db *Database) TotalTransactions() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.replay.totalTrans
}

// HasTransaction reports whether a transaction with the id has already been
// recorded in the chain.
func (db *Database) HasTransaction(id string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.replay.txIDs[id]
	return exists
}

// BalanceOf returns the balance for the account as derived from the chain.
func (db *Database) BalanceOf(accountID AccountID) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.replay.accounts[accountID.key()].Balance
}

// Balances makes a copy of the derived balances for every account that has
// transacted on the chain.
func (db *Database) Balances() map[AccountID]Account {
	db.mu.RLock()
	defer db.mu.RUnlock()

	accounts := make(map[AccountID]Account, len(db.replay.accounts))
	for _, account := range db.replay.accounts {
		accounts[account.AccountID] = account
	}
	return accounts
}

// GetBlock searches the blockchain to locate and return the contents of the
// specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num > db.replay.latest.Header.Index {
		return Block{}, fmt.Errorf("blk[%d]: %w", num, ErrNotFound)
	}

	blockData, err := db.serializer.GetBlock(num)
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// FindBlockByHash walks the chain looking for the block with the hash.
func (db *Database) FindBlockByHash(hash string) (Block, error) {
	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return Block{}, err
		}

		if block.Hash() == hash {
			return block, nil
		}
	}

	return Block{}, fmt.Errorf("hash[%s]: %w", hash, ErrNotFound)
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block.
func (db *Database) ForEach() DatabaseIterator {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return DatabaseIterator{
		db:         db,
		end:        db.replay.latest.Header.Index + 1,
		generation: db.generation,
	}
}

// Export returns every block in the chain in storage form.
func (db *Database) Export() ([]BlockData, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var blocks []BlockData

	iter := db.serializer.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blockData.Copy())
	}

	return blocks, nil
}

// =============================================================================

// Validate performs a full scan of the chain in storage. Every block is
// checked on its own and against its parent and every transfer is replayed
// to make sure no account is overdrawn.
func (db *Database) Validate() error {
	r := newReplay(db.verifier, db.evHandler)

	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return err
		}

		if err := r.apply(block); err != nil {
			return err
		}
	}

	if r.latest == nil {
		return errors.New("chain is empty")
	}

	return nil
}

// IsValid reports whether a full scan of the chain succeeds.
func (db *Database) IsValid() bool {
	return db.Validate() == nil
}

// =============================================================================

// TxRecord is a transaction as it was recorded in the chain.
type TxRecord struct {
	BlockIndex     uint64   `json:"blockIndex"`
	BlockHash      string   `json:"blockHash"`
	BlockTimeStamp uint64   `json:"blockTimestamp"`
	Direction      string   `json:"direction"`
	Tx             SignedTx `json:"transaction"`
}

// Set of directions for a transaction record.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// TransactionHistory replays the chain and returns every transaction that
// involves the account. Records are ordered most recent block first while
// keeping the inclusion order inside each block.
func (db *Database) TransactionHistory(accountID AccountID) ([]TxRecord, error) {
	var blocks [][]TxRecord

	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		var records []TxRecord
		for _, tx := range block.Values() {
			var direction string
			switch {
			case !tx.IsCoinbase() && tx.FromID.Equal(accountID):
				direction = DirectionOut
			case tx.ToID.Equal(accountID):
				direction = DirectionIn
			default:
				continue
			}

			records = append(records, TxRecord{
				BlockIndex:     block.Header.Index,
				BlockHash:      block.Hash(),
				BlockTimeStamp: block.Header.TimeStamp,
				Direction:      direction,
				Tx:             tx,
			})
		}

		if len(records) > 0 {
			blocks = append(blocks, records)
		}
	}

	history := []TxRecord{}
	for i := len(blocks) - 1; i >= 0; i-- {
		history = append(history, blocks[i]...)
	}

	return history, nil
}

// =============================================================================

// load reads every block from storage and replays it.
func (db *Database) load() (*replay, error) {
	r := newReplay(db.verifier, db.evHandler)

	iter := db.serializer.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		if err := r.apply(block); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// nextDifficulty computes the difficulty for the block after the latest.
// The retarget is skipped until there are two mined blocks to compare.
func (db *Database) nextDifficulty(r *replay) uint16 {
	latest := r.latest
	if latest.Header.Index <= 1 || r.previous == nil {
		return latest.Header.Difficulty
	}

	return Retarget(
		latest.Header.Difficulty,
		db.genesis.MaxDifficulty,
		r.previous.Header.TimeStamp,
		latest.Header.TimeStamp,
		db.genesis.TargetBlockTime.Std(),
	)
}

// checkDifficulty makes sure the next block can be mined on top of latest
// with the difficulty.
func (db *Database) checkDifficulty(latest Block, difficulty uint16) error {
	if db.genesis.MaxDifficulty > 0 && difficulty > db.genesis.MaxDifficulty {
		return fmt.Errorf("difficulty %d is over the max difficulty %d", difficulty, db.genesis.MaxDifficulty)
	}

	cur := int(latest.Header.Difficulty)
	if next := int(difficulty); next > cur+1 || next < cur-1 {
		return fmt.Errorf("difficulty %d moved by more than one from the latest block difficulty %d", difficulty, cur)
	}

	return nil
}

// =============================================================================

// ValidatedChain is the result of validating a sequence of blocks.
type ValidatedChain struct {
	*replay
}

// Latest returns the last block of the validated chain.
func (vc ValidatedChain) Latest() Block {
	return *vc.latest
}

// ValidateChain checks a complete chain, starting with the genesis block,
// without touching storage.
func ValidateChain(blocks []BlockData, verifier signature.Verifier, evHandler func(v string, args ...any)) (ValidatedChain, error) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	if len(blocks) == 0 {
		return ValidatedChain{}, errors.New("chain is empty")
	}

	r := newReplay(verifier, evHandler)
	for _, blockData := range blocks {
		block, err := ToBlock(blockData)
		if err != nil {
			return ValidatedChain{}, err
		}

		if err := r.apply(block); err != nil {
			return ValidatedChain{}, err
		}
	}

	return ValidatedChain{replay: r}, nil
}
