// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"errors"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// ErrDuplicate is returned when a transaction with the same id is already
// waiting in the pool.
var ErrDuplicate = errors.New("transaction already in the mempool")

// Mempool represents the set of transactions waiting to be mined, kept in
// the order they were admitted.
type Mempool struct {
	mu   sync.RWMutex
	pool []database.SignedTx
	ids  map[string]struct{}
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		ids: make(map[string]struct{}),
	}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends the transaction to the end of the pool and returns the new
// size of the pool.
func (mp *Mempool) Add(tx database.SignedTx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.ids[tx.ID]; exists {
		return len(mp.pool), ErrDuplicate
	}

	mp.pool = append(mp.pool, tx)
	mp.ids[tx.ID] = struct{}{}

	return len(mp.pool), nil
}

// Drain removes and returns up to howMany transactions from the front of
// the pool. Pass -1 for all the transactions.
func (mp *Mempool) Drain(howMany int) []database.SignedTx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if howMany < 0 || howMany > len(mp.pool) {
		howMany = len(mp.pool)
	}

	drained := make([]database.SignedTx, howMany)
	copy(drained, mp.pool[:howMany])

	mp.pool = append([]database.SignedTx{}, mp.pool[howMany:]...)
	for _, tx := range drained {
		delete(mp.ids, tx.ID)
	}

	return drained
}

// Restore puts previously drained transactions back at the front of the
// pool in their original order. Transactions admitted again in the
// meantime are skipped.
func (mp *Mempool) Restore(trans []database.SignedTx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	front := make([]database.SignedTx, 0, len(trans)+len(mp.pool))
	for _, tx := range trans {
		if _, exists := mp.ids[tx.ID]; exists {
			continue
		}
		front = append(front, tx)
		mp.ids[tx.ID] = struct{}{}
	}

	mp.pool = append(front, mp.pool...)
}

// Copy returns a snapshot of the pool in admission order.
func (mp *Mempool) Copy() []database.SignedTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.SignedTx, len(mp.pool))
	copy(cpy, mp.pool)

	return cpy
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.ids = make(map[string]struct{})
}

// Replace swaps the contents of the pool for the specified transactions.
func (mp *Mempool) Replace(trans []database.SignedTx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make([]database.SignedTx, 0, len(trans))
	mp.ids = make(map[string]struct{}, len(trans))

	for _, tx := range trans {
		if _, exists := mp.ids[tx.ID]; exists {
			continue
		}
		mp.pool = append(mp.pool, tx)
		mp.ids[tx.ID] = struct{}{}
	}
}

// PendingFrom returns the total amount the account is already sending
// through transactions waiting in the pool.
func (mp *Mempool) PendingFrom(accountID database.AccountID) uint64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	var total uint64
	for _, tx := range mp.pool {
		if !tx.IsCoinbase() && tx.FromID.Equal(accountID) {
			total += tx.Amount
		}
	}

	return total
}
