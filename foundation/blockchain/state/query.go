package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// ChainInfo summarizes the chain.
type ChainInfo struct {
	Height            uint64 `json:"height"`
	LatestBlockHash   string `json:"latestBlockHash"`
	TotalTransactions uint64 `json:"totalTransactions"`
	IsValid           bool   `json:"isValid"`
	Difficulty        uint16 `json:"difficulty"`
	MiningReward      uint64 `json:"miningReward"`
	Mempool           int    `json:"mempool"`
}

// QueryChainInfo returns the summary of the chain. The validity flag comes
// from a full scan of the chain.
func (s *State) QueryChainInfo() ChainInfo {
	latest := s.db.LatestBlock()

	return ChainInfo{
		Height:            latest.Header.Index,
		LatestBlockHash:   latest.Hash(),
		TotalTransactions: s.db.TotalTransactions(),
		IsValid:           s.db.IsValid(),
		Difficulty:        s.db.Difficulty(),
		MiningReward:      s.MiningReward(),
		Mempool:           s.mempool.Count(),
	}
}

// QueryBlockNumber returns the number of the latest block.
func (s *State) QueryBlockNumber() uint64 {
	return s.db.Len() - 1
}

// QueryBlockByNumber returns the block for the number. Use QueryLatest for
// the latest block.
func (s *State) QueryBlockByNumber(num uint64) (database.Block, error) {
	if num == QueryLatest {
		return s.db.LatestBlock(), nil
	}

	return s.db.GetBlock(num)
}

// QueryBlockByHash returns the block with the hash. The block number is
// looked up in the hash index first and the chain is walked on a miss.
func (s *State) QueryBlockByHash(hash string) (database.Block, error) {
	if num, exists := s.lookupBlock(hash); exists {
		block, err := s.db.GetBlock(num)
		if err == nil && block.Hash() == hash {
			return block, nil
		}
	}

	block, err := s.db.FindBlockByHash(hash)
	if err != nil {
		return database.Block{}, err
	}

	s.indexBlock(block)

	return block, nil
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) ([]database.Block, error) {
	if from == QueryLatest {
		from = s.db.LatestBlock().Header.Index
		to = from
	}
	if to == QueryLatest || to >= s.db.Len() {
		to = s.db.Len() - 1
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

// QueryMempool returns a copy of the mempool in admission order.
func (s *State) QueryMempool() []database.SignedTx {
	return s.mempool.Copy()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBalance returns the balance for the account derived from the chain.
func (s *State) QueryBalance(accountID database.AccountID) (uint64, error) {
	if !accountID.IsAccountID() {
		return 0, fmt.Errorf("invalid account %q", accountID)
	}

	return s.db.BalanceOf(accountID), nil
}

// QueryBalances returns every account that has transacted on the chain.
func (s *State) QueryBalances() map[database.AccountID]database.Account {
	return s.db.Balances()
}

// QueryTransactionHistory returns the transactions for the account, most
// recent block first.
func (s *State) QueryTransactionHistory(accountID database.AccountID) ([]database.TxRecord, error) {
	if !accountID.IsAccountID() {
		return nil, fmt.Errorf("invalid account %q", accountID)
	}

	return s.db.TransactionHistory(accountID)
}

// ValidateChain performs a full scan of the chain. The result is a report,
// nothing is changed when the chain is invalid.
func (s *State) ValidateChain() error {
	return s.db.Validate()
}

// IsNotFound reports whether the error means the block does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// Difficulty returns the difficulty the next block must be mined at.
func (s *State) Difficulty() uint16 {
	return s.db.Difficulty()
}
