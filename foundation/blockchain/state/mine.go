package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// ErrStaleBlock is returned when the chain was replaced while a block was
// being mined on top of it.
var ErrStaleBlock = errors.New("chain was replaced while the block was mined")

// MineNewBlock drains up to a batch of transactions from the mempool, adds
// the coinbase for the reward account and solves the POW puzzle for the
// new block before appending it to the chain. An empty mempool produces a
// block holding only the coinbase. If mining is cancelled or the block is
// rejected, the drained transactions go back to the front of the mempool,
// unless the chain was replaced in the meantime.
func (s *State) MineNewBlock(ctx context.Context, rewardID database.AccountID) (database.Block, error) {
	if !rewardID.IsAccountID() {
		return database.Block{}, fmt.Errorf("invalid reward account %q", rewardID)
	}

	s.mineMu.Lock()
	defer s.mineMu.Unlock()

	epoch, prevBlock, difficulty, trans := s.assemble()

	// The clock can be behind the latest block after a snapshot import.
	timeStamp := s.timeStamp()
	if timeStamp < prevBlock.Header.TimeStamp {
		timeStamp = prevBlock.Header.TimeStamp
	}

	coinbase := database.NewCoinbaseTx(rewardID, s.MiningReward(), timeStamp)

	s.evHandler("state: MineNewBlock: MINING: perform POW: trans[%d]", len(trans)+1)

	block, err := database.POW(ctx, database.POWArgs{
		PrevBlock:  prevBlock,
		Difficulty: difficulty,
		TimeStamp:  timeStamp,
		Trans:      append(trans, coinbase),
		EvHandler:  s.evHandler,
	})

	if err := s.commit(epoch, block, trans, err); err != nil {
		return database.Block{}, err
	}

	s.evHandler("viewer: block: blk[%d]: hash[%s]: trans[%d]: difficulty[%d]", block.Header.Index, block.Hash(), len(trans)+1, block.Header.Difficulty)

	return block, nil
}

// assemble drains the mempool into the candidate block and records the
// chain it will be mined on.
func (s *State) assemble() (uint64, database.Block, uint16, []database.SignedTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: assembling: mempool[%d]", s.mempool.Count())

	drained := s.mempool.Drain(int(s.genesis.TransPerBlock))
	trans := s.selectTransactions(drained)
	s.mining = trans

	return s.epoch, s.db.LatestBlock(), s.db.Difficulty(), trans
}

// commit appends the mined block. When the search failed or the block is
// rejected, the transactions go back to the mempool if the chain they were
// selected against is still in place.
func (s *State) commit(epoch uint64, block database.Block, trans []database.SignedTx, powErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	s.mining = nil

	err := powErr
	if err == nil && s.epoch != epoch {
		err = ErrStaleBlock
	}

	if err == nil {
		s.evHandler("state: MineNewBlock: MINING: append block: blk[%d]", block.Header.Index)
		err = s.db.Append(block)
	}

	if err != nil {
		switch {
		case s.epoch == epoch:
			s.mempool.Restore(trans)
		default:
			s.evHandler("state: MineNewBlock: MINING: DROPPED: trans[%d]: chain replaced", len(trans))
		}
		return err
	}

	s.indexBlock(block)
	s.touch()

	return nil
}

// selectTransactions keeps the transactions that can be applied in order
// on top of the current balances. Any transaction that was already recorded
// or would overdraw its sender within the block is dropped.
func (s *State) selectTransactions(drained []database.SignedTx) []database.SignedTx {
	spent := make(map[database.AccountID]uint64)
	trans := make([]database.SignedTx, 0, len(drained)+1)

	for _, tx := range drained {
		if s.db.HasTransaction(tx.ID) {
			s.evHandler("state: MineNewBlock: MINING: DROPPED: tx[%s]: %s", tx, ErrTxExists)
			continue
		}

		key := database.AccountID(strings.ToLower(string(tx.FromID)))

		balance := s.db.BalanceOf(tx.FromID)
		if balance < spent[key] || balance-spent[key] < tx.Amount {
			s.evHandler("state: MineNewBlock: MINING: DROPPED: tx[%s]: %s", tx, ErrInsufficientFunds)
			continue
		}

		spent[key] += tx.Amount
		trans = append(trans, tx)
	}

	return trans
}
