package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
)

// Set of errors returned when a transaction can't be admitted.
var (
	ErrInsufficientFunds = database.ErrInsufficientFunds
	ErrTxExists          = database.ErrTxExists
	ErrCoinbase          = errors.New("coinbase transactions are created by the miner")
)

// SubmitTransaction accepts a signed transaction for inclusion into the
// mempool. A transaction that fails validation, was already recorded, or
// whose sender can't cover the amount after what the sender already has
// pending, is rejected.
func (s *State) SubmitTransaction(signedTx database.SignedTx) error {
	n, err := s.admit(signedTx)
	if err != nil {
		s.evHandler("state: SubmitTransaction: REJECTED: tx[%s]: %s", signedTx, err)
		return err
	}

	s.touch()
	s.evHandler("state: SubmitTransaction: tx[%s]: id[%s]: mempool[%d]", signedTx, signedTx.ID, n)

	s.signalMining()

	return nil
}

// TruncateMempool clears all the transactions waiting to be mined.
func (s *State) TruncateMempool() {
	s.mempool.Truncate()
	s.touch()

	s.evHandler("state: TruncateMempool: mempool cleared")
}

// =============================================================================

// admit validates the transaction and adds it to the mempool as one step.
func (s *State) admit(signedTx database.SignedTx) (int, error) {
	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	if err := s.validateTransaction(signedTx); err != nil {
		return 0, err
	}

	return s.mempool.Add(signedTx)
}

// validateTransaction takes the signed transaction and validates it has
// a proper signature, has not been recorded yet and the sender holds the
// funds. The caller must hold admitMu.
func (s *State) validateTransaction(signedTx database.SignedTx) error {
	if err := signedTx.Validate(s.db.Verifier()); err != nil {
		return err
	}

	if signedTx.IsCoinbase() {
		return ErrCoinbase
	}

	if s.db.HasTransaction(signedTx.ID) {
		return fmt.Errorf("%w: id %s", ErrTxExists, signedTx.ID)
	}

	key := strings.ToLower(string(signedTx.FromID))

	var mining uint64
	for _, tx := range s.mining {
		if tx.ID == signedTx.ID {
			return fmt.Errorf("%w: id %s is being mined", mempool.ErrDuplicate, signedTx.ID)
		}
		if strings.ToLower(string(tx.FromID)) == key {
			mining += tx.Amount
		}
	}

	balance := s.db.BalanceOf(signedTx.FromID)
	pending := s.mempool.PendingFrom(signedTx.FromID) + mining

	var available uint64
	if balance > pending {
		available = balance - pending
	}

	if available < signedTx.Amount {
		return fmt.Errorf("%w: account %s, balance %d, pending %d, needed %d", ErrInsufficientFunds, signedTx.FromID, balance, pending, signedTx.Amount)
	}

	return nil
}
