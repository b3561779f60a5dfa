package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Set of errors returned when a transfer can't be applied.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTxExists          = errors.New("transaction already in the chain")
)

// replay walks the chain block by block, validating each block against its
// parent and applying every transfer to the account balances.
type replay struct {
	verifier  signature.Verifier
	evHandler func(v string, args ...any)

	previous   *Block
	latest     *Block
	accounts   map[AccountID]Account
	txIDs      map[string]struct{}
	totalTrans uint64
}

func newReplay(verifier signature.Verifier, evHandler func(v string, args ...any)) *replay {
	if verifier == nil {
		verifier = signature.ECDSA{}
	}

	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	return &replay{
		verifier:  verifier,
		evHandler: evHandler,
		accounts:  make(map[AccountID]Account),
		txIDs:     make(map[string]struct{}),
	}
}

// clone returns a copy that can be modified without affecting r.
func (r *replay) clone() *replay {
	cpy := *r

	cpy.accounts = make(map[AccountID]Account, len(r.accounts))
	for k, v := range r.accounts {
		cpy.accounts[k] = v
	}

	cpy.txIDs = make(map[string]struct{}, len(r.txIDs))
	for id := range r.txIDs {
		cpy.txIDs[id] = struct{}{}
	}

	return &cpy
}

// apply validates the block and applies its transactions in order. On error
// the replay must be discarded.
func (r *replay) apply(block Block) error {
	switch r.latest {
	case nil:
		if block.Header.Index != 0 {
			return fmt.Errorf("%w: chain must start with the genesis block, got blk[%d]", ErrLinkage, block.Header.Index)
		}

	default:
		if err := block.ValidateNext(*r.latest, r.evHandler); err != nil {
			return err
		}
	}

	if err := block.ValidateBlock(r.verifier, r.evHandler); err != nil {
		return err
	}

	for _, tx := range block.Values() {
		if err := r.transfer(tx); err != nil {
			return fmt.Errorf("blk[%d]: tx[%s]: %w", block.Header.Index, tx.ID, err)
		}
	}

	r.totalTrans += uint64(len(block.Values()))
	r.previous = r.latest
	r.latest = &block

	return nil
}

// transfer moves the amount between the accounts. A coinbase mints the
// amount for the receiver. A signed transaction can only be applied once
// over the whole chain.
func (r *replay) transfer(tx SignedTx) error {
	if !tx.IsCoinbase() {
		if _, exists := r.txIDs[tx.ID]; exists {
			return ErrTxExists
		}

		from := r.account(tx.FromID)
		if from.Balance < tx.Amount {
			return fmt.Errorf("%w: account %s, balance %d, needed %d", ErrInsufficientFunds, tx.FromID, from.Balance, tx.Amount)
		}

		from.Balance -= tx.Amount
		r.accounts[tx.FromID.key()] = from
		r.txIDs[tx.ID] = struct{}{}
	}

	to := r.account(tx.ToID)
	to.Balance += tx.Amount
	r.accounts[tx.ToID.key()] = to

	return nil
}

// account returns the current state of the account.
func (r *replay) account(accountID AccountID) Account {
	account, exists := r.accounts[accountID.key()]
	if !exists {
		return Account{AccountID: accountID}
	}
	return account
}
