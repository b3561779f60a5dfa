package public

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// submitTx is the payload for a transaction submitted by a wallet.
type submitTx struct {
	FromID        string `json:"from" validate:"omitempty,account"`
	ToID          string `json:"to" validate:"required,account"`
	Amount        uint64 `json:"amount" validate:"gt=0"`
	TimeStamp     uint64 `json:"timestamp" validate:"gt=0"`
	Data          string `json:"data,omitempty"`
	EncryptedData string `json:"encryptedData,omitempty"`
	KEMCiphertext string `json:"kemCiphertext,omitempty"`
	ID            string `json:"id" validate:"required,len=64,hexadecimal"`
	Signature     string `json:"signature" validate:"required"`
}

func toSignedTx(tx submitTx) database.SignedTx {
	return database.SignedTx{
		Tx: database.Tx{
			FromID:        database.AccountID(tx.FromID),
			ToID:          database.AccountID(tx.ToID),
			Amount:        tx.Amount,
			TimeStamp:     tx.TimeStamp,
			Data:          tx.Data,
			EncryptedData: tx.EncryptedData,
			KEMCiphertext: tx.KEMCiphertext,
		},
		ID:        tx.ID,
		Signature: tx.Signature,
	}
}

// mineRequest names the account that receives the reward. The node's miner
// account is used when it is empty.
type mineRequest struct {
	RewardAddress string `json:"rewardAddress" validate:"omitempty,account"`
}

// submitted is the response for an admitted transaction.
type submitted struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Mempool int    `json:"mempool"`
}

// balance is the response for an account balance.
type balance struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Balance uint64             `json:"balance"`
}

// accounts is the response for the set of accounts known to the chain.
type accounts struct {
	LatestBlock string    `json:"latestBlock"`
	Mempool     int       `json:"mempool"`
	Accounts    []balance `json:"accounts"`
}

// fragments is the response for a block that is sent in pieces.
type fragments struct {
	Index      uint64 `json:"index"`
	Fragmented bool   `json:"fragmented"`
	Fragments  any    `json:"fragments"`
}

// =============================================================================

// blockIndex accepts a block number or the word latest, as a JSON string or
// number.
type blockIndex string

// UnmarshalJSON implements the json.Unmarshaler interface.
func (bi *blockIndex) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*bi = blockIndex(n.String())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("index must be a number or %q", "latest")
	}
	*bi = blockIndex(s)

	return nil
}

// parse converts the index into a block number.
func (bi blockIndex) parse() (uint64, error) {
	if bi == "" || bi == "latest" {
		return state.QueryLatest, nil
	}

	num, err := strconv.ParseUint(string(bi), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block index %q", string(bi))
	}

	return num, nil
}
