package database

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Tx is the transactional information between two parties. These are the
// canonical fields covered by the transaction id and the signature.
type Tx struct {
	FromID        AccountID `json:"from"`                    // Account sending the value, empty for a coinbase.
	ToID          AccountID `json:"to"`                      // Account receiving the value.
	Amount        uint64    `json:"amount"`                  // Monetary value received from this transaction.
	TimeStamp     uint64    `json:"timestamp"`               // Unix milliseconds when the transaction was created.
	Data          string    `json:"data,omitempty"`          // Extra data related to the transaction.
	EncryptedData string    `json:"encryptedData,omitempty"` // Data sealed for the recipient.
	KEMCiphertext string    `json:"kemCiphertext,omitempty"` // Encapsulated key needed to open EncryptedData.
}

// NewTx constructs a new transaction.
func NewTx(fromID AccountID, toID AccountID, amount uint64, timeStamp uint64, data string) (Tx, error) {
	tx := Tx{
		FromID:    fromID,
		ToID:      toID,
		Amount:    amount,
		TimeStamp: timeStamp,
		Data:      data,
	}

	if err := tx.validate(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// NewCoinbaseTx constructs the reward transaction that mints new value for
// the specified account.
func NewCoinbaseTx(toID AccountID, amount uint64, timeStamp uint64) SignedTx {
	tx := Tx{
		ToID:      toID,
		Amount:    amount,
		TimeStamp: timeStamp,
	}

	return SignedTx{
		Tx: tx,
		ID: tx.Digest(),
	}
}

// Digest returns the digest of the canonical transaction fields.
func (tx Tx) Digest() string {
	return signature.Hash(tx)
}

// IsCoinbase reports whether the transaction mints new value.
func (tx Tx) IsCoinbase() bool {
	return tx.FromID.IsCoinbase()
}

// Sign uses the specified private key to sign the transaction. The from
// account must belong to the key.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if err := tx.validate(); err != nil {
		return SignedTx{}, err
	}

	if tx.IsCoinbase() {
		return SignedTx{}, errors.New("coinbase transactions are not signed")
	}

	if !PublicKeyToAccountID(privateKey.PublicKey).Equal(tx.FromID) {
		return SignedTx{}, fmt.Errorf("from account %s does not match the private key", tx.FromID)
	}

	sig, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:        tx,
		ID:        tx.Digest(),
		Signature: sig,
	}

	return signedTx, nil
}

// SignLegacy produces a transaction whose signature is its content hash.
// This only detects corruption and must be paired with signature.Legacy.
func (tx Tx) SignLegacy() (SignedTx, error) {
	if err := tx.validate(); err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:        tx,
		ID:        tx.Digest(),
		Signature: signature.SignLegacy(tx),
	}

	return signedTx, nil
}

// validate checks the fields a transaction needs regardless of signing.
func (tx Tx) validate() error {
	if !tx.ToID.IsAccountID() {
		return errors.New("to account is not properly formatted")
	}

	if !tx.IsCoinbase() {
		if !tx.FromID.IsAccountID() {
			return errors.New("from account is not properly formatted")
		}

		if tx.FromID.Equal(tx.ToID) {
			return fmt.Errorf("sending money to yourself, from %s, to %s", tx.FromID, tx.ToID)
		}
	}

	if tx.Amount == 0 {
		return errors.New("amount must be greater than zero")
	}

	if tx.TimeStamp == 0 {
		return errors.New("timestamp is required")
	}

	if tx.Data != "" && tx.EncryptedData != "" {
		return errors.New("data and encrypted data can't both be set")
	}

	if (tx.EncryptedData == "") != (tx.KEMCiphertext == "") {
		return errors.New("encrypted data requires a kem ciphertext")
	}

	return nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	ID        string `json:"id"`        // Digest of the canonical fields.
	Signature string `json:"signature"` // Signature over the canonical fields.
}

// Validate verifies the transaction is well formed, the id matches the
// canonical fields and, for anything but a coinbase, the signature was
// produced by the from account.
func (tx SignedTx) Validate(verifier signature.Verifier) error {
	if err := tx.Tx.validate(); err != nil {
		return err
	}

	if tx.ID != tx.Tx.Digest() {
		return fmt.Errorf("transaction id %s does not match its fields", tx.ID)
	}

	if tx.IsCoinbase() {
		return nil
	}

	if err := verifier.Verify(string(tx.FromID), tx.Tx, tx.Signature); err != nil {
		return err
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	from := string(tx.FromID)
	if tx.IsCoinbase() {
		from = "coinbase"
	}

	return fmt.Sprintf("%s:%s:%d", from, tx.ToID, tx.Amount)
}

// Hash implements the merkle Hashable interface for providing a hash
// of a signed transaction.
func (tx SignedTx) Hash() ([]byte, error) {
	str := signature.Hash(tx)
	return hex.DecodeString(str)
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions. Transactions with the same id and
// signature are the same.
func (tx SignedTx) Equals(otherTx SignedTx) bool {
	return tx.ID == otherTx.ID && tx.Signature == otherTx.Signature
}
