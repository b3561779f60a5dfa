// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ledgerID is an arbitrary number for signing messages. This will make it
// clear that the signature comes from this ledger.
// Ethereum and Bitcoin do this as well, but they use the value of 27.
const ledgerID = 29

// Set of errors returned when a signature can't be accepted.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignerMismatch   = errors.New("signature does not belong to the from account")
)

// =============================================================================

// Hash returns a unique hex encoded sha256 digest for the value. The value
// is marshaled to JSON first so field order follows the struct definition.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}

	return HashBytes(data)
}

// HashBytes returns the hex encoded sha256 digest of the data.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Sign uses the specified private key to sign the value. The signature is
// returned hex encoded in the [R|S|V] format.
func Sign(value any, privateKey *ecdsa.PrivateKey) (string, error) {

	// Prepare the data for signing.
	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	// Extract the public key from the data and the signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the data and signature.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return "", ErrInvalidSignature
	}

	// Move the recovery id into the ledger range.
	sig[crypto.RecoveryIDOffset] += ledgerID

	return hexutil.Encode(sig), nil
}

// VerifySignature verifies the signature conforms to our standards.
func VerifySignature(sigStr string) error {
	sig, err := decode(sigStr)
	if err != nil {
		return err
	}

	// Check the recovery id is either 0 or 1.
	v := sig[crypto.RecoveryIDOffset] - ledgerID
	if v != 0 && v != 1 {
		return fmt.Errorf("%w: invalid recovery id", ErrInvalidSignature)
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])

	// Check the signature values are valid.
	if !crypto.ValidateSignatureValues(v, r, s, false) {
		return fmt.Errorf("%w: invalid signature values", ErrInvalidSignature)
	}

	return nil
}

// FromAddress extracts the address for the account that signed the value.
func FromAddress(value any, sigStr string) (string, error) {

	// NOTE: If the same exact data for the given signature is not provided
	// we will get the wrong from address for this transaction. The public
	// key is being extracted from the data and signature.

	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	sig, err := decode(sigStr)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] -= ledgerID

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// =============================================================================

// Verifier represents the behavior required to authenticate the sender of a
// signed value. The ledger never depends on a concrete signature algorithm.
type Verifier interface {
	Verify(from string, value any, sig string) error
}

// ECDSA verifies secp256k1 signatures produced by Sign.
type ECDSA struct{}

// Verify checks the signature is well formed and was produced by the from
// account over the value.
func (ECDSA) Verify(from string, value any, sig string) error {
	if err := VerifySignature(sig); err != nil {
		return err
	}

	addr, err := FromAddress(value, sig)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if !strings.EqualFold(addr, from) {
		return ErrSignerMismatch
	}

	return nil
}

// Legacy reproduces chains where the signature is the content hash of the
// value. It detects accidental corruption only: anyone can produce a valid
// Legacy signature for any sender. Do not use it for new chains.
type Legacy struct{}

// SignLegacy returns the legacy signature for the value.
func SignLegacy(value any) string {
	return Hash(value)
}

// Verify recomputes the content hash and compares it with the signature.
func (Legacy) Verify(from string, value any, sig string) error {
	if Hash(value) != sig {
		return ErrInvalidSignature
	}

	return nil
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the ledger stamp embedded into the final hash.
func stamp(value any) ([]byte, error) {

	// Marshal the data.
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	// Hash the data data into a 32 byte array. This will provide
	// a data length consistency with all data.
	txHash := crypto.Keccak256(v)

	// Convert the stamp into a slice of bytes. This stamp is
	// used so signatures we produce when signing data
	// are always unique to this ledger.
	stamp := []byte("\x19Ledger Signed Message:\n32")

	// Hash the stamp and txHash together in a final 32 byte array
	// that represents the data.
	return crypto.Keccak256(stamp, txHash), nil
}

// decode converts the hex signature into its 65 raw bytes.
func decode(sigStr string) ([]byte, error) {
	sig, err := hexutil.Decode(sigStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	return sig, nil
}
