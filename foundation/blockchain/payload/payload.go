// Package payload seals transaction data for a single recipient. A fresh
// X25519 key pair is generated per message, the shared secret is expanded
// with HKDF and the data is sealed with XChaCha20-Poly1305.
package payload

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const info = "ledger payload v1"

// ErrOpen is returned when a payload can't be decrypted with the key.
var ErrOpen = errors.New("unable to open payload")

// KeyPair represents the recipient keys used to seal and open payloads.
type KeyPair struct {
	Private []byte
	Public  []byte
}

// GenerateKey creates a new recipient key pair.
func GenerateKey() (KeyPair, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rand.Reader, priv); err != nil {
		return KeyPair{}, err
	}

	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, err
	}

	return KeyPair{Private: priv, Public: pub}, nil
}

// KeyPairFromHex rebuilds the key pair from the hex encoded private key.
func KeyPairFromHex(privateHex string) (KeyPair, error) {
	priv, err := hexutil.Decode(privateHex)
	if err != nil {
		return KeyPair{}, err
	}

	if len(priv) != curve25519.ScalarSize {
		return KeyPair{}, fmt.Errorf("private key must be %d bytes", curve25519.ScalarSize)
	}

	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, err
	}

	return KeyPair{Private: priv, Public: pub}, nil
}

// PrivateHex returns the hex encoded private key.
func (kp KeyPair) PrivateHex() string {
	return hexutil.Encode(kp.Private)
}

// PublicHex returns the hex encoded public key.
func (kp KeyPair) PublicHex() string {
	return hexutil.Encode(kp.Public)
}

// Seal encrypts the plaintext for the owner of the public key. It returns
// the ciphertext and the encapsulated key the recipient needs to open it.
func Seal(recipientPub []byte, plaintext []byte) (ciphertext []byte, kemCiphertext []byte, err error) {
	eph, err := GenerateKey()
	if err != nil {
		return nil, nil, err
	}

	shared, err := curve25519.X25519(eph.Private, recipientPub)
	if err != nil {
		return nil, nil, fmt.Errorf("key agreement: %w", err)
	}

	aead, err := newAEAD(shared, eph.Public, recipientPub)
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}

	return aead.Seal(nonce, nonce, plaintext, eph.Public), eph.Public, nil
}

// Open decrypts a payload produced by Seal.
func Open(kp KeyPair, ciphertext []byte, kemCiphertext []byte) ([]byte, error) {
	shared, err := curve25519.X25519(kp.Private, kemCiphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOpen, err)
	}

	aead, err := newAEAD(shared, kemCiphertext, kp.Public)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrOpen)
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, kemCiphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOpen, err)
	}

	return plaintext, nil
}

// SealString is Seal for hex encoded keys and values as they are carried
// by a transaction.
func SealString(recipientPubHex string, data string) (encryptedData string, kemCiphertext string, err error) {
	pub, err := hexutil.Decode(recipientPubHex)
	if err != nil {
		return "", "", fmt.Errorf("decoding public key: %w", err)
	}

	ct, kem, err := Seal(pub, []byte(data))
	if err != nil {
		return "", "", err
	}

	return hexutil.Encode(ct), hexutil.Encode(kem), nil
}

// OpenString is Open for hex encoded values as they are carried by a
// transaction.
func OpenString(kp KeyPair, encryptedData string, kemCiphertext string) (string, error) {
	ct, err := hexutil.Decode(encryptedData)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOpen, err)
	}

	kem, err := hexutil.Decode(kemCiphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOpen, err)
	}

	data, err := Open(kp, ct, kem)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// newAEAD derives the message key from the shared secret and both public
// keys.
func newAEAD(shared []byte, ephPub []byte, recipientPub []byte) (cipher.AEAD, error) {
	salt := make([]byte, 0, len(ephPub)+len(recipientPub))
	salt = append(salt, ephPub...)
	salt = append(salt, recipientPub...)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(info)), key); err != nil {
		return nil, err
	}

	return chacha20poly1305.NewX(key)
}
