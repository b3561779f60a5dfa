package signature_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from     = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	sig, err := signature.Sign(value, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if err := signature.VerifySignature(sig); err != nil {
		t.Fatalf("Should be able to verify the signature: %s", err)
	}

	addr, err := signature.FromAddress(value, sig)
	if err != nil {
		t.Fatalf("Should be able to generate from address: %s", err)
	}

	if from != addr {
		t.Logf("got: %s", addr)
		t.Logf("exp: %s", from)
		t.Fatalf("Should get back the right address.")
	}

	if err := (signature.ECDSA{}).Verify(from, value, sig); err != nil {
		t.Fatalf("Should be able to verify with the ECDSA verifier: %s", err)
	}
}

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}
	hash := "0f6887ac85101d6d6425a617edf35bd721b5f619fb92c36c3d2224e3bdb0ee5a"

	h := signature.Hash(value)
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the right hash: %s", h[:6])
	}

	h = signature.Hash(value)
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the same hash twice.")
	}
}

func Test_SignerMismatch(t *testing.T) {
	value1 := struct {
		Name string
	}{
		Name: "Bill",
	}
	value2 := struct {
		Name string
	}{
		Name: "Jill",
	}

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	sig, err := signature.Sign(value1, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	err = (signature.ECDSA{}).Verify(from, value2, sig)
	if !errors.Is(err, signature.ErrSignerMismatch) {
		t.Fatalf("Should reject a signature over different data: %v", err)
	}

	err = (signature.ECDSA{}).Verify(from, value1, "0x1234")
	if !errors.Is(err, signature.ErrInvalidSignature) {
		t.Fatalf("Should reject a malformed signature: %v", err)
	}
}

func Test_Legacy(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	sig := signature.SignLegacy(value)
	if sig != signature.Hash(value) {
		t.Fatalf("Should produce the content hash as the legacy signature.")
	}

	if err := (signature.Legacy{}).Verify("", value, sig); err != nil {
		t.Fatalf("Should verify a legacy signature: %s", err)
	}

	value.Name = "Jill"
	if err := (signature.Legacy{}).Verify("", value, sig); err == nil {
		t.Fatalf("Should reject a legacy signature after the value changed.")
	}
}
