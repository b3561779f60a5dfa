package mempool_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const bobID = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

func sign(t *testing.T, amount uint64, ts uint64) database.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the key: %v", failed, err)
	}

	tx, err := database.NewTx(database.PublicKeyToAccountID(pk.PublicKey), bobID, amount, ts, "")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the transaction: %v", failed, err)
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}

	return signedTx
}

func Test_FIFO(t *testing.T) {
	t.Log("Given the need to hand transactions to the miner in admission order.")
	{
		t.Logf("\tTest 0:\tWhen draining part of the pool.")
		{
			mp := mempool.New()

			var trans []database.SignedTx
			for i := uint64(1); i <= 12; i++ {
				tx := sign(t, i, 1_700_000_000_000+i)
				trans = append(trans, tx)

				n, err := mp.Add(tx)
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to add tx %d: %v", failed, i, err)
				}
				if n != int(i) {
					t.Fatalf("\t%s\tTest 0:\tShould report the pool size: got %d, exp %d", failed, n, i)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould be able to add transactions.", success)

			if _, err := mp.Add(trans[0]); !errors.Is(err, mempool.ErrDuplicate) {
				t.Fatalf("\t%s\tTest 0:\tShould reject a duplicate: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a duplicate.", success)

			if got := mp.PendingFrom(trans[0].FromID); got != 78 {
				t.Fatalf("\t%s\tTest 0:\tShould sum the pending amounts: got %d", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould sum the pending amounts.", success)

			snapshot := mp.Copy()
			if len(snapshot) != 12 || mp.Count() != 12 {
				t.Fatalf("\t%s\tTest 0:\tShould copy without draining.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould copy without draining.", success)

			drained := mp.Drain(10)
			if len(drained) != 10 {
				t.Fatalf("\t%s\tTest 0:\tShould drain 10 transactions: got %d", failed, len(drained))
			}
			for i, tx := range drained {
				if tx.ID != trans[i].ID {
					t.Fatalf("\t%s\tTest 0:\tShould drain in admission order at %d.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould drain 10 transactions in admission order.", success)

			rest := mp.Copy()
			if len(rest) != 2 || rest[0].ID != trans[10].ID || rest[1].ID != trans[11].ID {
				t.Fatalf("\t%s\tTest 0:\tShould keep the transactions not drained.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the transactions not drained.", success)

			mp.Restore(drained)
			restored := mp.Copy()
			for i, tx := range restored {
				if tx.ID != trans[i].ID {
					t.Fatalf("\t%s\tTest 0:\tShould restore the admission order at %d.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould restore the admission order.", success)

			mp.Truncate()
			if mp.Count() != 0 || len(mp.Drain(10)) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould be empty after truncate.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be empty after truncate.", success)

			if _, err := mp.Add(trans[0]); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept a transaction again after truncate: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept a transaction again after truncate.", success)
		}
	}
}
