package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const minerID = database.AccountID("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")

func open(_ *testing.T, _ string) database.Serializer {
	return memory.New()
}

func Test_Storage(t *testing.T) {
	t.Log("Given the need to keep the chain in memory storage.")
	{
		t.Logf("\tTest 0:\tWhen writing and reading blocks.")
		{
			dir := t.TempDir()
			gen := genesis.Default()

			store := open(t, dir)
			db, err := database.New(database.Config{Genesis: gen, Serializer: store})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to open the database: %v", failed, err)
			}

			for i := uint64(1); i <= 3; i++ {
				ts := uint64(gen.Date.UnixMilli()) + i*10_000
				block, err := database.POW(context.Background(), database.POWArgs{
					PrevBlock:  db.LatestBlock(),
					Difficulty: db.Difficulty(),
					TimeStamp:  ts,
					Trans:      []database.SignedTx{database.NewCoinbaseTx(minerID, gen.MiningReward, ts)},
				})
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to mine block %d: %v", failed, i, err)
				}
				if err := db.Append(block); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to append block %d: %v", failed, i, err)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould be able to append blocks.", success)

			blockData, err := store.GetBlock(2)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read block 2: %v", failed, err)
			}
			if blockData.Index != 2 || blockData.Hash == "" {
				t.Fatalf("\t%s\tTest 0:\tShould read back block 2: got %d", failed, blockData.Index)
			}
			t.Logf("\t%s\tTest 0:\tShould read back block 2.", success)

			if _, err := store.GetBlock(10); !errors.Is(err, database.ErrNotFound) {
				t.Fatalf("\t%s\tTest 0:\tShould not find block 10: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not find block 10.", success)

			bad := blockData
			bad.Index = 9
			if err := store.Write(bad); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould reject a block out of order.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a block out of order.", success)

			db, err = database.New(database.Config{Genesis: gen, Serializer: store})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the chain: %v", failed, err)
			}

			if db.Len() != 4 || db.BalanceOf(minerID) != 3*gen.MiningReward {
				t.Fatalf("\t%s\tTest 0:\tShould rebuild the chain state: len %d bal %d", failed, db.Len(), db.BalanceOf(minerID))
			}
			t.Logf("\t%s\tTest 0:\tShould rebuild the chain state.", success)

			if err := store.Reset(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to reset: %v", failed, err)
			}

			iter := store.ForEach()
			if _, err := iter.Next(); err == nil || !iter.Done() {
				t.Fatalf("\t%s\tTest 0:\tShould be empty after a reset.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be empty after a reset.", success)

			store.Close()
		}
	}
}
